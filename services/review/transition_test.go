package review

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"contest-review/pkg/errutil"
)

func pts(n int64) *int64 { return &n }

func TestValidateDecision(t *testing.T) {
	tests := []struct {
		name    string
		d       Decision
		want    int64
		wantErr error
	}{
		{"approve with points", Decision{Status: StatusApproved, Points: pts(10)}, 10, nil},
		{"approve with zero", Decision{Status: StatusApproved, Points: pts(0)}, 0, nil},
		{"approve without points", Decision{Status: StatusApproved}, 0, ErrInvalidPoints},
		{"approve negative", Decision{Status: StatusApproved, Points: pts(-1)}, 0, ErrInvalidPoints},
		{"reject coerces points", Decision{Status: StatusRejected, Points: pts(50)}, 0, nil},
		{"reject without points", Decision{Status: StatusRejected}, 0, nil},
		{"target pending", Decision{Status: StatusPending, Points: pts(0)}, 0, ErrInvalidTransition},
		{"unknown target", Decision{Status: ReviewStatus(7)}, 0, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateDecision(tt.d)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tt.wantErr))
				require.True(t, errutil.Is(err, errutil.StatusValidationFailed))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCheckTransition(t *testing.T) {
	require.NoError(t, CheckTransition(StatusPending, IntentReview))
	require.NoError(t, CheckTransition(StatusApproved, IntentModify))
	require.NoError(t, CheckTransition(StatusRejected, IntentModify))

	for _, tc := range []struct {
		from   ReviewStatus
		intent Intent
	}{
		{StatusApproved, IntentReview},
		{StatusRejected, IntentReview},
		{StatusPending, IntentModify},
		{StatusPending, Intent(9)},
	} {
		err := CheckTransition(tc.from, tc.intent)
		require.ErrorIs(t, err, ErrInvalidTransition, "%s/%s", tc.from, tc.intent)
	}
}

func TestTaskRecordValidate(t *testing.T) {
	verifier := "admin"

	require.NoError(t, (&TaskRecord{ReviewStatus: StatusPending}).Validate())
	require.NoError(t, (&TaskRecord{ReviewStatus: StatusApproved, Points: 10, VerifierID: &verifier}).Validate())
	require.NoError(t, (&TaskRecord{ReviewStatus: StatusRejected, VerifierID: &verifier}).Validate())

	require.Error(t, (&TaskRecord{ReviewStatus: StatusPending, Points: 3}).Validate())
	require.Error(t, (&TaskRecord{ReviewStatus: StatusPending, VerifierID: &verifier}).Validate())
	require.Error(t, (&TaskRecord{ReviewStatus: StatusRejected, Points: 3}).Validate())
	require.Error(t, (&TaskRecord{ReviewStatus: StatusApproved, Points: -1}).Validate())
	require.Error(t, (&TaskRecord{ReviewStatus: ReviewStatus(5)}).Validate())
}

func TestScreenshots(t *testing.T) {
	r := &TaskRecord{Screenshot: "https://a/1.png, https://a/2.png,,"}
	require.Equal(t, []string{"https://a/1.png", "https://a/2.png"}, r.Screenshots())
}
