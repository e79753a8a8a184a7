package review

import (
	"errors"

	"contest-review/pkg/errutil"
)

var (
	ErrInvalidTransition = errors.New("invalid review transition")
	ErrInvalidPoints     = errors.New("invalid points")
)

// Intent separates a first-time review from an amendment of a terminal one.
type Intent int

const (
	IntentReview Intent = iota
	IntentModify
)

func (i Intent) String() string {
	if i == IntentModify {
		return "modify"
	}
	return "review"
}

// Decision is the admin's verdict on a task.
type Decision struct {
	Status  ReviewStatus `json:"reviewStatus"`
	Message *string      `json:"reviewMessage,omitempty"`
	Points  *int64       `json:"points,omitempty"`
}

// ValidateDecision checks d without touching storage and returns the points
// that would be committed. Rejection commits 0 whatever the caller sent.
func ValidateDecision(d Decision) (int64, error) {
	switch d.Status {
	case StatusApproved:
		if d.Points == nil {
			return 0, errutil.ValidationFailed("points are required to approve a task", ErrInvalidPoints,
				errutil.WithDetails(errutil.Detail{Field: "points", Message: "required"}))
		}
		if *d.Points < 0 {
			return 0, errutil.ValidationFailed("points must not be negative", ErrInvalidPoints,
				errutil.WithDetails(errutil.Detail{Field: "points", Message: "must be >= 0"}))
		}
		return *d.Points, nil
	case StatusRejected:
		return 0, nil
	default:
		return 0, errutil.ValidationFailed("review status must be approved or rejected", ErrInvalidTransition,
			errutil.WithDetails(errutil.Detail{Field: "reviewStatus", Message: "must be 1 or 2"}))
	}
}

// CheckTransition validates moving a task out of current with intent.
func CheckTransition(current ReviewStatus, intent Intent) error {
	switch intent {
	case IntentReview:
		if current != StatusPending {
			return errutil.ValidationFailed("task has already been reviewed", ErrInvalidTransition)
		}
	case IntentModify:
		if !current.Terminal() {
			return errutil.ValidationFailed("task has not been reviewed yet", ErrInvalidTransition)
		}
	default:
		return errutil.ValidationFailed("unknown review intent", ErrInvalidTransition)
	}
	return nil
}
