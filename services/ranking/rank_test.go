package ranking

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"contest-review/services/ledger"
)

var epoch = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func entry(id, task, user string, week int, points int64, at int) *ledger.Entry {
	return &ledger.Entry{
		ID:         id,
		TaskID:     task,
		UserID:     user,
		WeekCount:  week,
		Points:     points,
		Delta:      points,
		CreateTime: epoch.Add(time.Duration(at) * time.Minute),
	}
}

func weekPtr(w int) *int { return &w }

// simulate builds a ledger the way the review service does: each transition
// of a task supersedes the previous one and records the difference as Delta.
func simulate(seed int64, n int) []*ledger.Entry {
	r := rand.New(rand.NewSource(seed))
	last := map[string]int64{}
	var out []*ledger.Entry

	for i := 0; i < n; i++ {
		// tasks keep their owner and week across transitions
		ti := r.Intn(30)
		task := fmt.Sprintf("t%02d", ti)
		user := fmt.Sprintf("u%d", ti%8)
		week := 1 + ti%3

		var points int64
		if r.Intn(3) > 0 {
			points = int64(r.Intn(25))
		}

		out = append(out, &ledger.Entry{
			ID:         fmt.Sprintf("e%04d", i),
			TaskID:     task,
			UserID:     user,
			WeekCount:  week,
			Points:     points,
			Delta:      points - last[task],
			CreateTime: epoch.Add(time.Duration(i) * time.Second),
		})
		last[task] = points
	}
	return out
}

func TestRankOrdersAndTiebreaks(t *testing.T) {
	entries := []*ledger.Entry{
		entry("1", "a", "carol", 1, 10, 1),
		entry("2", "b", "alice", 1, 10, 2),
		entry("3", "c", "bob", 1, 25, 3),
		entry("4", "d", "dave", 1, 0, 4),
		entry("5", "e", "alice", 2, 100, 5),
	}

	rows := slices.Collect(Rank(entries, weekPtr(1)))
	require.Len(t, rows, 4)

	require.Equal(t, "bob", rows[0].UserID)
	require.Equal(t, "alice", rows[1].UserID)
	require.Equal(t, "carol", rows[2].UserID)
	require.Equal(t, "dave", rows[3].UserID)
	for i, r := range rows {
		require.Equal(t, i+1, r.Rank)
		require.Equal(t, 1, *r.WeekCount)
	}
}

func TestRankAllTime(t *testing.T) {
	entries := []*ledger.Entry{
		entry("1", "a", "alice", 1, 10, 1),
		entry("2", "b", "alice", 2, 5, 2),
		entry("3", "c", "bob", 2, 12, 3),
	}

	rows := slices.Collect(Rank(entries, nil))
	require.Len(t, rows, 2)
	require.Equal(t, "alice", rows[0].UserID)
	require.Equal(t, int64(15), rows[0].TotalPoints)
	require.Nil(t, rows[0].WeekCount)
}

func TestRankAmendmentSupersedes(t *testing.T) {
	entries := []*ledger.Entry{
		entry("1", "a", "alice", 1, 10, 1),
		entry("2", "b", "bob", 1, 4, 2),
		entry("3", "a", "alice", 1, 0, 3),
	}

	rows := slices.Collect(Rank(entries, weekPtr(1)))
	require.Equal(t, "bob", rows[0].UserID)
	require.Equal(t, int64(4), rows[0].TotalPoints)
	require.Equal(t, "alice", rows[1].UserID)
	require.Equal(t, int64(0), rows[1].TotalPoints)
}

func TestRankSupersessionTiebreakOnID(t *testing.T) {
	entries := []*ledger.Entry{
		entry("2", "a", "alice", 1, 7, 1),
		entry("1", "a", "alice", 1, 3, 1),
	}

	rows := slices.Collect(Rank(entries, weekPtr(1)))
	require.Equal(t, int64(7), rows[0].TotalPoints)
}

func TestRankIsIdempotentAndRestartable(t *testing.T) {
	entries := simulate(42, 300)

	seq := Rank(entries, weekPtr(2))
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	require.Equal(t, first, second)
	require.Equal(t, first, slices.Collect(Rank(entries, weekPtr(2))))

	// stops early without panicking
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	require.Equal(t, min(2, len(first)), n)
}

func TestRankSumLaw(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		entries := simulate(seed, 200)

		for week := 1; week <= 3; week++ {
			var ranked, ledgerSum int64
			for r := range Rank(entries, weekPtr(week)) {
				ranked += r.TotalPoints
			}
			for _, e := range entries {
				if e.WeekCount == week {
					ledgerSum += e.Delta
				}
			}
			require.Equal(t, ledgerSum, ranked, "seed %d week %d", seed, week)
		}
	}
}

func TestRankDense(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rows := slices.Collect(Rank(simulate(seed, 150), nil))

		seen := map[string]bool{}
		for i, r := range rows {
			require.Equal(t, i+1, r.Rank)
			require.False(t, seen[r.UserID])
			seen[r.UserID] = true
			if i > 0 {
				prev := rows[i-1]
				require.True(t, prev.TotalPoints > r.TotalPoints ||
					(prev.TotalPoints == r.TotalPoints && prev.UserID < r.UserID))
			}
		}
	}
}

func TestRankEmpty(t *testing.T) {
	require.Empty(t, slices.Collect(Rank(nil, weekPtr(1))))
}
