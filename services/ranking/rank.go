package ranking

import (
	"iter"
	"sort"

	"contest-review/services/ledger"
)

// Entry is one leaderboard row.
type Entry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName,omitempty"`
	UserEmail     string `json:"userEmail,omitempty"`
	TwitterHandle string `json:"twitterHandle,omitempty"`
	DiscordHandle string `json:"discordHandle,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
	WeekCount     *int   `json:"weekCount,omitempty"`
	TotalPoints   int64  `json:"totalPoints"`
}

// Rank derives the leaderboard from ledger entries, for one week or all
// time when week is nil. Only the newest entry of each task counts, so an
// amended review replaces the earlier award. Rows are ordered by total
// descending then user id ascending and ranked 1..n without shared ranks.
//
// The sequence is recomputed from entries on every iteration.
func Rank(entries []*ledger.Entry, week *int) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		latest := make(map[string]*ledger.Entry)
		for _, e := range entries {
			if e == nil || (week != nil && e.WeekCount != *week) {
				continue
			}
			if e.Supersedes(latest[e.TaskID]) {
				latest[e.TaskID] = e
			}
		}

		totals := make(map[string]int64)
		for _, e := range latest {
			totals[e.UserID] += e.Points
		}

		rows := make([]Entry, 0, len(totals))
		for userID, total := range totals {
			rows = append(rows, Entry{UserID: userID, TotalPoints: total, WeekCount: week})
		}

		sort.Slice(rows, func(i, j int) bool {
			if rows[i].TotalPoints != rows[j].TotalPoints {
				return rows[i].TotalPoints > rows[j].TotalPoints
			}
			return rows[i].UserID < rows[j].UserID
		})

		for i := range rows {
			rows[i].Rank = i + 1
			if !yield(rows[i]) {
				return
			}
		}
	}
}
