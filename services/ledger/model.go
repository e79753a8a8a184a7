package ledger

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// GenesisHash is the PreviousHash of the first entry in a user's chain.
const GenesisHash = "GENESIS"

// Entry is one append-only record of a committed review transition.
//
// Points is the award this transition committed (0 unless approved). Delta is
// the effective change to the user's weekly running total: Points minus the
// Points of the entry it supersedes for the same task.
type Entry struct {
	ID                string         `gorm:"column:id;primaryKey" json:"id"`
	TaskID            string         `gorm:"column:task_id;index;not null" json:"taskId"`
	UserID            string         `gorm:"column:user_id;index;not null" json:"userId"`
	WeekCount         int            `gorm:"column:week_count;index" json:"weekCount"`
	TaskType          string         `gorm:"column:task_type" json:"taskType"`
	ReviewStatus      int            `gorm:"column:review_status" json:"reviewStatus"`
	ReviewMessage     *string        `gorm:"column:review_message" json:"reviewMessage,omitempty"`
	Points            int64          `gorm:"column:points" json:"points"`
	Delta             int64          `gorm:"column:delta" json:"delta"`
	TotalPointsBefore *int64         `gorm:"column:total_points_before" json:"totalPointsBefore,omitempty"`
	TotalPointsAfter  *int64         `gorm:"column:total_points_after" json:"totalPointsAfter,omitempty"`
	VerifierID        *string        `gorm:"column:verifier_id" json:"verifierId,omitempty"`
	TransactionID     string         `gorm:"column:transaction_id;index" json:"transactionId"`
	PreviousHash      string         `gorm:"column:previous_hash" json:"previousHash"`
	Hash              string         `gorm:"column:hash" json:"hash"`
	Metadata          datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreateTime        time.Time      `gorm:"column:create_time;index" json:"createTime"`
}

func (Entry) TableName() string { return "points_ledger_entries" }

// WeeklyTotal is the running total of a user for one week.
type WeeklyTotal struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id;uniqueIndex:idx_weekly_total_user_week;not null"`
	WeekCount int       `gorm:"column:week_count;uniqueIndex:idx_weekly_total_user_week"`
	Total     int64     `gorm:"column:total"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (WeeklyTotal) TableName() string { return "weekly_point_totals" }

// ChainHead is the tip of a user's hash chain. Record locks this row before
// reading the previous hash, so appends for one user run one at a time.
type ChainHead struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	EntryID   string    `gorm:"column:entry_id"`
	Hash      string    `gorm:"column:hash;not null"`
	Length    int64     `gorm:"column:chain_length"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ChainHead) TableName() string { return "points_ledger_chains" }

// Models lists the tables owned by the ledger.
func Models() []any {
	return []any{&Entry{}, &WeeklyTotal{}, &ChainHead{}}
}

// Supersedes reports whether e is newer than other for supersession purposes.
func (e *Entry) Supersedes(other *Entry) bool {
	if other == nil {
		return true
	}
	if !e.CreateTime.Equal(other.CreateTime) {
		return e.CreateTime.After(other.CreateTime)
	}
	return e.ID > other.ID
}

func (e *Entry) HashFields() map[string]string {
	return map[string]string{
		"id":             e.ID,
		"task_id":        e.TaskID,
		"user_id":        e.UserID,
		"week_count":     fmt.Sprintf("%d", e.WeekCount),
		"task_type":      e.TaskType,
		"review_status":  fmt.Sprintf("%d", e.ReviewStatus),
		"points":         fmt.Sprintf("%d", e.Points),
		"delta":          fmt.Sprintf("%d", e.Delta),
		"transaction_id": e.TransactionID,
		"verifier_id":    deref(e.VerifierID),
		"create_time":    e.CreateTime.UTC().Format(time.RFC3339Nano),
		"previous_hash":  e.PreviousHash,
	}
}

func (e *Entry) GenerateHash() string {
	fields := e.HashFields()
	var keys []string
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(hash[:])
}

// GenerateTransactionID is the fallback when no sequence generator is wired.
func GenerateTransactionID() (string, error) {
	datePart := time.Now().Format("20060102")

	r := make([]byte, 3)
	_, err := rand.Read(r)
	if err != nil {
		return "", err
	}
	randomPart := strings.ToUpper(fmt.Sprintf("%x", r))

	return fmt.Sprintf("%s-%s", datePart, randomPart), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
