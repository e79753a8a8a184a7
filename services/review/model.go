package review

import (
	"errors"
	"strings"
	"time"
)

// TaskType is the closed set of contest task categories.
type TaskType string

const (
	TaskTypeGroupGrowth TaskType = "group_growth"
	TaskTypeInGroup     TaskType = "in_group"
	TaskTypeOutGroup    TaskType = "out_group"
	TaskTypeOriginal    TaskType = "original"
)

func (t TaskType) Valid() bool {
	_, ok := taskTypeTable[t]
	return ok
}

type ReviewStatus int

const (
	StatusPending ReviewStatus = iota
	StatusApproved
	StatusRejected
)

func (s ReviewStatus) Valid() bool {
	return s >= StatusPending && s <= StatusRejected
}

func (s ReviewStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s ReviewStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// TaskRecord is one user submission for one task type and week.
type TaskRecord struct {
	ID            string       `gorm:"column:id;primaryKey" json:"id"`
	UserID        string       `gorm:"column:user_id;index;not null" json:"userId"`
	UserName      string       `gorm:"column:user_name" json:"userName"`
	UserEmail     string       `gorm:"column:user_email" json:"userEmail"`
	TaskType      TaskType     `gorm:"column:task_type;type:varchar(32);index" json:"taskType"`
	WeekCount     int          `gorm:"column:week_count;index" json:"weekCount"`
	DateRange     string       `gorm:"column:date_range" json:"dateRange"`
	ContentLink   *string      `gorm:"column:content_link" json:"contentLink,omitempty"`
	Screenshot    string       `gorm:"column:screenshot" json:"screenshot"`
	BrowseNum     *int64       `gorm:"column:browse_num" json:"browseNum,omitempty"`
	ReviewStatus  ReviewStatus `gorm:"column:review_status;index;not null;default:0" json:"reviewStatus"`
	ReviewMessage *string      `gorm:"column:review_message" json:"reviewMessage,omitempty"`
	Points        int64        `gorm:"column:points;not null;default:0" json:"points"`
	VerifierID    *string      `gorm:"column:verifier_id" json:"verifierId,omitempty"`
	VerifierName  *string      `gorm:"column:verifier_name" json:"verifierName,omitempty"`
	CreateTime    time.Time    `gorm:"column:create_time;index" json:"createTime"`
	UpdateTime    time.Time    `gorm:"column:update_time" json:"updateTime"`
}

func (TaskRecord) TableName() string { return "task_records" }

// Screenshots splits the comma-joined evidence URLs.
func (t *TaskRecord) Screenshots() []string {
	var out []string
	for _, s := range strings.Split(t.Screenshot, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the status/points/verifier invariant of a stored record.
func (t *TaskRecord) Validate() error {
	switch {
	case !t.ReviewStatus.Valid():
		return errors.New("unknown review status")
	case t.ReviewStatus == StatusPending && t.Points != 0:
		return errors.New("pending task must carry zero points")
	case t.ReviewStatus == StatusPending && t.VerifierID != nil:
		return errors.New("pending task must not have a verifier")
	case t.Points < 0:
		return errors.New("points must not be negative")
	case t.Points > 0 && t.ReviewStatus != StatusApproved:
		return errors.New("only approved tasks carry points")
	}
	return nil
}
