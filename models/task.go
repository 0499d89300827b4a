// task.go - Defines the Task model owned by a single user

package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	TaskPending    = "pending"
	TaskInProgress = "in-progress"
	TaskCompleted  = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var ErrInvalidTaskState = errors.New("models: task status or priority outside the allowed set")

type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"userId"` // Owner
	User        User       `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Name        string     `gorm:"size:100;not null" json:"name"`
	NameLower   string     `gorm:"size:400;index" json:"-"` // Search key, set in BeforeSave
	Description string     `gorm:"size:1000" json:"description"`
	Status      string     `gorm:"size:16;default:'pending';not null" json:"status"`
	Priority    string     `gorm:"size:8;default:'medium';not null" json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// BeforeSave keeps the search key in step with Name and refuses statuses or
// priorities outside the closed sets. Empty values fall back to column defaults.
// Unicode folding happens here because SQLite's LOWER only folds ASCII.
func (t *Task) BeforeSave(tx *gorm.DB) error {
	if (t.Status != "" && !ValidTaskStatus(t.Status)) || (t.Priority != "" && !ValidPriority(t.Priority)) {
		return ErrInvalidTaskState
	}
	t.NameLower = strings.ToLower(t.Name)
	return nil
}

// ValidTaskStatus reports whether s is one of the closed set of statuses.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the closed set of priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
