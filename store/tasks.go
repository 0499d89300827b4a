// tasks.go - Task queries scoped to their owner

package store

import (
	"context"
	"strings"

	"go-user-backend/models"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// TaskQuery selects one page of a single owner's tasks.
type TaskQuery struct {
	OwnerID uint
	Page    int
	Limit   int
	Search  string // case-insensitive substring of name
	Status  string
}

// Normalize clamps paging to sane values.
func (q *TaskQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
}

func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	return s.db.WithContext(ctx).Create(t).Error
}

// ListTasks returns the requested page and the total number of matches.
func (s *Store) ListTasks(ctx context.Context, q TaskQuery) ([]models.Task, int64, error) {
	q.Normalize()

	base := s.db.WithContext(ctx).Model(&models.Task{}).Where("user_id = ?", q.OwnerID)
	if search := strings.TrimSpace(q.Search); search != "" {
		base = base.Where("name_lower LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(search))+"%")
	}
	if q.Status != "" {
		base = base.Where("status = ?", q.Status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	tasks := []models.Task{}
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").Order("id DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// FindTask loads task id. Non-admin callers only see their own tasks; any
// other task is reported as not found.
func (s *Store) FindTask(ctx context.Context, id, callerID uint, isAdmin bool) (*models.Task, error) {
	tx := s.db.WithContext(ctx).Where("id = ?", id)
	if !isAdmin {
		tx = tx.Where("user_id = ?", callerID)
	}
	var t models.Task
	if err := tx.First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// UpdateTask applies changes to a task the caller may access.
func (s *Store) UpdateTask(ctx context.Context, id, callerID uint, isAdmin bool, changes map[string]any) (*models.Task, error) {
	t, err := s.FindTask(ctx, id, callerID, isAdmin)
	if err != nil {
		return nil, err
	}
	if status, ok := changes["status"].(string); ok && !models.ValidTaskStatus(status) {
		return nil, models.ErrInvalidTaskState
	}
	if priority, ok := changes["priority"].(string); ok && !models.ValidPriority(priority) {
		return nil, models.ErrInvalidTaskState
	}
	if name, ok := changes["name"].(string); ok {
		changes["name_lower"] = strings.ToLower(name)
	}
	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(t).Updates(changes).Error; err != nil {
			return nil, err
		}
	}
	return s.FindTask(ctx, id, callerID, isAdmin)
}

// DeleteTask removes a task the caller may access.
func (s *Store) DeleteTask(ctx context.Context, id, callerID uint, isAdmin bool) error {
	tx := s.db.WithContext(ctx).Where("id = ?", id)
	if !isAdmin {
		tx = tx.Where("user_id = ?", callerID)
	}
	res := tx.Delete(&models.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
