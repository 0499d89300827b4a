// tasks.go - Per-user task list with pagination and search

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go-user-backend/apperrors"
	"go-user-backend/middleware"
	"go-user-backend/models"
	"go-user-backend/policy"
	"go-user-backend/store"
	"go-user-backend/validation"

	"github.com/gin-gonic/gin"
)

type ListTasksQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	Search string `form:"search" binding:"max=100"`
	Status string `form:"status" binding:"omitempty,oneof=pending in-progress completed"`
	UserID uint   `form:"userId"` // admins only
}

type CreateTaskInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=1000"`
	Status      string `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     string `json:"dueDate" binding:"omitempty,rfc3339"`
}

// UpdateTaskInput is a partial update; an empty dueDate clears it.
type UpdateTaskInput struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Status      *string `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     *string `json:"dueDate" binding:"omitempty,rfc3339"`
}

var errTaskNameBlank = apperrors.Validation(apperrors.FieldError{Field: "name", Message: "Name is required"})

// ListTasks returns one page of the caller's tasks. Admins may pass userId
// to list another user's tasks.
func (h *Handler) ListTasks(c *gin.Context) {
	var q ListTasksQuery
	if err := validation.BindQuery(c, &q); err != nil {
		h.fail(c, err)
		return
	}

	id := middleware.CurrentIdentity(c)
	query := store.TaskQuery{
		OwnerID: id.ID,
		Page:    q.Page,
		Limit:   q.Limit,
		Search:  q.Search,
		Status:  q.Status,
	}
	if q.UserID != 0 && policy.IsAdmin(id) {
		query.OwnerID = q.UserID
	}
	query.Normalize()

	tasks, total, err := h.Store.ListTasks(c.Request.Context(), query)
	if err != nil {
		h.fail(c, apperrors.Internal("Failed to fetch tasks", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"total":   total,
		"page":    query.Page,
		"limit":   query.Limit,
		"tasks":   tasks,
	})
}

func (h *Handler) CreateTask(c *gin.Context) {
	var input CreateTaskInput
	if err := validation.BindJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		h.fail(c, errTaskNameBlank)
		return
	}
	due, err := validation.ParseDate(input.DueDate)
	if err != nil {
		h.fail(c, apperrors.Validation(apperrors.FieldError{Field: "dueDate", Message: "Due date must be a valid date"}))
		return
	}

	task := models.Task{
		UserID:      middleware.CurrentIdentity(c).ID,
		Name:        name,
		Description: input.Description,
		Status:      orDefault(input.Status, models.TaskPending),
		Priority:    orDefault(input.Priority, models.PriorityMedium),
		DueDate:     due,
	}
	if err := h.Store.CreateTask(c.Request.Context(), &task); err != nil {
		h.fail(c, apperrors.Internal("Failed to create task", err))
		return
	}
	h.Metrics.TaskCreated(c.Request.Context())

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Task created successfully", "data": task})
}

func (h *Handler) GetTask(c *gin.Context) {
	taskID, err := middleware.IDParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	id := middleware.CurrentIdentity(c)
	task, err := h.Store.FindTask(c.Request.Context(), taskID, id.ID, policy.IsAdmin(id))
	if err != nil {
		h.failTaskLookup(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": task})
}

func (h *Handler) UpdateTask(c *gin.Context) {
	taskID, err := middleware.IDParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var input UpdateTaskInput
	if err := validation.BindJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	changes := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			h.fail(c, errTaskNameBlank)
			return
		}
		changes["name"] = name
	}
	if input.Description != nil {
		changes["description"] = *input.Description
	}
	if input.Status != nil && *input.Status != "" {
		changes["status"] = *input.Status
	}
	if input.Priority != nil && *input.Priority != "" {
		changes["priority"] = *input.Priority
	}
	if input.DueDate != nil {
		due, err := validation.ParseDate(*input.DueDate)
		if err != nil {
			h.fail(c, apperrors.Validation(apperrors.FieldError{Field: "dueDate", Message: "Due date must be a valid date"}))
			return
		}
		changes["due_date"] = due
	}

	id := middleware.CurrentIdentity(c)
	task, err := h.Store.UpdateTask(c.Request.Context(), taskID, id.ID, policy.IsAdmin(id), changes)
	if err != nil {
		h.failTaskLookup(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task updated successfully", "data": task})
}

func (h *Handler) DeleteTask(c *gin.Context) {
	taskID, err := middleware.IDParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	id := middleware.CurrentIdentity(c)
	if err := h.Store.DeleteTask(c.Request.Context(), taskID, id.ID, policy.IsAdmin(id)); err != nil {
		h.failTaskLookup(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted successfully"})
}

// failTaskLookup reports tasks the caller may not see as missing.
func (h *Handler) failTaskLookup(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		h.fail(c, apperrors.NotFound("Task not found"))
		return
	}
	h.fail(c, apperrors.Internal("Failed to process task", err))
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
