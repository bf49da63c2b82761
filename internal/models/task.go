package models

import (
	"strings"
	"time"
)

// TaskCategory classifies a daily task.
type TaskCategory string

const (
	TaskInternship TaskCategory = "internship"
	TaskAcademics  TaskCategory = "academics"
	TaskSkill      TaskCategory = "skill"
	TaskHealth     TaskCategory = "health"
	TaskMisc       TaskCategory = "misc"
)

// ParseTaskCategory resolves a free-form category string, defaulting to misc.
func ParseTaskCategory(s string) TaskCategory {
	switch TaskCategory(strings.ToLower(strings.TrimSpace(s))) {
	case TaskInternship:
		return TaskInternship
	case TaskAcademics:
		return TaskAcademics
	case TaskSkill:
		return TaskSkill
	case TaskHealth:
		return TaskHealth
	default:
		return TaskMisc
	}
}

// Task is one entry in a user's daily task list.
type Task struct {
	ID          string       `firestore:"id" json:"id"`
	Description string       `firestore:"description" json:"description" validate:"required"`
	Category    TaskCategory `firestore:"category" json:"category"`
	Difficulty  int          `firestore:"difficulty" json:"difficulty" validate:"gte=1,lte=10"`
	Points      int          `firestore:"points" json:"points"`
	Completed   bool         `firestore:"completed" json:"completed"`
	CompletedAt time.Time    `firestore:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// TaskDay is the bucket of tasks scoped to (user, calendar date). SetTasks
// replaces the whole bucket; tasks are never deleted individually.
type TaskDay struct {
	UserID string `firestore:"userID"`
	Date   string `firestore:"date"`
	Tasks  []Task `firestore:"tasks"`
}

// FindTask returns a pointer into the bucket's task slice, or nil.
func (d *TaskDay) FindTask(taskID string) *Task {
	for i := range d.Tasks {
		if d.Tasks[i].ID == taskID {
			return &d.Tasks[i]
		}
	}
	return nil
}
