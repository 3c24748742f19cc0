// Package catalog manages the ordered set of completable tasks.
// Ids are assigned monotonically (max existing + 1) and are never reused
// within the catalog's lifetime, so deleting task 1 does not make id 1
// available again while higher ids exist.
package catalog

import (
	"fmt"
	"strings"

	"github.com/poinbot/poinbot/internal/app/repo"
	"github.com/poinbot/poinbot/internal/domain"
)

// Catalog exposes task CRUD over the repository.
type Catalog struct {
	repo *repo.Repository
}

// New creates a catalog over the repository.
func New(r *repo.Repository) *Catalog { return &Catalog{repo: r} }

// List returns the catalog ordered by id.
func (c *Catalog) List() []domain.TaskRecord { return c.repo.Tasks() }

// Get returns the task with the given id.
func (c *Catalog) Get(id int64) (domain.TaskRecord, bool) { return c.repo.TaskByID(id) }

// Add validates and appends a new task, returning the assigned record.
func (c *Catalog) Add(reward int64, durationMinutes int, description string) (domain.TaskRecord, error) {
	description = strings.TrimSpace(description)
	if reward <= 0 {
		return domain.TaskRecord{}, fmt.Errorf("reward must be positive: %w", domain.ErrValidation)
	}
	if durationMinutes <= 0 {
		return domain.TaskRecord{}, fmt.Errorf("duration must be positive: %w", domain.ErrValidation)
	}
	if description == "" {
		return domain.TaskRecord{}, fmt.Errorf("description must not be empty: %w", domain.ErrValidation)
	}

	var created domain.TaskRecord
	err := c.repo.UpdateTasks(func(tasks []domain.TaskRecord) ([]domain.TaskRecord, error) {
		var maxID int64
		for _, t := range tasks {
			if t.ID > maxID {
				maxID = t.ID
			}
		}
		created = domain.TaskRecord{
			ID:              maxID + 1,
			Reward:          reward,
			DurationMinutes: durationMinutes,
			Description:     description,
		}
		return append(tasks, created), nil
	})
	if err != nil {
		return domain.TaskRecord{}, err
	}
	return created, nil
}

// Delete removes the task with the given id. Deleting a task does not
// retroactively affect completions already recorded or challenges already
// in flight; those hold their own captured copy.
func (c *Catalog) Delete(id int64) error {
	return c.repo.UpdateTasks(func(tasks []domain.TaskRecord) ([]domain.TaskRecord, error) {
		for i, t := range tasks {
			if t.ID == id {
				return append(tasks[:i], tasks[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	})
}
