package inmemory

import (
	"context"
	"sync"

	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
)

type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.storage[taskToCreate.ID] = taskToCreate.Clone()
	s.ids = append(s.ids, taskToCreate.ID)
	return nil
}

func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[taskToUpdate.ID]
	if !ok || existing.UserID != taskToUpdate.UserID {
		return repo.ErrNotFound
	}

	updated := taskToUpdate.Clone()
	updated.CreatedAt = existing.CreatedAt
	s.storage[taskToUpdate.ID] = updated
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok || taskToGet.UserID != userID {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

func (s *TaskStorage) Delete(ctx context.Context, userID, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	taskToDelete, ok := s.storage[id]
	if !ok || taskToDelete.UserID != userID {
		return repo.ErrNotFound
	}
	s.remove(id)
	return nil
}

// List returns one page of matches plus the total number of matches
func (s *TaskStorage) List(ctx context.Context, filter task.Filter) ([]*task.Task, int, error) {
	matches := s.match(filter)
	total := len(matches)

	task.SortTasks(matches, filter.Sort)

	offset := filter.Offset()
	if offset >= total {
		return []*task.Task{}, total, nil
	}
	end := total
	if filter.Limit > 0 && offset+filter.Limit < total {
		end = offset + filter.Limit
	}
	return matches[offset:end], total, nil
}

func (s *TaskStorage) Count(ctx context.Context, filter task.Filter) (int, error) {
	return len(s.match(filter)), nil
}

func (s *TaskStorage) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.deleteWhere(func(t *task.Task) bool {
		return t.UserID == userID
	}), nil
}

func (s *TaskStorage) DeleteCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.deleteWhere(func(t *task.Task) bool {
		return t.UserID == userID && t.Completed
	}), nil
}

func (s *TaskStorage) match(filter task.Filter) []*task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.storage[id]
		if filter.Match(t) {
			res = append(res, t.Clone())
		}
	}
	return res
}

func (s *TaskStorage) deleteWhere(pred func(*task.Task) bool) int64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var deleted int64
	for _, id := range append([]uuid.UUID(nil), s.ids...) {
		if pred(s.storage[id]) {
			s.remove(id)
			deleted++
		}
	}
	return deleted
}

// remove expects the write lock to be held
func (s *TaskStorage) remove(id uuid.UUID) {
	delete(s.storage, id)
	for ind, val := range s.ids {
		if val == id {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}
}
