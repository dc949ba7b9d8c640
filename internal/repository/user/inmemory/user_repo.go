package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"taskflow/internal/models/user"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
)

type UserStorage struct {
	storage map[uuid.UUID]*user.User
	mtx     *sync.RWMutex
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		storage: make(map[uuid.UUID]*user.User),
		mtx:     &sync.RWMutex{},
	}
}

func (s *UserStorage) Create(ctx context.Context, userToCreate *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.checkUnique(userToCreate); err != nil {
		return err
	}

	c := *userToCreate
	s.storage[c.ID] = &c
	return nil
}

func (s *UserStorage) Update(ctx context.Context, userToUpdate *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[userToUpdate.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if err := s.checkUnique(userToUpdate); err != nil {
		return err
	}

	c := *userToUpdate
	c.CreatedAt = existing.CreatedAt
	s.storage[c.ID] = &c
	return nil
}

func (s *UserStorage) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.ID == id })
}

func (s *UserStorage) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.Email == email })
}

func (s *UserStorage) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.Username == username })
}

func (s *UserStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.storage, id)
	return nil
}

// Search matches username or email case-insensitively, ordered by username
func (s *UserStorage) Search(ctx context.Context, query string, page, limit int) ([]*user.User, int, error) {
	s.mtx.RLock()
	needle := strings.ToLower(query)
	matches := []*user.User{}
	for _, u := range s.storage {
		if strings.Contains(strings.ToLower(u.Username), needle) || strings.Contains(u.Email, needle) {
			c := *u
			matches = append(matches, &c)
		}
	}
	s.mtx.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Username < matches[j].Username
	})

	total := len(matches)
	offset := (page - 1) * limit
	if offset >= total {
		return []*user.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matches[offset:end], total, nil
}

func (s *UserStorage) find(pred func(*user.User) bool) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, u := range s.storage {
		if pred(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, repo.ErrNotFound
}

// checkUnique expects the write lock to be held
func (s *UserStorage) checkUnique(candidate *user.User) error {
	for _, u := range s.storage {
		if u.ID == candidate.ID {
			continue
		}
		if u.Username == candidate.Username {
			return repo.NewDuplicate("username")
		}
		if u.Email == candidate.Email {
			return repo.NewDuplicate("email")
		}
	}
	return nil
}
