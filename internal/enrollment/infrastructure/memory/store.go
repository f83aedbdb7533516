// Package memory is an in-process UserStore for local runs and tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
)

type Store struct {
	mu     sync.RWMutex
	users  map[string]domain.UserAccount
	writes int
}

func NewStore(users ...domain.UserAccount) *Store {
	s := &Store{users: make(map[string]domain.UserAccount, len(users))}
	for _, u := range users {
		s.Put(u)
	}
	return s
}

func (s *Store) Put(u domain.UserAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.EnrolledCourses = slices.Clone(u.EnrolledCourses)
	s.users[u.ID] = u
}

func (s *Store) FindUserByID(_ context.Context, id string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	u.EnrolledCourses = slices.Clone(u.EnrolledCourses)
	return &u, nil
}

func (s *Store) AddCourseIfAbsent(_ context.Context, userID, courseID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, domain.ErrUserNotFound
	}
	if slices.Contains(u.EnrolledCourses, courseID) {
		return false, nil
	}
	u.EnrolledCourses = append(slices.Clone(u.EnrolledCourses), courseID)
	s.users[userID] = u
	s.writes++
	return true, nil
}

// Writes counts successful set insertions.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
