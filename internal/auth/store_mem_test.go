package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
)

// memStore is a mutex-guarded Store double. The rotation swap runs under the
// lock, so it is atomic the same way the SQL conditional update is.
type memStore struct {
	mu     sync.Mutex
	users  map[string]User
	nextID int

	failSetRefresh bool
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]User)}
}

func (s *memStore) CreateUser(_ context.Context, user User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return User{}, ErrDuplicateUser
		}
	}

	s.nextID++
	now := time.Now().UTC()
	user.ID = "user-" + strconv.Itoa(s.nextID)
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = user

	return user, nil
}

func (s *memStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *memStore) UserByIdentifier(_ context.Context, identifier string) (User, error) {
	identifier = strings.ToLower(identifier)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == identifier || user.Username == identifier {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *memStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSetRefresh {
		return errors.New("store unavailable")
	}

	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.RefreshToken = token
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user

	return nil
}

func (s *memStore) RotateRefreshToken(_ context.Context, userID, oldToken, newToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if user.RefreshToken != oldToken {
		return ErrRotationConflict
	}
	user.RefreshToken = newToken
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user

	return nil
}

func (s *memStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user

	return nil
}

func (s *memStore) persistedToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].RefreshToken
}
