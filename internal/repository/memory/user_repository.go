// Package memory provides a process-local UserRepository used for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"session-auth/internal/domain"
	"session-auth/internal/repository"
)

type UserRepository struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[int64]domain.User
	byEmail    map[string]int64
	byUsername map[string]int64
}

func NewUserRepository() repository.UserRepository {
	return &UserRepository{
		users:      make(map[int64]domain.User),
		byEmail:    make(map[string]int64),
		byUsername: make(map[string]int64),
	}
}

func (r *UserRepository) Init(context.Context) error {
	return nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return 0, domain.ErrUserExists
	}
	if _, ok := r.byUsername[user.Username]; ok {
		return 0, domain.ErrUserExists
	}

	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	r.users[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	r.byUsername[user.Username] = user.ID
	return user.ID, nil
}

func (r *UserRepository) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// lowest id wins when the identifier is one user's email and another's username
	id, found := r.byEmail[identifier]
	if other, ok := r.byUsername[identifier]; ok && (!found || other < id) {
		id, found = other, true
	}
	if !found {
		return nil, domain.ErrUserNotFound
	}
	user := r.users[id]
	return &user, nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

func (r *UserRepository) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, emailTaken := r.byEmail[email]
	_, usernameTaken := r.byUsername[username]
	return emailTaken || usernameTaken, nil
}

func (r *UserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	delete(r.byEmail, user.Email)
	delete(r.byUsername, user.Username)
	return nil
}
