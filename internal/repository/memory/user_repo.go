package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"eventregistry/internal/domain"
)

type userRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*domain.User
}

// NewUserRepository returns an in-memory UserRepository, used when no database is configured.
func NewUserRepository() domain.UserRepository {
	return &userRepository{byEmail: make(map[string]*domain.User)}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	key := strings.ToLower(u.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[key]; ok {
		return domain.ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	stored := *u
	r.byEmail[key] = &stored
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEmail), nil
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	out := make([]*domain.User, 0, len(r.byEmail))
	for _, u := range r.byEmail {
		c := *u
		out = append(out, &c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt) ||
			(out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].Email < out[j].Email)
	})
	return out, nil
}
