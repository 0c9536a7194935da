package inmem

import (
	"sync"

	"github.com/ichigozero/gtdkit/tasker/storage"
	"github.com/ichigozero/gtdkit/tasker/usersvc"
)

// UserRepository caches the users document and flushes it after every
// registration.
type UserRepository struct {
	mtx   sync.RWMutex
	store storage.Store
	users map[string]string
}

var _ usersvc.UserRepository = (*UserRepository)(nil)

func NewUserRepository(s storage.Store) (*UserRepository, error) {
	users := map[string]string{}
	if err := storage.LoadJSON(s, storage.KindUsers, &users); err != nil {
		return nil, err
	}
	return &UserRepository{store: s, users: users}, nil
}

func (r *UserRepository) Create(u usersvc.User) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.users[u.Name]; ok {
		return usersvc.ErrAlreadyExists
	}

	next := make(map[string]string, len(r.users)+1)
	for k, v := range r.users {
		next[k] = v
	}
	next[u.Name] = u.Password

	if err := storage.SaveJSON(r.store, storage.KindUsers, next); err != nil {
		return err
	}
	r.users = next
	return nil
}

func (r *UserRepository) Find(username string) (usersvc.User, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	password, ok := r.users[username]
	if !ok {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return usersvc.User{Name: username, Password: password}, nil
}
