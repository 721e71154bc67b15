package memory

import (
	"context"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
)

type userRepository struct {
	store *Store
}

func NewUserRepository(store *Store) user.UserRepository {
	return &userRepository{store: store}
}

// Create implements user.UserRepository.
func (r *userRepository) Create(ctx context.Context, newUser user.User) (user.User, error) {
	var created user.User
	err := r.store.write(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.Username == newUser.Username {
				return user.ErrUsernameExists
			}
			if u.Email == newUser.Email {
				return user.ErrEmailExists
			}
		}

		st.userSeq++
		created = newUser
		created.ID = st.userSeq
		created.CreatedAt = r.store.now()
		st.users[created.ID] = created
		return nil
	})
	return created, err
}

// GetByID implements user.UserRepository.
func (r *userRepository) GetByID(ctx context.Context, id int64) (user.User, error) {
	var found user.User
	err := r.store.read(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return user.ErrUserNotFound
		}
		found = u
		return nil
	})
	return found, err
}

// GetByUsername implements user.UserRepository.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (user.User, error) {
	var found user.User
	err := r.store.read(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				found = u
				return nil
			}
		}
		return user.ErrUserNotFound
	})
	return found, err
}
