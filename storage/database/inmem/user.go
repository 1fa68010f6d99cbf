package inmemdb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core/user"
)

type userRepository struct {
	db *userTable
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) GetUser(_ context.Context, usernameOrEmail string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usernameOrEmail != "" {
		for _, usr := range repo.db.table {
			if usr.Username == usernameOrEmail || usr.Email == usernameOrEmail {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) SaveUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if usr.ID == "" {
		return user.User{}, errors.New("saving user without id")
	}
	for _, u := range repo.db.table {
		if u.ID == usr.ID {
			continue
		}
		if usr.Username != "" && u.Username == usr.Username {
			return user.User{}, errors.Errorf("username %q already exists", usr.Username)
		}
		if usr.Email != "" && u.Email == usr.Email {
			return user.User{}, errors.Errorf("email %q already exists", usr.Email)
		}
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}
