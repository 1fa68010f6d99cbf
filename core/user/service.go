package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/escuela/core"
)

var (
	// errors
	ErrNotFound             = errors.New("user not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")

	nowFunc = time.Now // mockable
)

type Repository interface {
	// GetUser finds a user by username or email.
	GetUser(ctx context.Context, usernameOrEmail string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	// SaveUser updates the user with the same ID, or creates it.
	SaveUser(ctx context.Context, usr User) (User, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, core.CleanString(uname, true /* lower */))
}

// Authenticate checks the credentials and records the login time.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	usr.LastLogin = nowFunc().UTC()
	if usr, err = svc.repo.SaveUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

// Save updates the user matching nu's username (or email), or creates it.
// nu is expected to be validated.
func (svc *Service) Save(ctx context.Context, nu NewUser) (User, error) {
	now := nowFunc().UTC()

	usr, err := svc.repo.GetUser(ctx, nu.Username)
	if errors.Cause(err) == ErrNotFound && nu.Email != "" {
		usr, err = svc.repo.GetUser(ctx, nu.Email)
	}
	switch {
	case errors.Cause(err) == ErrNotFound:
		usr = User{ID: uuid.NewString(), CreatedAt: now}
	case err != nil:
		return User{}, errors.Wrap(err, "finding user")
	}

	if nu.Name != "" {
		usr.Name = nu.Name
	}
	usr.Username = nu.Username
	if nu.Email != "" {
		usr.Email = nu.Email
	}
	if nu.Roles != nil {
		usr.Roles = nu.Roles
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.SaveUser(ctx, usr)
}
