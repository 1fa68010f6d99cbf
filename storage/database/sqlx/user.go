package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core/user"
)

type userRow struct {
	ID           string      `db:"id"`
	Name         null.String `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	IsActive     bool        `db:"is_active"`
	Roles        string      `db:"roles"`
	PasswordHash null.String `db:"password_hash"`
	CreatedAt    null.Time   `db:"created_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	row := userRow{
		ID:        usr.ID,
		Name:      null.StringFrom(usr.Name),
		IsActive:  usr.IsActive,
		Roles:     strings.Join(usr.Roles, ","),
		CreatedAt: null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin: null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
	// empty username / email stay NULL so they do not collide on the unique indexes
	row.Username = null.NewString(usr.Username, usr.Username != "")
	row.Email = null.NewString(usr.Email, usr.Email != "")
	row.PasswordHash = null.NewString(string(usr.PasswordHash), len(usr.PasswordHash) > 0)
	return row
}

func (r userRow) model() user.User {
	usr := user.User{
		ID:        r.ID,
		Name:      r.Name.String,
		Username:  r.Username.String,
		Email:     r.Email.String,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.Time.UTC(),
		UpdatedAt: r.UpdatedAt.Time.UTC(),
		LastLogin: r.LastLogin.Time.UTC(),
	}
	if r.Roles != "" {
		usr.Roles = strings.Split(r.Roles, ",")
	}
	if r.PasswordHash.Valid {
		usr.PasswordHash = []byte(r.PasswordHash.String)
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

const userColumns = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

func (repo *userRepository) get(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var row userRow
	q := repo.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1`)
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.model(), nil
}

func (repo *userRepository) GetUser(ctx context.Context, usernameOrEmail string) (user.User, error) {
	if usernameOrEmail == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, `username = ? OR email = ?`, usernameOrEmail, usernameOrEmail)
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.get(ctx, `id = ?`, id)
}

func (repo *userRepository) SaveUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return user.User{}, errors.New("saving user without id")
	}
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, username = excluded.username, email = excluded.email,
			is_active = excluded.is_active, roles = excluded.roles, password_hash = excluded.password_hash,
			updated_at = excluded.updated_at, last_login = excluded.last_login`
	if _, err := repo.db.NamedExecContext(ctx, q, newUserRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "upserting user")
	}
	return usr, nil
}
