package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/bearer-auth/internal/model"
)

// UserStore is the persistence contract consumed by the auth services.
// Implementations must be safe for concurrent use.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByRole(ctx context.Context, role model.Role) (model.User, error)
	Save(ctx context.Context, u model.User) (model.User, error)
}

const userColumns = "id,email,firstname,secondname,role,password_hash,created_at"

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// UserRepo is the MySQL backed UserStore.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// FindByEmail fetches a user by exact email. Emails are compared with a
// binary collation so the lookup is case-sensitive.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// FindByRole returns the oldest user holding role.
func (r *UserRepo) FindByRole(ctx context.Context, role model.Role) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role=? ORDER BY created_at LIMIT 1", string(role))
	return scanUser(row)
}

// Save inserts u when it has no ID yet and updates the existing row
// otherwise. The stored user is returned with ID and CreatedAt filled in.
func (r *UserRepo) Save(ctx context.Context, u model.User) (model.User, error) {
	if u.ID != "" {
		_, err := r.DB.ExecContext(ctx,
			"UPDATE users SET email=?,firstname=?,secondname=?,role=?,password_hash=? WHERE id=?",
			u.Email, u.Firstname, u.Secondname, string(u.Role), u.PasswordHash, u.ID)
		if err != nil {
			return model.User{}, translateWriteErr(err)
		}
		return u, nil
	}

	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?)",
		u.ID, u.Email, u.Firstname, u.Secondname, string(u.Role), u.PasswordHash, u.CreatedAt)
	if err != nil {
		return model.User{}, translateWriteErr(err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Firstname, &u.Secondname, &role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if !u.Role.Valid() {
		return model.User{}, fmt.Errorf("user %s has unknown role %q", u.ID, role)
	}
	return u, nil
}

func translateWriteErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrEmailExists
	}
	return err
}
