package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/pilates-studio-booking/internal/database"
	"github.com/iliyamo/pilates-studio-booking/internal/model"
	"github.com/iliyamo/pilates-studio-booking/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, name, password_hash, role, is_active, consent_at, created_at, updated_at`

func scanUser(row scanner) (model.User, error) {
	var (
		u       model.User
		consent sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &consent, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, err
	}
	if consent.Valid {
		c := consent.Time
		u.ConsentAt = &c
	}
	return u, nil
}

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, name, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, role) VALUES (?,?,?,?)",
		email, strings.TrimSpace(name), hash, role)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// RecordConsent stamps the user's consent the first time and returns the
// stored timestamp.
func (r *UserRepo) RecordConsent(ctx context.Context, id uint64, at time.Time) (time.Time, error) {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET consent_at=? WHERE id=? AND consent_at IS NULL", at, id); err != nil {
		return time.Time{}, err
	}
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return time.Time{}, notFound(err)
	}
	if u.ConsentAt == nil {
		return time.Time{}, sql.ErrNoRows
	}
	return *u.ConsentAt, nil
}
