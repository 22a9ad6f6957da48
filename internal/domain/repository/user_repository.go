package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"accountsvc/internal/common"
	"accountsvc/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	SetLoggedIn(ctx context.Context, id string, loggedIn bool) error
	SessionState(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, user *model.User, hashedPassword string) error
	Delete(ctx context.Context, id string) (string, error)
}

const userColumns = `id, username, hashed_password, first_name, last_name, email, street, city, state, postal_code, logged_in, created_at, updated_at`

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, hashed_password, first_name, last_name, email) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.HashedPassword, user.FirstName, user.LastName, user.Email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given username already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username), "FindByUsername")
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "FindByID")
}

func (r *pgUserRepository) scanOne(row *sql.Row, op string) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.HashedPassword,
		&user.FirstName, &user.LastName, &user.Email,
		&user.Street, &user.City, &user.State, &user.PostalCode,
		&user.LoggedIn, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	return user, nil
}

// SetLoggedIn flips the persisted session flag. A missing row is not an
// error: the update simply affects zero rows.
func (r *pgUserRepository) SetLoggedIn(ctx context.Context, id string, loggedIn bool) error {
	query := `UPDATE users SET logged_in = $2, updated_at = now() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, loggedIn); err != nil {
		return fmt.Errorf("pgUserRepository.SetLoggedIn: %w", err)
	}
	return nil
}

func (r *pgUserRepository) SessionState(ctx context.Context, username string) (bool, error) {
	query := `SELECT logged_in FROM users WHERE username = $1`
	var loggedIn bool
	err := r.db.QueryRowContext(ctx, query, username).Scan(&loggedIn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrNotFound
		}
		return false, fmt.Errorf("pgUserRepository.SessionState: %w", err)
	}
	return loggedIn, nil
}

// UpdateProfile writes username and all profile fields unconditionally; the
// password column is touched only when hashedPassword is non-empty. Zero rows
// affected means the user does not exist.
func (r *pgUserRepository) UpdateProfile(ctx context.Context, user *model.User, hashedPassword string) error {
	var (
		result sql.Result
		err    error
	)
	if hashedPassword != "" {
		query := `UPDATE users SET username = $2, hashed_password = $3, first_name = $4, last_name = $5, email = $6, street = $7, city = $8, state = $9, postal_code = $10, updated_at = now() WHERE id = $1`
		result, err = r.db.ExecContext(ctx, query,
			user.ID, user.Username, hashedPassword,
			user.FirstName, user.LastName, user.Email,
			user.Street, user.City, user.State, user.PostalCode)
	} else {
		query := `UPDATE users SET username = $2, first_name = $3, last_name = $4, email = $5, street = $6, city = $7, state = $8, postal_code = $9, updated_at = now() WHERE id = $1`
		result, err = r.db.ExecContext(ctx, query,
			user.ID, user.Username,
			user.FirstName, user.LastName, user.Email,
			user.Street, user.City, user.State, user.PostalCode)
	}
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateProfile: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateProfile: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Delete removes the row and reports the username it carried, so callers can
// evict derived state. Deleting an absent user is not an error; the returned
// username is empty in that case.
func (r *pgUserRepository) Delete(ctx context.Context, id string) (string, error) {
	query := `DELETE FROM users WHERE id = $1 RETURNING username`
	var username string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("pgUserRepository.Delete: %w", err)
	}
	return username, nil
}
