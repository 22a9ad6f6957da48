package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountsvc/internal/common"
	"accountsvc/internal/domain/model"
	"accountsvc/internal/domain/repository"
)

const (
	insertQuery       = `INSERT INTO users (id, username, hashed_password, first_name, last_name, email) VALUES ($1, $2, $3, $4, $5, $6)`
	findByUsernameQry = `SELECT id, username, hashed_password, first_name, last_name, email, street, city, state, postal_code, logged_in, created_at, updated_at FROM users WHERE username = $1`
	findByIDQry       = `SELECT id, username, hashed_password, first_name, last_name, email, street, city, state, postal_code, logged_in, created_at, updated_at FROM users WHERE id = $1`
	setLoggedInQry    = `UPDATE users SET logged_in = $2, updated_at = now() WHERE id = $1`
	sessionStateQry   = `SELECT logged_in FROM users WHERE username = $1`
	updateWithPwQry   = `UPDATE users SET username = $2, hashed_password = $3, first_name = $4, last_name = $5, email = $6, street = $7, city = $8, state = $9, postal_code = $10, updated_at = now() WHERE id = $1`
	updateNoPwQry     = `UPDATE users SET username = $2, first_name = $3, last_name = $4, email = $5, street = $6, city = $7, state = $8, postal_code = $9, updated_at = now() WHERE id = $1`
	deleteQry         = `DELETE FROM users WHERE id = $1 RETURNING username`
)

type testDependencies struct {
	repo    repository.UserRepository
	mock    sqlmock.Sqlmock
	cleanup func()
}

func setupTest(t *testing.T) *testDependencies {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Error mocking DB")

	return &testDependencies{
		repo: repository.NewPgUserRepository(db),
		mock: mock,
		cleanup: func() {
			assert.NoError(t, mock.ExpectationsWereMet(), "Expectations were not met")
			db.Close()
		},
	}
}

func userRow(mock sqlmock.Sqlmock, user model.User) *sqlmock.Rows {
	return mock.NewRows([]string{
		"id", "username", "hashed_password", "first_name", "last_name", "email",
		"street", "city", "state", "postal_code", "logged_in", "created_at", "updated_at",
	}).AddRow(
		user.ID, user.Username, user.HashedPassword, user.FirstName, user.LastName, user.Email,
		user.Street, user.City, user.State, user.PostalCode, user.LoggedIn, user.CreatedAt, user.UpdatedAt,
	)
}

func TestCreate(t *testing.T) {
	t.Parallel()

	user := &model.User{
		ID: "id-1", Username: "alice", HashedPassword: "$2a$10$hash",
		FirstName: "A", LastName: "L", Email: "a@x.com",
	}

	testCases := []struct {
		name          string
		mockSetup     func(sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name: "Success",
			mockSetup: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertQuery)).
					WithArgs(user.ID, user.Username, user.HashedPassword, user.FirstName, user.LastName, user.Email).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "Duplicate username maps to conflict",
			mockSetup: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertQuery)).
					WithArgs(user.ID, user.Username, user.HashedPassword, user.FirstName, user.LastName, user.Email).
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			expectedError: common.ErrConflict,
		},
		{
			name: "Connectivity failure stays generic",
			mockSetup: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertQuery)).
					WithArgs(user.ID, user.Username, user.HashedPassword, user.FirstName, user.LastName, user.Email).
					WillReturnError(errors.New("connection reset"))
			},
			expectedError: errors.New("connection reset"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			deps := setupTest(t)
			defer deps.cleanup()
			tc.mockSetup(deps.mock)

			err := deps.repo.Create(context.Background(), user)

			if tc.expectedError == nil {
				assert.NoError(t, err)
			} else if errors.Is(tc.expectedError, common.ErrConflict) {
				assert.ErrorIs(t, err, common.ErrConflict)
			} else {
				require.Error(t, err)
				assert.NotErrorIs(t, err, common.ErrConflict)
			}
		})
	}
}

func TestFindByUsername(t *testing.T) {
	t.Parallel()

	t.Run("Found", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		want := model.User{
			ID: "id-1", Username: "alice", HashedPassword: "$2a$10$hash",
			FirstName: "A", LastName: "L", Email: "a@x.com",
			LoggedIn: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}
		deps.mock.ExpectQuery(regexp.QuoteMeta(findByUsernameQry)).
			WithArgs("alice").
			WillReturnRows(userRow(deps.mock, want))

		got, err := deps.repo.FindByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.HashedPassword, got.HashedPassword)
		assert.True(t, got.LoggedIn)
	})

	t.Run("No rows maps to not found", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		deps.mock.ExpectQuery(regexp.QuoteMeta(findByUsernameQry)).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := deps.repo.FindByUsername(context.Background(), "ghost")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestFindByID(t *testing.T) {
	t.Parallel()

	t.Run("No rows maps to not found", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		deps.mock.ExpectQuery(regexp.QuoteMeta(findByIDQry)).
			WithArgs("missing-id").
			WillReturnError(sql.ErrNoRows)

		_, err := deps.repo.FindByID(context.Background(), "missing-id")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestSetLoggedIn(t *testing.T) {
	t.Parallel()

	t.Run("Zero rows affected still succeeds", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		deps.mock.ExpectExec(regexp.QuoteMeta(setLoggedInQry)).
			WithArgs("gone-id", false).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, deps.repo.SetLoggedIn(context.Background(), "gone-id", false))
	})

	t.Run("Exec failure propagates", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		deps.mock.ExpectExec(regexp.QuoteMeta(setLoggedInQry)).
			WithArgs("id-1", true).
			WillReturnError(errors.New("db down"))

		assert.Error(t, deps.repo.SetLoggedIn(context.Background(), "id-1", true))
	})
}

func TestSessionState(t *testing.T) {
	t.Parallel()

	t.Run("Returns stored flag", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		deps.mock.ExpectQuery(regexp.QuoteMeta(sessionStateQry)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"logged_in"}).AddRow(true))

		loggedIn, err := deps.repo.SessionState(context.Background(), "alice")
		require.NoError(t, err)
		assert.True(t, loggedIn)
	})

	t.Run("Unknown username maps to not found", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		deps.mock.ExpectQuery(regexp.QuoteMeta(sessionStateQry)).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		_, err := deps.repo.SessionState(context.Background(), "ghost")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	user := &model.User{
		ID: "id-1", Username: "alice",
		FirstName: "A", LastName: "L", Email: "a@x.com",
		Street: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701",
	}

	t.Run("Without password leaves hash column untouched", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		deps.mock.ExpectExec(regexp.QuoteMeta(updateNoPwQry)).
			WithArgs(user.ID, user.Username, user.FirstName, user.LastName, user.Email,
				user.Street, user.City, user.State, user.PostalCode).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, deps.repo.UpdateProfile(context.Background(), user, ""))
	})

	t.Run("With password writes the new hash", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		deps.mock.ExpectExec(regexp.QuoteMeta(updateWithPwQry)).
			WithArgs(user.ID, user.Username, "$2a$10$newhash", user.FirstName, user.LastName, user.Email,
				user.Street, user.City, user.State, user.PostalCode).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, deps.repo.UpdateProfile(context.Background(), user, "$2a$10$newhash"))
	})

	t.Run("Zero rows affected maps to not found", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		deps.mock.ExpectExec(regexp.QuoteMeta(updateNoPwQry)).
			WithArgs(user.ID, user.Username, user.FirstName, user.LastName, user.Email,
				user.Street, user.City, user.State, user.PostalCode).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := deps.repo.UpdateProfile(context.Background(), user, "")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	t.Run("Reports deleted username", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		deps.mock.ExpectQuery(regexp.QuoteMeta(deleteQry)).
			WithArgs("id-1").
			WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("alice"))

		username, err := deps.repo.Delete(context.Background(), "id-1")
		require.NoError(t, err)
		assert.Equal(t, "alice", username)
	})

	t.Run("Absent row still acks", func(t *testing.T) {
		deps := setupTest(t)
		defer deps.cleanup()

		deps.mock.ExpectQuery(regexp.QuoteMeta(deleteQry)).
			WithArgs("ghost-id").
			WillReturnError(sql.ErrNoRows)

		username, err := deps.repo.Delete(context.Background(), "ghost-id")
		assert.NoError(t, err)
		assert.Empty(t, username)
	})
}
