// ABOUTME: User store methods for lobby members
// ABOUTME: Create, lookup, delete, and admin flag management on the user table

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const userColumns = `user_id, display_name, email, admin, rank, joindate`

// CreateUser inserts a new user.
// Returns ErrAlreadyExists if a user with the same ID is already stored.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	query := `INSERT INTO user (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

	joined := user.JoinedAt
	if joined.IsZero() {
		joined = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.DisplayName,
		user.Email,
		user.Admin,
		user.Rank,
		formatTime(joined),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID)
	return nil
}

// GetUser retrieves a user by ID.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM user WHERE user_id = ?`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByName retrieves the first user with the given display name.
// Returns ErrNotFound if no user has that name.
func (s *SQLiteStore) GetUserByName(ctx context.Context, displayName string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM user WHERE display_name = ? ORDER BY joindate LIMIT 1`
	return scanUser(s.db.QueryRowContext(ctx, query, displayName))
}

// DeleteUser removes a user.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user WHERE user_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	s.logger.Debug("deleted user", "id", id)
	return nil
}

// SetAdmin updates the admin flag of a user.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) SetAdmin(ctx context.Context, id string, admin bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE user SET admin = ? WHERE user_id = ?`, admin, id)
	if err != nil {
		return fmt.Errorf("updating admin flag: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	s.logger.Debug("set admin flag", "id", id, "admin", admin)
	return nil
}

// ListAdmins returns every user with the admin flag set.
func (s *SQLiteStore) ListAdmins(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM user WHERE admin = 1 ORDER BY user_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating admins: %w", err)
	}

	return users, nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var u User
	var email sql.NullString
	var joined string

	err := scanner.Scan(&u.ID, &u.DisplayName, &email, &u.Admin, &u.Rank, &joined)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	if email.Valid {
		u.Email = &email.String
	}

	u.JoinedAt, err = time.Parse(time.RFC3339, joined)
	if err != nil {
		return nil, fmt.Errorf("parsing joindate: %w", err)
	}

	return &u, nil
}
