package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"city_parking/internal/domain"
	"city_parking/internal/repository"
)

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) repository.UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (username, email, password_hash, full_name, phone_number, is_active, registration_date)
	           VALUES ($1, $2, $3, $4, $5, TRUE, CURRENT_TIMESTAMP)
	           RETURNING id, is_active, registration_date`
	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.FullName, user.PhoneNumber,
	).Scan(&user.ID, &user.IsActive, &user.RegistrationDate)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return nil, fmt.Errorf("%w: username '%s' is taken", repository.ErrDuplicateEntry, user.Username)
		}
		if isUniqueViolation(err, "users_email_key") {
			return nil, fmt.Errorf("%w: email '%s' is taken", repository.ErrDuplicateEntry, user.Email)
		}
		if isUniqueViolation(err, "") {
			return nil, fmt.Errorf("%w: user conflicts with an existing account", repository.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("UserRepository.Create: %w", err)
	}
	user.RegistrationDate = user.RegistrationDate.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, `WHERE username = $1`, username)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *pgUserRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	user := &domain.User{}
	query := `SELECT id, username, email, password_hash, full_name, phone_number, is_active, registration_date, last_login
	           FROM users ` + where
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.FullName,
		&user.PhoneNumber, &user.IsActive, &user.RegistrationDate, &user.LastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.findOne: %w", err)
	}
	user.RegistrationDate = user.RegistrationDate.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	query := `UPDATE users SET last_login = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("UserRepository.UpdateLastLogin: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("UserRepository.UpdateLastLogin (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
