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

type pgAdminRepository struct {
	db *sql.DB
}

func NewPgAdminRepository(db *sql.DB) repository.AdminRepository {
	return &pgAdminRepository{db: db}
}

func (r *pgAdminRepository) Create(ctx context.Context, admin *domain.Admin) (*domain.Admin, error) {
	query := `INSERT INTO admins (username, email, password_hash, full_name, is_super_admin, is_active, created_date)
	           VALUES ($1, $2, $3, $4, $5, TRUE, CURRENT_TIMESTAMP)
	           RETURNING id, is_active, created_date`
	err := r.db.QueryRowContext(ctx, query,
		admin.Username, admin.Email, admin.PasswordHash, admin.FullName, admin.IsSuperAdmin,
	).Scan(&admin.ID, &admin.IsActive, &admin.CreatedDate)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, fmt.Errorf("%w: admin '%s' already exists", repository.ErrDuplicateEntry, admin.Username)
		}
		return nil, fmt.Errorf("AdminRepository.Create: %w", err)
	}
	admin.CreatedDate = admin.CreatedDate.In(time.UTC)
	return admin, nil
}

func (r *pgAdminRepository) FindByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	return r.findOne(ctx, `WHERE username = $1`, username)
}

func (r *pgAdminRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.Admin, error) {
	admin := &domain.Admin{}
	query := `SELECT id, username, email, password_hash, full_name, is_super_admin, is_active, created_date, last_login
	           FROM admins ` + where
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&admin.ID, &admin.Username, &admin.Email, &admin.PasswordHash, &admin.FullName,
		&admin.IsSuperAdmin, &admin.IsActive, &admin.CreatedDate, &admin.LastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("AdminRepository.findOne: %w", err)
	}
	admin.CreatedDate = admin.CreatedDate.In(time.UTC)
	return admin, nil
}

func (r *pgAdminRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	query := `UPDATE admins SET last_login = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("AdminRepository.UpdateLastLogin: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("AdminRepository.UpdateLastLogin (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
