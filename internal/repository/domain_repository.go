package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
	"github.com/unclebandit/pushleopard-backend/internal/model"
)

type DomainRepositoryInterface interface {
	Create(ctx context.Context, d *model.Domain) error
	GetByID(ctx context.Context, id string) (*model.Domain, error)
	List(ctx context.Context) ([]model.Domain, error)
	UpdateStatus(ctx context.Context, id, status string) (*model.Domain, error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type DomainRepository struct {
	DB *sql.DB
}

const uniqueViolation = "23505"

// Create inserts a new domain and fills in its generated fields.
func (r *DomainRepository) Create(ctx context.Context, d *model.Domain) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.VerificationToken == "" {
		d.VerificationToken = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = model.DomainPending
	}
	d.CreatedAt = time.Now().UTC()

	var cfg interface{}
	if len(d.ProviderConfig) > 0 {
		cfg = string(d.ProviderConfig)
	}

	query := `
        INSERT INTO domains (id, name, status, verification_token, provider_config, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.DB.ExecContext(ctx, query, d.ID, d.Name, d.Status, d.VerificationToken, cfg, d.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return appErrors.ErrDomainExists
		}
		return fmt.Errorf("inserting domain: %w", err)
	}
	return nil
}

func (r *DomainRepository) GetByID(ctx context.Context, id string) (*model.Domain, error) {
	query := `
        SELECT id, name, status, verification_token, provider_config, created_at, updated_at, verified_at
        FROM domains WHERE id=$1
    `
	d, err := scanDomain(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewDomainNotFound(id)
		}
		return nil, fmt.Errorf("querying domain: %w", err)
	}
	return d, nil
}

func (r *DomainRepository) List(ctx context.Context) ([]model.Domain, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT id, name, status, verification_token, provider_config, created_at, updated_at, verified_at
        FROM domains ORDER BY created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("querying domains: %w", err)
	}
	defer rows.Close()

	domains := []model.Domain{}
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning domain: %w", err)
		}
		domains = append(domains, *d)
	}
	return domains, rows.Err()
}

// UpdateStatus sets the verification status; verified_at is stamped when verified.
func (r *DomainRepository) UpdateStatus(ctx context.Context, id, status string) (*model.Domain, error) {
	query := `
        UPDATE domains
        SET status=$1,
            updated_at=NOW(),
            verified_at=CASE WHEN $1 = 'verified' THEN NOW() ELSE verified_at END
        WHERE id=$2
        RETURNING id, name, status, verification_token, provider_config, created_at, updated_at, verified_at
    `
	d, err := scanDomain(r.DB.QueryRowContext(ctx, query, status, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewDomainNotFound(id)
		}
		return nil, fmt.Errorf("updating domain: %w", err)
	}
	return d, nil
}

func (r *DomainRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM domains WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("deleting domain: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewDomainNotFound(id)
	}
	return nil
}

func (r *DomainRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM domains GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanDomain(row interface{ Scan(...any) error }) (*model.Domain, error) {
	var d model.Domain
	var cfg []byte
	if err := row.Scan(&d.ID, &d.Name, &d.Status, &d.VerificationToken, &cfg, &d.CreatedAt, &d.UpdatedAt, &d.VerifiedAt); err != nil {
		return nil, err
	}
	if len(cfg) > 0 {
		d.ProviderConfig = cfg
	}
	return &d, nil
}

var _ DomainRepositoryInterface = (*DomainRepository)(nil)
