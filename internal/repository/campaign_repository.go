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

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, offset, limit int, domainName, status string) ([]*model.Campaign, int, error)

	// Send lifecycle
	ClaimForSending(ctx context.Context, id string) (bool, error)
	CompleteSend(ctx context.Context, id, status string, outcome model.SendOutcome, at time.Time) error
	MarkFailed(ctx context.Context, id string, at time.Time) error

	// Stats
	CountByStatus(ctx context.Context) (map[string]int, error)
	DeliveryTotals(ctx context.Context) (success int, failure int, err error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, title, body, image_url, target_url, domain_id, domain_name, status,
        created_at, updated_at, processed_at, recipients, success_count, failure_count`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.Title, &c.Body, &c.ImageURL, &c.TargetURL, &c.DomainID, &c.DomainName, &c.Status,
		&c.CreatedAt, &c.UpdatedAt, &c.ProcessedAt, &c.Recipients, &c.SuccessCount, &c.FailureCount,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	query := `
        INSERT INTO campaigns (id, title, body, image_url, target_url, domain_id, domain_name, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.DB.ExecContext(ctx, query,
		c.ID, c.Title, c.Body, c.ImageURL, c.TargetURL, c.DomainID, c.DomainName, c.Status, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, fmt.Errorf("querying campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, domainName, status string) ([]*model.Campaign, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if domainName != "" {
		where += fmt.Sprintf(" AND domain_name=$%d", argPos)
		args = append(args, domainName)
		argPos++
	}
	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting campaigns: %w", err)
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ====================== Send lifecycle ======================

// ClaimForSending moves the campaign to sending only if it is currently
// claimable. It returns false when another status holds the row or the row
// does not exist.
func (r *CampaignRepository) ClaimForSending(ctx context.Context, id string) (bool, error) {
	query := `
        UPDATE campaigns SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status = ANY($3)
    `
	res, err := r.DB.ExecContext(ctx, query, model.StatusSending, id, pq.Array(model.ClaimableStatuses))
	if err != nil {
		return false, fmt.Errorf("claiming campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *CampaignRepository) CompleteSend(ctx context.Context, id, status string, outcome model.SendOutcome, at time.Time) error {
	query := `
        UPDATE campaigns
        SET status=$1, recipients=$2, success_count=$3, failure_count=$4, processed_at=$5, updated_at=$5
        WHERE id=$6
    `
	res, err := r.DB.ExecContext(ctx, query, status, outcome.Recipients, outcome.SuccessCount, outcome.FailureCount, at, id)
	if err != nil {
		return fmt.Errorf("completing campaign: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewCampaignNotFound(id)
	}
	return nil
}

// MarkFailed leaves any earlier counters untouched.
func (r *CampaignRepository) MarkFailed(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE campaigns SET status=$1, processed_at=$2, updated_at=$2 WHERE id=$3`
	_, err := r.DB.ExecContext(ctx, query, model.StatusFailedProcessing, at, id)
	if err != nil {
		return fmt.Errorf("marking campaign failed: %w", err)
	}
	return nil
}

// ReleaseStaleClaims fails campaigns that have been sending since before
// cutoff. The process that claimed them is gone.
func (r *CampaignRepository) ReleaseStaleClaims(ctx context.Context, cutoff, at time.Time) (int64, error) {
	query := `
        UPDATE campaigns SET status=$1, processed_at=$2, updated_at=$2
        WHERE status=$3 AND updated_at < $4
    `
	res, err := r.DB.ExecContext(ctx, query, model.StatusFailedProcessing, at, model.StatusSending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("releasing stale claims: %w", err)
	}
	return res.RowsAffected()
}

// ====================== Stats ======================

func (r *CampaignRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM campaigns GROUP BY status`)
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

func (r *CampaignRepository) DeliveryTotals(ctx context.Context) (int, int, error) {
	var success, failure int
	err := r.DB.QueryRowContext(ctx, `
        SELECT COALESCE(SUM(success_count), 0), COALESCE(SUM(failure_count), 0)
        FROM campaigns WHERE status=$1
    `, model.StatusProcessed).Scan(&success, &failure)
	return success, failure, err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
