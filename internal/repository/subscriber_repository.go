package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/pushleopard-backend/internal/model"
)

// SubscriberRepositoryInterface defines methods used by services
type SubscriberRepositoryInterface interface {
	Create(ctx context.Context, s *model.Subscriber) error
	ListByDomain(ctx context.Context, domainName string) ([]model.Subscriber, error)
	DeleteByToken(ctx context.Context, token string) (int64, error)
	Search(ctx context.Context, domainName, query string, offset, limit int) ([]model.Subscriber, int, error)
	Count(ctx context.Context) (int, error)
}

// SubscriberRepository is the concrete implementation
type SubscriberRepository struct {
	DB *sql.DB
}

// Create inserts a subscriber. Duplicate tokens are allowed.
func (r *SubscriberRepository) Create(ctx context.Context, s *model.Subscriber) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.SubscribedAt.IsZero() {
		s.SubscribedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO subscribers (id, token, domain_name, subscribed_at, user_agent)
        VALUES ($1, $2, $3, $4, $5)
    `
	if _, err := r.DB.ExecContext(ctx, query, s.ID, s.Token, s.DomainName, s.SubscribedAt, s.UserAgent); err != nil {
		return fmt.Errorf("inserting subscriber: %w", err)
	}
	return nil
}

// ListByDomain returns every subscriber of a domain in insertion order.
func (r *SubscriberRepository) ListByDomain(ctx context.Context, domainName string) ([]model.Subscriber, error) {
	query := `
        SELECT id, token, domain_name, subscribed_at, user_agent
        FROM subscribers
        WHERE domain_name = $1
        ORDER BY seq
    `
	rows, err := r.DB.QueryContext(ctx, query, domainName)
	if err != nil {
		return nil, fmt.Errorf("querying subscribers: %w", err)
	}
	defer rows.Close()

	subscribers := []model.Subscriber{}
	for rows.Next() {
		var s model.Subscriber
		if err := rows.Scan(&s.ID, &s.Token, &s.DomainName, &s.SubscribedAt, &s.UserAgent); err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		subscribers = append(subscribers, s)
	}
	return subscribers, rows.Err()
}

// DeleteByToken removes every subscriber carrying token and reports how many went.
func (r *SubscriberRepository) DeleteByToken(ctx context.Context, token string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM subscribers WHERE token = $1`, token)
	if err != nil {
		return 0, fmt.Errorf("deleting subscriber by token: %w", err)
	}
	return res.RowsAffected()
}

// Search pages through subscribers, optionally scoped to a domain. query
// matches a token prefix or a user-agent substring.
func (r *SubscriberRepository) Search(ctx context.Context, domainName, query string, offset, limit int) ([]model.Subscriber, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if domainName != "" {
		where += fmt.Sprintf(" AND domain_name=$%d", argPos)
		args = append(args, domainName)
		argPos++
	}
	if q := strings.TrimSpace(query); q != "" {
		where += fmt.Sprintf(" AND (token LIKE $%d OR user_agent ILIKE $%d)", argPos, argPos+1)
		args = append(args, escapeLike(q)+"%", "%"+escapeLike(q)+"%")
		argPos += 2
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting subscribers: %w", err)
	}

	sqlQuery := `SELECT id, token, domain_name, subscribed_at, user_agent FROM subscribers` + where +
		fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying subscribers: %w", err)
	}
	defer rows.Close()

	subscribers := []model.Subscriber{}
	for rows.Next() {
		var s model.Subscriber
		if err := rows.Scan(&s.ID, &s.Token, &s.DomainName, &s.SubscribedAt, &s.UserAgent); err != nil {
			return nil, 0, fmt.Errorf("scanning subscriber: %w", err)
		}
		subscribers = append(subscribers, s)
	}
	return subscribers, total, rows.Err()
}

func (r *SubscriberRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n)
	return n, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ SubscriberRepositoryInterface = (*SubscriberRepository)(nil)
