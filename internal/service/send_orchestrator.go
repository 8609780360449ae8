// internal/service/send_orchestrator.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
	"github.com/unclebandit/pushleopard-backend/internal/model"
	"github.com/unclebandit/pushleopard-backend/internal/push"
)

// CampaignSendStore is the part of the campaign store the send pipeline uses.
type CampaignSendStore interface {
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	ClaimForSending(ctx context.Context, id string) (bool, error)
	CompleteSend(ctx context.Context, id, status string, outcome model.SendOutcome, at time.Time) error
	MarkFailed(ctx context.Context, id string, at time.Time) error
}

// SubscriberTokenStore resolves and prunes subscriber tokens.
type SubscriberTokenStore interface {
	ListByDomain(ctx context.Context, domainName string) ([]model.Subscriber, error)
	DeleteByToken(ctx context.Context, token string) (int64, error)
}

// EventPublisher receives progress events; implementations must not block.
type EventPublisher interface {
	Publish(event model.CampaignEvent)
}

// CampaignSender runs a campaign send to completion.
type CampaignSender interface {
	Send(ctx context.Context, campaignID string) (*SendSummary, error)
}

type SendOptions struct {
	BatchSize    int
	Concurrency  int
	Timeout      time.Duration
	BatchTimeout time.Duration
	DedupeTokens bool
}

// SendSummary is returned to the caller that triggered a send.
type SendSummary struct {
	CampaignID       string `json:"campaignId"`
	Status           string `json:"status"`
	TotalSubscribers int    `json:"totalSubscribers"`
	SuccessCount     int    `json:"successCount"`
	FailureCount     int    `json:"failureCount"`
	Pruned           int64  `json:"pruned"`
}

// finalizeTimeout bounds pruning and the terminal status write, which run
// even after the send context expired.
const finalizeTimeout = 30 * time.Second

// SendOrchestrator owns the campaign send lifecycle:
// claim, resolve, batch, dispatch, prune, reconcile.
type SendOrchestrator struct {
	campaigns   CampaignSendStore
	subscribers SubscriberTokenStore
	gateway     push.Gateway
	events      EventPublisher
	pool        *BatchWorkerPool
	opts        SendOptions
	logger      *slog.Logger
	now         func() time.Time
}

// NewSendOrchestrator checks every collaborator up front so a send never
// starts against a missing store or gateway.
func NewSendOrchestrator(campaigns CampaignSendStore, subscribers SubscriberTokenStore, gateway push.Gateway, opts SendOptions, logger *slog.Logger) (*SendOrchestrator, error) {
	switch {
	case campaigns == nil:
		return nil, appErrors.NewConfigurationError("campaign store", nil)
	case subscribers == nil:
		return nil, appErrors.NewConfigurationError("subscriber store", nil)
	case gateway == nil:
		return nil, appErrors.NewConfigurationError("push gateway", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchSize < 1 || opts.BatchSize > push.MaxBatchSize {
		opts.BatchSize = push.MaxBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	return &SendOrchestrator{
		campaigns:   campaigns,
		subscribers: subscribers,
		gateway:     gateway,
		pool:        NewBatchWorkerPool(opts.Concurrency),
		opts:        opts,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithEvents attaches a progress event publisher.
func (o *SendOrchestrator) WithEvents(p EventPublisher) *SendOrchestrator {
	o.events = p
	return o
}

// Send claims the campaign and runs the pipeline. Claim refusals and unknown
// ids return before anything is written. Once claimed, the campaign always
// ends in a terminal status, best effort.
func (o *SendOrchestrator) Send(ctx context.Context, campaignID string) (*SendSummary, error) {
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, appErrors.NewValidationError("campaignId", "is required")
	}

	claimed, err := o.campaigns.ClaimForSending(ctx, campaignID)
	if err != nil {
		return nil, &appErrors.SendFailedError{CampaignID: campaignID, Cause: err}
	}
	if !claimed {
		current, err := o.campaigns.GetByID(ctx, campaignID)
		if err != nil {
			return nil, err
		}
		return nil, &appErrors.SendConflictError{CampaignID: campaignID, Status: current.Status}
	}

	log := o.logger.With("campaign_id", campaignID)
	log.Info("campaign claimed for sending")
	o.publish(model.CampaignEvent{Type: model.EventCampaignSending, CampaignID: campaignID, Status: model.StatusSending})

	summary, dispatched, err := o.process(ctx, campaignID, log)
	if err != nil {
		log.Error("campaign send failed", "error", err)
		o.markFailed(ctx, campaignID, log)
		o.publish(model.CampaignEvent{
			Type:       model.EventCampaignFailed,
			CampaignID: campaignID,
			Status:     model.StatusFailedProcessing,
			Error:      err.Error(),
		})
		if appErrors.IsNotFound(err) {
			return nil, err
		}
		return nil, &appErrors.SendFailedError{CampaignID: campaignID, Cause: err, Dispatched: dispatched}
	}

	o.publish(model.CampaignEvent{
		Type:         model.EventCampaignCompleted,
		CampaignID:   campaignID,
		Status:       summary.Status,
		Recipients:   summary.TotalSubscribers,
		SuccessCount: summary.SuccessCount,
		FailureCount: summary.FailureCount,
	})
	return summary, nil
}

// process reports whether any batch was handed to the gateway, even when it
// fails afterwards.
func (o *SendOrchestrator) process(ctx context.Context, campaignID string, log *slog.Logger) (*SendSummary, bool, error) {
	sendCtx := ctx
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	campaign, err := o.campaigns.GetByID(sendCtx, campaignID)
	if err != nil {
		return nil, false, fmt.Errorf("reloading campaign: %w", err)
	}

	subscribers, err := o.subscribers.ListByDomain(sendCtx, campaign.DomainName)
	if err != nil {
		return nil, false, fmt.Errorf("resolving subscribers for %s: %w", campaign.DomainName, err)
	}
	if len(subscribers) == 0 {
		log.Info("no subscribers for domain", "domain", campaign.DomainName)
		summary, err := o.complete(ctx, campaignID, model.StatusProcessedNoSubscribers, model.SendOutcome{}, 0)
		return summary, false, err
	}

	tokens := collectTokens(subscribers, o.opts.DedupeTokens)
	if len(tokens) == 0 {
		log.Info("no valid tokens for domain", "domain", campaign.DomainName, "subscribers", len(subscribers))
		summary, err := o.complete(ctx, campaignID, model.StatusProcessedNoValidTokens, model.SendOutcome{}, 0)
		return summary, false, err
	}

	batches := chunkTokens(tokens, o.opts.BatchSize)
	log.Info("dispatching campaign", "recipients", len(tokens), "batches", len(batches))

	tally := o.dispatch(sendCtx, campaign, batches, log)

	finalCtx, cancel := o.finalizeContext(ctx)
	defer cancel()

	pruned := o.prune(finalCtx, tally.invalid, log)

	outcome := model.SendOutcome{
		Recipients:   len(tokens),
		SuccessCount: tally.success,
		FailureCount: tally.failure,
	}
	summary, err := o.complete(finalCtx, campaignID, model.StatusProcessed, outcome, pruned)
	return summary, true, err
}

// sendTally aggregates batch outcomes across workers.
type sendTally struct {
	mu      sync.Mutex
	success int
	failure int
	invalid []string
	seen    map[string]struct{}
}

func (t *sendTally) addBatchFailure(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failure += n
}

func (t *sendTally) addResult(tokens []string, res *push.BatchResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.success += res.SuccessCount
	t.failure += res.FailureCount
	for i, r := range res.Responses {
		if r.Success || !push.IsPermanentTokenFailure(r.Reason) {
			continue
		}
		token := r.Token
		if token == "" && i < len(tokens) {
			token = tokens[i]
		}
		if token == "" {
			continue
		}
		if _, dup := t.seen[token]; dup {
			continue
		}
		t.seen[token] = struct{}{}
		t.invalid = append(t.invalid, token)
	}
}

func (t *sendTally) counts() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.success, t.failure
}

func (o *SendOrchestrator) dispatch(ctx context.Context, campaign *model.Campaign, batches [][]string, log *slog.Logger) *sendTally {
	tally := &sendTally{seen: map[string]struct{}{}}
	notification := push.Notification{
		Title:    campaign.Title,
		Body:     campaign.Body,
		ImageURL: notificationImage(campaign),
	}
	link := clickLink(campaign)

	o.pool.Run(ctx, batches, func(ctx context.Context, job batchJob) {
		batchCtx := ctx
		if o.opts.BatchTimeout > 0 {
			var cancel context.CancelFunc
			batchCtx, cancel = context.WithTimeout(ctx, o.opts.BatchTimeout)
			defer cancel()
		}

		res, err := o.gateway.SendMulticast(batchCtx, &push.MulticastMessage{
			Tokens:       job.Tokens,
			Notification: notification,
			Link:         link,
		})
		if err == nil && res == nil {
			err = errors.New("gateway returned no result")
		}
		if err != nil {
			log.Warn("batch dispatch failed", "batch", job.Index, "token_count", len(job.Tokens), "error", err)
			tally.addBatchFailure(len(job.Tokens))
		} else {
			tally.addResult(job.Tokens, res)
			log.Debug("batch dispatched", "batch", job.Index, "success", res.SuccessCount, "failure", res.FailureCount)
		}

		success, failure := tally.counts()
		o.publish(model.CampaignEvent{
			Type:         model.EventCampaignBatch,
			CampaignID:   campaign.ID,
			Status:       model.StatusSending,
			Batch:        job.Index + 1,
			BatchCount:   len(batches),
			SuccessCount: success,
			FailureCount: failure,
		})
	})

	return tally
}

// prune deletes subscribers whose token was permanently rejected. Failures
// are logged and skipped.
func (o *SendOrchestrator) prune(ctx context.Context, tokens []string, log *slog.Logger) int64 {
	var pruned int64
	for _, token := range tokens {
		n, err := o.subscribers.DeleteByToken(ctx, token)
		if err != nil {
			log.Warn("failed to prune subscriber", "token_prefix", tokenPrefix(token), "error", err)
			continue
		}
		pruned += n
	}
	if len(tokens) > 0 {
		log.Info("pruned invalid tokens", "tokens", len(tokens), "subscribers_deleted", pruned)
	}
	return pruned
}

func (o *SendOrchestrator) complete(ctx context.Context, campaignID, status string, outcome model.SendOutcome, pruned int64) (*SendSummary, error) {
	if err := o.campaigns.CompleteSend(ctx, campaignID, status, outcome, o.now()); err != nil {
		return nil, fmt.Errorf("writing final status: %w", err)
	}
	o.logger.Info("campaign send completed",
		"campaign_id", campaignID,
		"status", status,
		"recipients", outcome.Recipients,
		"success", outcome.SuccessCount,
		"failure", outcome.FailureCount,
	)
	return &SendSummary{
		CampaignID:       campaignID,
		Status:           status,
		TotalSubscribers: outcome.Recipients,
		SuccessCount:     outcome.SuccessCount,
		FailureCount:     outcome.FailureCount,
		Pruned:           pruned,
	}, nil
}

// markFailed is best effort; its own failure is only logged.
func (o *SendOrchestrator) markFailed(ctx context.Context, campaignID string, log *slog.Logger) {
	finalCtx, cancel := o.finalizeContext(ctx)
	defer cancel()
	if err := o.campaigns.MarkFailed(finalCtx, campaignID, o.now()); err != nil {
		log.Error("failed to mark campaign as failed_processing", "error", err)
	}
}

func (o *SendOrchestrator) finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

func (o *SendOrchestrator) publish(event model.CampaignEvent) {
	if o.events == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = o.now()
	}
	o.events.Publish(event)
}

// collectTokens keeps subscribers with a non-empty token, in store order.
func collectTokens(subscribers []model.Subscriber, dedupe bool) []string {
	tokens := make([]string, 0, len(subscribers))
	seen := map[string]struct{}{}
	for _, s := range subscribers {
		token := s.Token
		if strings.TrimSpace(token) == "" {
			continue
		}
		if dedupe {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// clickLink falls back to the domain root when the stored target is not an
// https URL.
func clickLink(c *model.Campaign) string {
	if target := strings.TrimSpace(c.TargetURL); push.IsHTTPSURL(target) {
		return target
	}
	return "https://" + c.DomainName
}

func notificationImage(c *model.Campaign) string {
	if img := strings.TrimSpace(c.ImageURL); push.IsHTTPSURL(img) {
		return img
	}
	return ""
}

func tokenPrefix(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}

// UnavailableSender stands in for the orchestrator when a collaborator could
// not be initialized at startup.
type UnavailableSender struct {
	Component string
	Err       error
}

func (u UnavailableSender) Send(context.Context, string) (*SendSummary, error) {
	return nil, appErrors.NewConfigurationError(u.Component, u.Err)
}

// StaleClaimStore fails campaigns left in sending by a process that died.
type StaleClaimStore interface {
	ReleaseStaleClaims(ctx context.Context, cutoff, at time.Time) (int64, error)
}

// defaultStaleAge applies when sends have no overall timeout.
const defaultStaleAge = time.Hour

// StaleAge is how long a claim may stay in sending before it is abandoned:
// the send timeout plus the finalize window.
func (opts SendOptions) StaleAge() time.Duration {
	if opts.Timeout <= 0 {
		return defaultStaleAge
	}
	return opts.Timeout + finalizeTimeout
}

// RecoverStaleSends moves abandoned claims to failed_processing so they can
// be sent again.
func RecoverStaleSends(ctx context.Context, store StaleClaimStore, opts SendOptions, now time.Time, log *slog.Logger) (int64, error) {
	n, err := store.ReleaseStaleClaims(ctx, now.Add(-opts.StaleAge()), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Warn("released stale campaign claims", "count", n, "older_than", opts.StaleAge())
	}
	return n, nil
}
