package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/unclebandit/pushleopard-backend/internal/config"
	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
	"github.com/unclebandit/pushleopard-backend/internal/model"
	"github.com/unclebandit/pushleopard-backend/internal/push"
	"github.com/unclebandit/pushleopard-backend/internal/service"
)

type stubCampaigns struct {
	campaign model.Campaign
}

func (s *stubCampaigns) GetByID(context.Context, string) (*model.Campaign, error) {
	c := s.campaign
	return &c, nil
}

func (s *stubCampaigns) ClaimForSending(context.Context, string) (bool, error) {
	if s.campaign.Status != model.StatusDraft {
		return false, nil
	}
	s.campaign.Status = model.StatusSending
	return true, nil
}

func (s *stubCampaigns) CompleteSend(_ context.Context, _ string, status string, _ model.SendOutcome, _ time.Time) error {
	s.campaign.Status = status
	return nil
}

func (s *stubCampaigns) MarkFailed(context.Context, string, time.Time) error {
	s.campaign.Status = model.StatusFailedProcessing
	return nil
}

type stubSubscribers struct{}

func (stubSubscribers) ListByDomain(context.Context, string) ([]model.Subscriber, error) {
	return []model.Subscriber{{Token: "a"}, {Token: "b"}}, nil
}

func (stubSubscribers) DeleteByToken(context.Context, string) (int64, error) { return 0, nil }

type downGateway struct{ calls int }

func (g *downGateway) SendMulticast(context.Context, *push.MulticastMessage) (*push.BatchResult, error) {
	g.calls++
	return nil, errors.New("provider down")
}

type events struct{ n int }

func (e *events) Publish(model.CampaignEvent) { e.n++ }

func testConfig() *config.Config {
	return &config.Config{
		Send:    config.SendConfig{BatchSize: 1, BatchConcurrency: 1},
		Breaker: config.BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute},
	}
}

func TestNewOrchestrator_BreakerCountsOpenBatchesAsFailures(t *testing.T) {
	campaigns := &stubCampaigns{campaign: model.Campaign{ID: "c1", DomainName: "shop.example", Status: model.StatusDraft}}
	gw := &downGateway{}
	ev := &events{}
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))

	sender := newOrchestrator(testConfig(), campaigns, stubSubscribers{}, gw, ev, lg)

	summary, err := sender.Send(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	// first batch trips the breaker, the second fails fast without a call
	if gw.calls != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.calls)
	}
	if summary.FailureCount != 2 || summary.SuccessCount != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if campaigns.campaign.Status != model.StatusProcessed {
		t.Errorf("status = %s, want processed", campaigns.campaign.Status)
	}
	if ev.n == 0 {
		t.Error("events should be published")
	}
}

func TestNewOrchestrator_NilStoreIsUnavailable(t *testing.T) {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := newOrchestrator(testConfig(), nil, stubSubscribers{}, &downGateway{}, nil, lg)

	if _, ok := sender.(service.UnavailableSender); !ok {
		t.Fatalf("sender = %T, want UnavailableSender", sender)
	}
	if _, err := sender.Send(context.Background(), "c1"); !errors.Is(err, appErrors.ErrConfiguration) {
		t.Errorf("err = %v, want configuration error", err)
	}
}

type staleClaims struct {
	cutoff time.Time
	n      int64
	err    error
}

func (s *staleClaims) ReleaseStaleClaims(_ context.Context, cutoff, _ time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.n, s.err
}

func TestRecoverStaleSends_UsesSendTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Send.Timeout = 10 * time.Minute
	store := &staleClaims{n: 2}
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))

	before := time.Now().UTC()
	RecoverStaleSends(context.Background(), cfg, store, lg)

	age := before.Sub(store.cutoff)
	if age < 10*time.Minute || age > 11*time.Minute {
		t.Errorf("cutoff age = %v, want send timeout plus finalize window", age)
	}
}

func TestRecoverStaleSends_ErrorDoesNotPanic(t *testing.T) {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	RecoverStaleSends(context.Background(), testConfig(), &staleClaims{err: errors.New("db down")}, lg)
}
