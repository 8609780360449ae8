package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
	"github.com/unclebandit/pushleopard-backend/internal/model"
	"github.com/unclebandit/pushleopard-backend/internal/service"
)

type MockSubscriberWriter struct {
	created []*model.Subscriber
	err     error
}

func (m *MockSubscriberWriter) Create(_ context.Context, s *model.Subscriber) error {
	if m.err != nil {
		return m.err
	}
	s.ID = "sub-new"
	m.created = append(m.created, s)
	return nil
}

func TestRegister_UserAgentFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		header string
		want   string
	}{
		{"body wins", "Firefox/130", "Chrome/129", "Firefox/130"},
		{"header fallback", "", "Chrome/129", "Chrome/129"},
		{"unknown", "", "", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockSubscriberWriter{}
			svc := &service.SubscriptionService{Subscribers: repo}

			id, err := svc.Register(context.Background(), service.RegisterRequest{
				Token:      "tok-1",
				DomainName: "shop.example",
				UserAgent:  tt.body,
			}, tt.header)
			if err != nil {
				t.Fatalf("Register() error: %v", err)
			}
			if id != "sub-new" {
				t.Errorf("id = %q", id)
			}
			if got := repo.created[0].UserAgent; got != tt.want {
				t.Errorf("user agent = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegister_DuplicatesAllowed(t *testing.T) {
	repo := &MockSubscriberWriter{}
	svc := &service.SubscriptionService{Subscribers: repo}
	req := service.RegisterRequest{Token: "tok-1", DomainName: "shop.example"}

	for i := 0; i < 2; i++ {
		if _, err := svc.Register(context.Background(), req, ""); err != nil {
			t.Fatalf("Register() error: %v", err)
		}
	}
	if len(repo.created) != 2 {
		t.Errorf("created = %d, want 2", len(repo.created))
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := &service.SubscriptionService{Subscribers: &MockSubscriberWriter{}}

	for _, req := range []service.RegisterRequest{
		{Token: "", DomainName: "shop.example"},
		{Token: "tok-1", DomainName: "  "},
	} {
		if _, err := svc.Register(context.Background(), req, ""); !appErrors.IsValidation(err) {
			t.Errorf("Register(%+v) err = %v, want validation error", req, err)
		}
	}
}

func TestRegister_StoreFailure(t *testing.T) {
	storeErr := errors.New("disk full")
	svc := &service.SubscriptionService{Subscribers: &MockSubscriberWriter{err: storeErr}}

	_, err := svc.Register(context.Background(), service.RegisterRequest{Token: "t", DomainName: "d"}, "")
	if !errors.Is(err, storeErr) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}

type MockGenerator struct {
	prompt string
	out    string
	err    error
}

func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.out, m.err
}

func TestSuggest_ParsesModelOutput(t *testing.T) {
	gen := &MockGenerator{out: "```json\n{\"title\":\"Back in stock\",\"body\":\"Shop now\",\"imageUrl\":\"https://cdn.example/a.png\"}\n```"}
	assist := &service.ContentAssist{Generator: gen}

	s, err := assist.Suggest(context.Background(), "Running shoes, 30% off")
	if err != nil {
		t.Fatalf("Suggest() error: %v", err)
	}
	if s.Title != "Back in stock" || s.Body != "Shop now" || s.ImageURL != "https://cdn.example/a.png" {
		t.Errorf("suggestion = %+v", s)
	}
	if !strings.Contains(gen.prompt, "Running shoes, 30% off") {
		t.Error("prompt should embed page content")
	}
}

func TestSuggest_TruncatesPageContent(t *testing.T) {
	gen := &MockGenerator{out: `{"title":"t","body":"b"}`}
	assist := &service.ContentAssist{Generator: gen}

	long := strings.Repeat("a", 25000)
	if _, err := assist.Suggest(context.Background(), long); err != nil {
		t.Fatalf("Suggest() error: %v", err)
	}
	if strings.Contains(gen.prompt, strings.Repeat("a", 20001)) {
		t.Error("page content should be truncated to 20000 characters")
	}
	if !strings.Contains(gen.prompt, strings.Repeat("a", 20000)) {
		t.Error("truncated content should keep 20000 characters")
	}
}

func TestSuggest_GenerationErrors(t *testing.T) {
	tests := []struct {
		name string
		gen  *MockGenerator
	}{
		{"upstream error", &MockGenerator{err: errors.New("503")}},
		{"empty output", &MockGenerator{out: "  "}},
		{"not json", &MockGenerator{out: "Sure! Here is a title"}},
		{"missing body", &MockGenerator{out: `{"title":"only a title"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&service.ContentAssist{Generator: tt.gen}).Suggest(context.Background(), "page")
			var genErr *appErrors.GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("err = %v, want GenerationError", err)
			}
		})
	}
}

func TestSuggest_RequiresContentAndGenerator(t *testing.T) {
	if _, err := (&service.ContentAssist{Generator: &MockGenerator{}}).Suggest(context.Background(), ""); !appErrors.IsValidation(err) {
		t.Errorf("empty content err = %v, want validation", err)
	}
	if _, err := (&service.ContentAssist{}).Suggest(context.Background(), "page"); !errors.Is(err, appErrors.ErrConfiguration) {
		t.Errorf("missing generator err = %v, want configuration", err)
	}
}
