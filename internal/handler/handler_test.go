package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
	"github.com/unclebandit/pushleopard-backend/internal/handler"
	"github.com/unclebandit/pushleopard-backend/internal/service"
)

// --- Mocks ---

type MockSender struct {
	summary *service.SendSummary
	err     error
	ctxErr  error
}

func (m *MockSender) Send(ctx context.Context, id string) (*service.SendSummary, error) {
	m.ctxErr = ctx.Err()
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

type MockRegistrar struct {
	header string
	err    error
}

func (m *MockRegistrar) Register(_ context.Context, req service.RegisterRequest, header string) (string, error) {
	m.header = header
	if m.err != nil {
		return "", m.err
	}
	if req.Token == "" || req.DomainName == "" {
		return "", appErrors.NewValidationError("token", "is required")
	}
	return "sub-1", nil
}

type MockSuggester struct {
	out *service.Suggestion
	err error
}

func (m *MockSuggester) Suggest(context.Context, string) (*service.Suggestion, error) {
	return m.out, m.err
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

// --- Send trigger ---

func TestSendCampaign_Success(t *testing.T) {
	sender := &MockSender{summary: &service.SendSummary{
		CampaignID: "camp-1", Status: "processed", TotalSubscribers: 3, SuccessCount: 2, FailureCount: 1,
	}}
	h := handler.NewCampaignHandler(sender, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/send-campaign", strings.NewReader(`{"campaignId":"camp-1"}`))
	w := httptest.NewRecorder()
	h.SendCampaign(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["campaignId"] != "camp-1" || body["totalSubscribers"] != float64(3) ||
		body["successCount"] != float64(2) || body["failureCount"] != float64(1) {
		t.Errorf("body = %v", body)
	}
	if body["message"] == "" {
		t.Error("message should be set")
	}
}

func TestSendCampaign_IgnoresClientCancellation(t *testing.T) {
	sender := &MockSender{summary: &service.SendSummary{CampaignID: "camp-1"}}
	h := handler.NewCampaignHandler(sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/send-campaign", strings.NewReader(`{"campaignId":"camp-1"}`)).WithContext(ctx)
	h.SendCampaign(httptest.NewRecorder(), req)

	if sender.ctxErr != nil {
		t.Errorf("send context err = %v, want nil", sender.ctxErr)
	}
}

func TestSendCampaign_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantDetail bool
	}{
		{"missing id", `{}`, nil, http.StatusBadRequest, false},
		{"bad json", `{`, nil, http.StatusBadRequest, false},
		{"not found", `{"campaignId":"x"}`, appErrors.NewCampaignNotFound("x"), http.StatusNotFound, false},
		{"conflict", `{"campaignId":"x"}`, &appErrors.SendConflictError{CampaignID: "x", Status: "sending"}, http.StatusConflict, true},
		{"failed", `{"campaignId":"x"}`, &appErrors.SendFailedError{CampaignID: "x", Cause: errors.New("db down")}, http.StatusInternalServerError, true},
		{"unconfigured", `{"campaignId":"x"}`, appErrors.NewConfigurationError("push gateway", nil), http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewCampaignHandler(&MockSender{err: tt.err}, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/send-campaign", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.SendCampaign(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			body := decodeBody(t, w)
			if body["error"] == nil {
				t.Error("error field missing")
			}
			if _, ok := body["details"]; ok != tt.wantDetail {
				t.Errorf("details present = %v, want %v", ok, tt.wantDetail)
			}
		})
	}
}

// --- Subscribe ---

func TestSubscribe(t *testing.T) {
	reg := &MockRegistrar{}
	h := &handler.IntakeHandler{Subscriptions: reg}

	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(`{"token":"t","domainName":"shop.example"}`))
	req.Header.Set("User-Agent", "Chrome/129")
	w := httptest.NewRecorder()
	h.Subscribe(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	body := decodeBody(t, w)
	if body["id"] != "sub-1" || body["message"] == "" {
		t.Errorf("body = %v", body)
	}
	if reg.header != "Chrome/129" {
		t.Errorf("header user agent = %q", reg.header)
	}
}

func TestSubscribe_Errors(t *testing.T) {
	h := &handler.IntakeHandler{Subscriptions: &MockRegistrar{}}
	w := httptest.NewRecorder()
	h.Subscribe(w, httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(`{"token":"t"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing domain status = %d, want 400", w.Code)
	}

	h = &handler.IntakeHandler{Subscriptions: &MockRegistrar{err: errors.New("insert failed")}}
	w = httptest.NewRecorder()
	h.Subscribe(w, httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(`{"token":"t","domainName":"d"}`)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("store failure status = %d, want 500", w.Code)
	}
	if body := decodeBody(t, w); body["details"] != "insert failed" {
		t.Errorf("details = %v", body["details"])
	}
}

// --- Generate content ---

func TestGenerateContent(t *testing.T) {
	h := &handler.IntakeHandler{Assist: &MockSuggester{out: &service.Suggestion{Title: "Hi", Body: "Come back"}}}
	w := httptest.NewRecorder()
	h.GenerateContent(w, httptest.NewRequest(http.MethodPost, "/api/generate-content", strings.NewReader(`{"pageContent":"shoes"}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["title"] != "Hi" || body["body"] != "Come back" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["imageUrl"]; ok {
		t.Error("imageUrl should be omitted when empty")
	}
}

func TestGenerateContent_GenerationError(t *testing.T) {
	h := &handler.IntakeHandler{Assist: &MockSuggester{err: &appErrors.GenerationError{Cause: errors.New("bad shape")}}}
	w := httptest.NewRecorder()
	h.GenerateContent(w, httptest.NewRequest(http.MethodPost, "/api/generate-content", strings.NewReader(`{"pageContent":"x"}`)))

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

// --- CORS ---

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := handler.CORS(next)

	req := httptest.NewRequest(http.MethodOptions, "/api/send-campaign", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("preflight status = %d body = %q", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example" {
		t.Errorf("allow origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != http.MethodPost {
		t.Errorf("allow methods = %q", got)
	}

	w = httptest.NewRecorder()
	bare := httptest.NewRequest(http.MethodOptions, "/api/send-campaign", nil)
	bare.Header.Set("Origin", "https://blog.example")
	h.ServeHTTP(w, bare)
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("bare OPTIONS status = %d body = %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	post := httptest.NewRequest(http.MethodPost, "/api/send-campaign", nil)
	post.Header.Set("Origin", "https://blog.example")
	h.ServeHTTP(w, post)
	if w.Code != http.StatusTeapot {
		t.Errorf("POST should reach next handler, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://blog.example" {
		t.Errorf("allow origin = %q, want reflected origin", got)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{appErrors.NewValidationError("f", "m"), http.StatusBadRequest},
		{appErrors.NewDomainNotFound("d"), http.StatusNotFound},
		{appErrors.ErrDomainExists, http.StatusConflict},
		{&appErrors.GenerationError{Cause: errors.New("x")}, http.StatusBadGateway},
		{appErrors.NewConfigurationError("x", nil), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := handler.StatusForError(tt.err); got != tt.want {
			t.Errorf("StatusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
