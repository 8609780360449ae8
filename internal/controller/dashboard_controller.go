// internal/controller/dashboard_controller.go
package controller

import (
	"net/http"

	"github.com/unclebandit/pushleopard-backend/internal/handler"
	"github.com/unclebandit/pushleopard-backend/internal/service"
)

type DashboardController struct {
	DashboardService  *service.DashboardService
	SubscriberService *service.SubscriberService
}

func (c *DashboardController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.DashboardService.Stats(r.Context())
	if err != nil {
		handler.WriteError(w, "failed to load dashboard stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListSubscribers supports ?domain=, ?q= and the usual page params.
func (c *DashboardController) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	q := r.URL.Query()

	subs, pagination, err := c.SubscriberService.ListSubscribers(r.Context(), q.Get("domain"), q.Get("q"), page, pageSize)
	if err != nil {
		handler.WriteError(w, "failed to list subscribers", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       subs,
		"pagination": pagination,
	})
}
