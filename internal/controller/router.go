// internal/controller/router.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unclebandit/pushleopard-backend/internal/handler"
)

// Routes collects everything the HTTP surface is built from. Optional pieces
// (RateLimit, Events) are skipped when nil. Proxy headers only replace the
// peer address when TrustProxy is set.
type Routes struct {
	Campaigns  *CampaignController
	Domains    *DomainController
	Dashboard  *DashboardController
	Public     *handler.CampaignHandler
	Intake     *handler.IntakeHandler
	RateLimit  func(http.Handler) http.Handler
	Events     http.HandlerFunc
	HealthFunc http.HandlerFunc
	TrustProxy bool
}

func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if rt.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if rt.HealthFunc != nil {
		r.Get("/health", rt.HealthFunc)
	}
	if rt.Events != nil {
		r.Get("/ws", rt.Events)
	}

	// Browser-facing endpoints; CORS answers preflight before routing.
	r.Route("/api", func(r chi.Router) {
		r.Use(handler.CORS)
		r.Post("/send-campaign", rt.Public.SendCampaign)
		r.Post("/generate-content", rt.Intake.GenerateContent)
		r.Group(func(r chi.Router) {
			if rt.RateLimit != nil {
				r.Use(rt.RateLimit)
			}
			r.Post("/subscribe", rt.Intake.Subscribe)
		})
	})

	// Domain routes
	r.Post("/domains", rt.Domains.CreateDomain)
	r.Get("/domains", rt.Domains.ListDomains)
	r.Get("/domains/{id}", rt.Domains.GetDomain)
	r.Delete("/domains/{id}", rt.Domains.DeleteDomain)
	r.Post("/domains/{id}/verify", rt.Domains.VerifyDomain)

	// Campaign routes
	r.Post("/campaigns", rt.Campaigns.CreateCampaign)
	r.Get("/campaigns", rt.Campaigns.ListCampaigns)
	r.Get("/campaigns/{id}", rt.Campaigns.GetCampaignDetails)
	r.Post("/campaigns/{id}/send", rt.Campaigns.SendCampaign)

	r.Get("/subscribers", rt.Dashboard.ListSubscribers)
	r.Get("/dashboard/stats", rt.Dashboard.Stats)

	return r
}

