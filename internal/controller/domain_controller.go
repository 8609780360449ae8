// internal/controller/domain_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/pushleopard-backend/internal/handler"
	"github.com/unclebandit/pushleopard-backend/internal/service"
)

type DomainController struct {
	DomainService *service.DomainService
}

func (c *DomainController) CreateDomain(w http.ResponseWriter, r *http.Request) {
	var body service.CreateDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	domain, err := c.DomainService.CreateDomain(r.Context(), body)
	if err != nil {
		handler.WriteError(w, "failed to create domain", err)
		return
	}
	writeJSON(w, http.StatusCreated, domain)
}

func (c *DomainController) ListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := c.DomainService.ListDomains(r.Context())
	if err != nil {
		handler.WriteError(w, "failed to list domains", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": domains})
}

func (c *DomainController) GetDomain(w http.ResponseWriter, r *http.Request) {
	domain, err := c.DomainService.GetDomain(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, "failed to fetch domain", err)
		return
	}
	writeJSON(w, http.StatusOK, domain)
}

func (c *DomainController) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	if err := c.DomainService.DeleteDomain(r.Context(), chi.URLParam(r, "id")); err != nil {
		handler.WriteError(w, "failed to delete domain", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *DomainController) VerifyDomain(w http.ResponseWriter, r *http.Request) {
	domain, err := c.DomainService.VerifyDomain(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, "failed to verify domain", err)
		return
	}
	writeJSON(w, http.StatusOK, domain)
}
