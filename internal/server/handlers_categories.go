package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bobmcallan/fieldledger/internal/models"
)

type categoryRequest struct {
	Name           *string                `json:"name"`
	Kind           *models.Kind           `json:"kind"`
	StatementGroup *models.StatementGroup `json:"statement_group"`
	Active         *bool                  `json:"active"`
}

func (req *categoryRequest) apply(c *models.Category) {
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Kind != nil {
		c.Kind = *req.Kind
	}
	if req.StatementGroup != nil {
		c.StatementGroup = *req.StatementGroup
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
}

func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	kind := models.Kind(r.URL.Query().Get("kind"))
	if kind != "" && !models.ValidKind(kind) {
		writeServiceError(w, s.logger, models.ErrInvalidKind.WithField("kind"))
		return
	}
	activeOnly, err := queryBool(r, "active")
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	categories, err := s.app.LedgerService.ListCategories(r.Context(), kind, activeOnly != nil && *activeOnly)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	WriteJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	category := &models.Category{}
	req.apply(category)

	saved, err := s.app.LedgerService.SaveCategory(r.Context(), category)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")
	all, err := s.app.LedgerService.ListCategories(ctx, "", false)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	var category *models.Category
	for _, c := range all {
		if c.ID == id {
			cp := *c
			category = &cp
			break
		}
	}
	if category == nil {
		writeServiceError(w, s.logger, models.ErrCategoryNotFound)
		return
	}

	req.apply(category)

	saved, err := s.app.LedgerService.SaveCategory(ctx, category)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}
