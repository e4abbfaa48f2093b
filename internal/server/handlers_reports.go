package server

import (
	"net/http"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// reportQuery reads from, to, phase, account_id and category_id. Range checks
// are left to the report service.
func reportQuery(r *http.Request) (models.ReportQuery, error) {
	q := models.ReportQuery{
		Phase:      models.Phase(r.URL.Query().Get("phase")),
		AccountID:  r.URL.Query().Get("account_id"),
		CategoryID: r.URL.Query().Get("category_id"),
	}
	from, err := queryDate(r, "from")
	if err != nil {
		return q, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return q, err
	}
	if from != nil {
		q.From = *from
	}
	if to != nil {
		q.To = *to
	}
	return q, nil
}

func (s *Server) handleReportDRE(w http.ResponseWriter, r *http.Request) {
	query, err := reportQuery(r)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	dre, err := s.app.ReportService.BuildDRE(r.Context(), query)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, dre)
}

func (s *Server) handleReportCashflow(w http.ResponseWriter, r *http.Request) {
	query, err := reportQuery(r)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	cashflow, err := s.app.ReportService.BuildCashflow(r.Context(), query)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, cashflow)
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	query, err := reportQuery(r)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	summary, err := s.app.ReportService.BuildSummary(r.Context(), query)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}
