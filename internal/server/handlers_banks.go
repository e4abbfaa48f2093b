package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bobmcallan/fieldledger/internal/services/bankdir"
)

// handleBankList returns the bank catalog. An optional q parameter filters by
// name or code, case-insensitively.
func (s *Server) handleBankList(w http.ResponseWriter, r *http.Request) {
	banks := s.app.BankDirectory.List(r.Context())

	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q"))); q != "" {
		filtered := banks[:0]
		for _, b := range banks {
			if strings.Contains(strings.ToLower(b.Name), q) || strings.HasPrefix(b.Code, q) {
				filtered = append(filtered, b)
			}
		}
		banks = filtered
	}

	WriteJSON(w, http.StatusOK, banks)
}

func (s *Server) handleBankLookup(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, ok := bankdir.NormalizeCode(code); !ok {
		WriteErrorWithCode(w, http.StatusBadRequest, "Invalid bank code: "+code, "invalid_bank_code")
		return
	}

	bank, ok := s.app.BankDirectory.Lookup(r.Context(), code)
	if !ok {
		WriteErrorWithCode(w, http.StatusNotFound, "Bank not found: "+code, "bank_not_found")
		return
	}
	WriteJSON(w, http.StatusOK, bank)
}
