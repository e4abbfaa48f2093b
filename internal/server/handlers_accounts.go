package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// accountRequest is the body of account create and update. Absent fields keep
// their current value on update.
type accountRequest struct {
	Name           *string             `json:"name"`
	BankCode       *string             `json:"bank_code"`
	BankName       *string             `json:"bank_name"`
	Agency         *string             `json:"agency"`
	AgencyDigit    *string             `json:"agency_digit"`
	Number         *string             `json:"number"`
	NumberDigit    *string             `json:"number_digit"`
	Type           *models.AccountType `json:"type"`
	OpeningBalance *decimal.Decimal    `json:"opening_balance"`
	Active         *bool               `json:"active"`
	IsPrimary      *bool               `json:"is_primary"`
}

func (req *accountRequest) apply(a *models.Account) {
	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.BankCode != nil {
		if *req.BankCode != a.BankCode && req.BankName == nil {
			a.BankName = "" // resolved again from the bank directory
		}
		a.BankCode = *req.BankCode
	}
	if req.BankName != nil {
		a.BankName = *req.BankName
	}
	if req.Agency != nil {
		a.Agency = *req.Agency
	}
	if req.AgencyDigit != nil {
		a.AgencyDigit = *req.AgencyDigit
	}
	if req.Number != nil {
		a.Number = *req.Number
	}
	if req.NumberDigit != nil {
		a.NumberDigit = *req.NumberDigit
	}
	if req.Type != nil {
		a.Type = *req.Type
	}
	if req.OpeningBalance != nil {
		a.OpeningBalance = *req.OpeningBalance
	}
	if req.Active != nil {
		a.Active = *req.Active
	}
	if req.IsPrimary != nil {
		a.IsPrimary = *req.IsPrimary
	}
}

func (s *Server) handleAccountList(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.app.LedgerService.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}
	WriteJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleAccountCreate(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	account := &models.Account{}
	req.apply(account)

	saved, err := s.app.LedgerService.SaveAccount(r.Context(), account)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleAccountGet(w http.ResponseWriter, r *http.Request) {
	account, err := s.app.LedgerService.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, account)
}

func (s *Server) handleAccountUpdate(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	existing, err := s.app.LedgerService.GetAccount(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	account := *existing
	req.apply(&account)

	saved, err := s.app.LedgerService.SaveAccount(ctx, &account)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}

func (s *Server) handleAccountDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.app.LedgerService.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	balance, err := s.app.LedgerService.AccountBalance(r.Context(), id)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": id,
		"balance":    balance.StringFixed(2),
	})
}

func (s *Server) handleAccountBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.app.LedgerService.AccountBalances(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, balances)
}
