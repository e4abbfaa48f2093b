package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// registerRoutes sets up all REST API routes on the router.
func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		// System
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleAccountList)
			r.Post("/", s.handleAccountCreate)
			r.Get("/balances", s.handleAccountBalances)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleAccountGet)
				r.Put("/", s.handleAccountUpdate)
				r.Delete("/", s.handleAccountDelete)
				r.Get("/balance", s.handleAccountBalance)
			})
		})

		// Categories
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleCategoryList)
			r.Post("/", s.handleCategoryCreate)
			r.Put("/{id}", s.handleCategoryUpdate)
		})

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleTransactionList)
			r.Post("/", s.handleTransactionCreate)
			r.Post("/refresh-statuses", s.handleRefreshStatuses)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleTransactionGet)
				r.Put("/", s.handleTransactionUpdate)
				r.Delete("/", s.handleTransactionDelete)
				r.Post("/realize", s.handleTransactionRealize)
				r.Post("/pending", s.handleTransactionPending)
				r.Post("/cancel", s.handleTransactionCancel)
				r.Put("/invoice", s.handleTransactionInvoice)
			})
		})

		// Installments and billing
		r.Post("/installments", s.handleInstallmentGenerate)
		r.Post("/work-orders/{workOrderID}/billing", s.handleWorkOrderBilling)
		r.Get("/billing/{stage}", s.handleBillingQueue)

		// Reports
		r.Route("/reports", func(r chi.Router) {
			r.Get("/dre", s.handleReportDRE)
			r.Get("/cashflow", s.handleReportCashflow)
			r.Get("/summary", s.handleReportSummary)
		})

		// Banks
		r.Get("/banks", s.handleBankList)
		r.Get("/banks/{code}", s.handleBankLookup)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}
