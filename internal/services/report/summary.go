package report

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
	"github.com/bobmcallan/fieldledger/internal/services/ledger"
)

// BuildSummary computes the dashboard figures for a range. Balances are taken
// as of the end of the range over the active accounts in scope; receivables
// and payables cover open entries due inside it, with overdue derived against
// today. The phase of the query is ignored.
func (s *Service) BuildSummary(ctx context.Context, query models.ReportQuery) (*models.FinancialSummary, error) {
	q, err := normalizeQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	sum := &models.FinancialSummary{
		Query:                 q,
		AsOf:                  s.today(),
		CurrentBalance:        decimal.Zero,
		Receivable:            decimal.Zero,
		Payable:               decimal.Zero,
		OverdueReceivable:     decimal.Zero,
		OverduePayable:        decimal.Zero,
		RealizedIncome:        decimal.Zero,
		RealizedExpense:       decimal.Zero,
		AverageMonthlyExpense: decimal.Zero,
		RunwayMonths:          decimal.Zero,
	}

	base := models.TransactionFilter{UserID: q.UserID, AccountID: q.AccountID, CategoryID: q.CategoryID}
	from, to := q.From, q.To

	err = s.storage.Snapshot(ctx, func(store interfaces.LedgerStore) error {
		accounts, err := accountsInScope(ctx, store, q)
		if err != nil {
			return err
		}
		inScope := make(map[string]bool, len(accounts))
		for _, a := range accounts {
			inScope[a.ID] = true
			sum.CurrentBalance = sum.CurrentBalance.Add(a.OpeningBalance)
		}

		// Everything paid into an account in scope up to the end of the range
		// moves the balance.
		paid := base
		paid.Statuses = []models.Status{models.StatusRealized}
		paid.PaidTo = &to
		realized, err := store.ListTransactions(ctx, paid)
		if err != nil {
			return err
		}
		for _, tx := range realized {
			if inScope[tx.AccountID] {
				sum.CurrentBalance = sum.CurrentBalance.Add(tx.SignedAmount())
			}
			if tx.PaymentDate == nil || tx.PaymentDate.Before(from) {
				continue
			}
			if tx.Kind == models.KindIncome {
				sum.RealizedIncome = sum.RealizedIncome.Add(tx.Amount)
			} else {
				sum.RealizedExpense = sum.RealizedExpense.Add(tx.Amount)
			}
		}

		open := base
		open.Statuses = []models.Status{models.StatusPending, models.StatusOverdue}
		open.DueFrom, open.DueTo = &from, &to
		pending, err := store.ListTransactions(ctx, open)
		if err != nil {
			return err
		}
		today := s.today()
		for _, tx := range pending {
			status, _ := ledger.DeriveStatus(tx, today)
			overdue := status == models.StatusOverdue
			if tx.Kind == models.KindIncome {
				sum.Receivable = sum.Receivable.Add(tx.Amount)
				if overdue {
					sum.OverdueReceivable = sum.OverdueReceivable.Add(tx.Amount)
					sum.OverdueReceivableCount++
				}
			} else {
				sum.Payable = sum.Payable.Add(tx.Amount)
				if overdue {
					sum.OverduePayable = sum.OverduePayable.Add(tx.Amount)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sum.ProjectedBalance = sum.CurrentBalance.Add(sum.Receivable).Sub(sum.Payable)
	sum.DelinquencyRate = models.Percent(sum.OverdueReceivable, sum.Receivable)
	sum.Result = sum.RealizedIncome.Sub(sum.RealizedExpense)

	span := decimal.NewFromInt(int64(len(months(q.From, q.To))))
	sum.AverageMonthlyExpense = sum.RealizedExpense.DivRound(span, 2)
	if sum.AverageMonthlyExpense.IsPositive() && sum.CurrentBalance.IsPositive() {
		sum.RunwayMonths = sum.CurrentBalance.DivRound(sum.AverageMonthlyExpense, 1)
	}

	s.logger.Debug().Str("from", models.FormatDate(q.From)).Str("to", models.FormatDate(q.To)).
		Str("balance", sum.CurrentBalance.StringFixed(2)).Msg("Summary built")
	return sum, nil
}
