package report

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// uncategorized names entries whose category no longer resolves.
const uncategorized = "Sem categoria"

// BuildCashflow builds the per-category monthly cash sheet. The running
// balance starts from the opening balances of the active accounts in scope.
func (s *Service) BuildCashflow(ctx context.Context, query models.ReportQuery) (*models.Cashflow, error) {
	q, err := normalizeQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	data, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	n := len(data.months)
	type rowKey struct {
		kind       models.Kind
		categoryID string
	}
	byKey := make(map[rowKey]*models.CashflowRow)

	for _, tx := range data.transactions {
		i := data.index(q.Phase, tx)
		if i < 0 {
			continue
		}
		key := rowKey{kind: tx.Kind, categoryID: tx.CategoryID}
		row, ok := byKey[key]
		if !ok {
			name := uncategorized
			if cat := data.categories[tx.CategoryID]; cat != nil {
				name = cat.Name
			}
			row = &models.CashflowRow{
				CategoryID:   tx.CategoryID,
				CategoryName: name,
				Kind:         tx.Kind,
				Series:       models.NewSeries(n),
			}
			byKey[key] = row
		}
		row.Add(i, tx.Amount)
	}

	cf := &models.Cashflow{
		Query:          q,
		Months:         data.months,
		Income:         []models.CashflowRow{},
		Expense:        []models.CashflowRow{},
		TotalIncome:    models.NewSeries(n),
		TotalExpense:   models.NewSeries(n),
		Net:            models.NewSeries(n),
		OpeningBalance: decimal.Zero,
	}
	for _, row := range byKey {
		if row.Kind == models.KindIncome {
			cf.Income = append(cf.Income, *row)
			cf.TotalIncome.Merge(&row.Series)
		} else {
			cf.Expense = append(cf.Expense, *row)
			cf.TotalExpense.Merge(&row.Series)
		}
	}
	sortRows(cf.Income)
	sortRows(cf.Expense)
	cf.Net.Merge(&cf.TotalIncome, cf.TotalExpense.Neg())

	for _, a := range data.accounts {
		cf.OpeningBalance = cf.OpeningBalance.Add(a.OpeningBalance)
	}
	balance := cf.OpeningBalance
	cf.RunningBalance = make([]decimal.Decimal, n)
	for i, v := range cf.Net.Values {
		balance = balance.Add(v)
		cf.RunningBalance[i] = balance
	}
	cf.ClosingBalance = balance

	s.logger.Debug().Str("phase", string(q.Phase)).Int("income_rows", len(cf.Income)).
		Int("expense_rows", len(cf.Expense)).Msg("Cashflow built")
	return cf, nil
}

func sortRows(rows []models.CashflowRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := strings.ToLower(rows[i].CategoryName), strings.ToLower(rows[j].CategoryName)
		if a != b {
			return a < b
		}
		return rows[i].CategoryID < rows[j].CategoryID
	})
}
