// Package models defines data structures for fieldledger
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the accounting lens of a report.
type Phase string

const (
	// PhaseRealized is cash basis: realized entries bucketed by payment date.
	PhaseRealized Phase = "realized"
	// PhaseProjected is a forecast: pending and overdue entries bucketed by due date.
	PhaseProjected Phase = "projected"
)

// ValidPhase returns true for realized and projected.
func ValidPhase(p Phase) bool {
	return p == PhaseRealized || p == PhaseProjected
}

// ReportQuery selects the entries a report aggregates.
type ReportQuery struct {
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Phase      Phase     `json:"phase"`
	AccountID  string    `json:"account_id,omitempty"`
	CategoryID string    `json:"category_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
}

// MonthColumn identifies one calendar month of a report.
type MonthColumn struct {
	Key   string     `json:"key"` // YYYY-MM
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// NewMonthColumn builds the column for the month containing d.
func NewMonthColumn(d time.Time) MonthColumn {
	return MonthColumn{Key: d.Format("2006-01"), Year: d.Year(), Month: d.Month()}
}

// Series is a per-month value list plus its total over the range.
type Series struct {
	Values []decimal.Decimal `json:"values"`
	Total  decimal.Decimal   `json:"total"`
}

// NewSeries returns a zeroed series for n months.
func NewSeries(n int) Series {
	values := make([]decimal.Decimal, n)
	for i := range values {
		values[i] = decimal.Zero
	}
	return Series{Values: values, Total: decimal.Zero}
}

// Add accumulates v into month i and the total.
func (s *Series) Add(i int, v decimal.Decimal) {
	s.Values[i] = s.Values[i].Add(v)
	s.Total = s.Total.Add(v)
}

// Merge adds every month and total of the given series into s.
func (s *Series) Merge(others ...*Series) {
	for _, o := range others {
		for i, v := range o.Values {
			s.Values[i] = s.Values[i].Add(v)
		}
		s.Total = s.Total.Add(o.Total)
	}
}

// Neg returns a negated copy of s.
func (s *Series) Neg() *Series {
	out := Series{Values: make([]decimal.Decimal, len(s.Values)), Total: s.Total.Neg()}
	for i, v := range s.Values {
		out.Values[i] = v.Neg()
	}
	return &out
}

// DRE row keys, in presentation order.
const (
	RowOperatingRevenue = "operating_revenue"
	RowSalesTax         = "sales_tax"
	RowNetRevenue       = "net_revenue"
	RowCOGS             = "cogs"
	RowGrossProfit      = "gross_profit"
	RowOperatingExpense = "operating_exp"
	RowSellingExpense   = "selling_expense"
	RowFinancialExpense = "financial_expense"
	RowFinancialRevenue = "financial_revenue"
	RowAdminExpense     = "admin_expense"
	RowNetProfit        = "net_profit"

	RowNetRevenueMargin = "net_revenue_margin"
	RowGrossMargin      = "gross_margin"
	RowNetMargin        = "net_margin"
)

// DRERowOrder is the fixed order of the value rows.
var DRERowOrder = []string{
	RowOperatingRevenue,
	RowSalesTax,
	RowNetRevenue,
	RowCOGS,
	RowGrossProfit,
	RowOperatingExpense,
	RowSellingExpense,
	RowFinancialExpense,
	RowFinancialRevenue,
	RowAdminExpense,
	RowNetProfit,
}

// DREPercentOrder is the fixed order of the percentage rows.
var DREPercentOrder = []string{RowNetRevenueMargin, RowGrossMargin, RowNetMargin}

// ReportRow is one keyed line of a report.
type ReportRow struct {
	Key string `json:"key"`
	Series
}

// DRE is the monthly income statement.
type DRE struct {
	Query       ReportQuery   `json:"query"`
	Months      []MonthColumn `json:"months"`
	Rows        []ReportRow   `json:"rows"`
	Percentages []ReportRow   `json:"percentages"`
}

// Row returns the value or percentage row with the given key.
func (d *DRE) Row(key string) *ReportRow {
	for i := range d.Rows {
		if d.Rows[i].Key == key {
			return &d.Rows[i]
		}
	}
	for i := range d.Percentages {
		if d.Percentages[i].Key == key {
			return &d.Percentages[i]
		}
	}
	return nil
}

// CashflowRow is one category's monthly series.
type CashflowRow struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	Kind         Kind   `json:"kind"`
	Series
}

// Cashflow is the per-category monthly cash sheet with a carried-forward balance.
type Cashflow struct {
	Query          ReportQuery       `json:"query"`
	Months         []MonthColumn     `json:"months"`
	Income         []CashflowRow     `json:"income"`
	Expense        []CashflowRow     `json:"expense"`
	TotalIncome    Series            `json:"total_income"`
	TotalExpense   Series            `json:"total_expense"`
	Net            Series            `json:"net"`
	OpeningBalance decimal.Decimal   `json:"opening_balance"`
	RunningBalance []decimal.Decimal `json:"running_balance"`
	ClosingBalance decimal.Decimal   `json:"closing_balance"`
}

// FinancialSummary holds headline figures for a dashboard.
type FinancialSummary struct {
	Query                  ReportQuery     `json:"query"`
	AsOf                   time.Time       `json:"as_of"`
	CurrentBalance         decimal.Decimal `json:"current_balance"`
	Receivable             decimal.Decimal `json:"receivable"`
	Payable                decimal.Decimal `json:"payable"`
	ProjectedBalance       decimal.Decimal `json:"projected_balance"`
	OverdueReceivable      decimal.Decimal `json:"overdue_receivable"`
	OverdueReceivableCount int             `json:"overdue_receivable_count"`
	OverduePayable         decimal.Decimal `json:"overdue_payable"`
	DelinquencyRate        decimal.Decimal `json:"delinquency_rate"`
	RealizedIncome         decimal.Decimal `json:"realized_income"`
	RealizedExpense        decimal.Decimal `json:"realized_expense"`
	Result                 decimal.Decimal `json:"result"`
	AverageMonthlyExpense  decimal.Decimal `json:"average_monthly_expense"`
	RunwayMonths           decimal.Decimal `json:"runway_months"`
}
