package models

import "time"

// Kind is the direction of an entry: money in or money out.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// ValidKind returns true for income and expense.
func ValidKind(k Kind) bool {
	return k == KindIncome || k == KindExpense
}

// StatementGroup is one of the seven income-statement buckets.
type StatementGroup string

const (
	GroupOperatingRevenue StatementGroup = "operating_revenue"
	GroupSalesTax         StatementGroup = "sales_tax"
	GroupCOGS             StatementGroup = "cogs"
	GroupSellingExpense   StatementGroup = "selling_expense"
	GroupFinancialExpense StatementGroup = "financial_expense"
	GroupFinancialRevenue StatementGroup = "financial_revenue"
	GroupAdminExpense     StatementGroup = "admin_expense"
)

// groupKinds maps each statement group to the entry kind that feeds it.
var groupKinds = map[StatementGroup]Kind{
	GroupOperatingRevenue: KindIncome,
	GroupFinancialRevenue: KindIncome,
	GroupSalesTax:         KindExpense,
	GroupCOGS:             KindExpense,
	GroupSellingExpense:   KindExpense,
	GroupFinancialExpense: KindExpense,
	GroupAdminExpense:     KindExpense,
}

// ValidStatementGroup returns true if g is one of the seven groups.
func ValidStatementGroup(g StatementGroup) bool {
	_, ok := groupKinds[g]
	return ok
}

// StatementGroupFits reports whether g may be assigned to a category of kind k.
func StatementGroupFits(g StatementGroup, k Kind) bool {
	return groupKinds[g] == k
}

// Category labels income and expense entries.
// An empty StatementGroup means the classifier decides by name.
type Category struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Kind           Kind           `json:"kind"`
	StatementGroup StatementGroup `json:"statement_group,omitempty"`
	Active         bool           `json:"active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
