package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType describes what kind of bucket an account is.
type AccountType string

const (
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCash       AccountType = "cash"
	AccountInvestment AccountType = "investment"
	AccountOther      AccountType = "other"
)

var validAccountTypes = map[AccountType]bool{
	AccountChecking:   true,
	AccountSavings:    true,
	AccountCash:       true,
	AccountInvestment: true,
	AccountOther:      true,
}

// ValidAccountType returns true if t is a known account type.
func ValidAccountType(t AccountType) bool {
	return validAccountTypes[t]
}

// Account is a ledger bucket: bank account, cash drawer, card.
// Its balance is never stored; see AccountBalance.
type Account struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	BankCode       string          `json:"bank_code,omitempty"`
	BankName       string          `json:"bank_name,omitempty"`
	Agency         string          `json:"agency,omitempty"`
	AgencyDigit    string          `json:"agency_digit,omitempty"`
	Number         string          `json:"number,omitempty"`
	NumberDigit    string          `json:"number_digit,omitempty"`
	Type           AccountType     `json:"type"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Active         bool            `json:"active"`
	IsPrimary      bool            `json:"is_primary"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AccountBalance is a computed balance of one account.
type AccountBalance struct {
	AccountID       string          `json:"account_id"`
	Name            string          `json:"name"`
	Active          bool            `json:"active"`
	IsPrimary       bool            `json:"is_primary"`
	OpeningBalance  decimal.Decimal `json:"opening_balance"`
	RealizedIncome  decimal.Decimal `json:"realized_income"`
	RealizedExpense decimal.Decimal `json:"realized_expense"`
	Balance         decimal.Decimal `json:"balance"`
}

// AccountBalances lists balances of a user's accounts with their total.
type AccountBalances struct {
	Accounts []AccountBalance `json:"accounts"`
	Total    decimal.Decimal  `json:"total"`
}
