package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionFilter_Matches(t *testing.T) {
	paid := Date(2025, time.March, 5)
	tx := &Transaction{
		UserID:        "u1",
		AccountID:     "acc",
		CategoryID:    "cat",
		Kind:          KindIncome,
		Status:        StatusRealized,
		Amount:        decimal.NewFromInt(10),
		DueDate:       Date(2025, time.March, 1),
		PaymentDate:   &paid,
		IsInstallment: true,
		Invoice:       Document{Number: "NF-1"},
	}

	from := Date(2025, time.March, 1)
	to := Date(2025, time.March, 31)
	before := Date(2025, time.February, 28)

	assert.True(t, TransactionFilter{}.Matches(tx))
	assert.True(t, TransactionFilter{UserID: "u1", Kind: KindIncome, Statuses: []Status{StatusPending, StatusRealized}}.Matches(tx))
	assert.True(t, TransactionFilter{PaidFrom: &from, PaidTo: &to, HasInvoice: Bool(true)}.Matches(tx))
	assert.False(t, TransactionFilter{UserID: "u2"}.Matches(tx))
	assert.False(t, TransactionFilter{Statuses: []Status{StatusCanceled}}.Matches(tx))
	assert.False(t, TransactionFilter{IsInstallment: Bool(false)}.Matches(tx))
	assert.False(t, TransactionFilter{DueTo: &before}.Matches(tx))
	assert.False(t, TransactionFilter{PaidTo: &before}.Matches(tx))

	tx.PaymentDate = nil
	assert.False(t, TransactionFilter{PaidFrom: &from}.Matches(tx), "unpaid entries never match a payment range")
}

func TestTransaction_CloneDetachesDates(t *testing.T) {
	paid := Date(2025, time.March, 5)
	tx := &Transaction{PaymentDate: &paid}
	cp := tx.Clone()
	*cp.PaymentDate = Date(2025, time.April, 1)
	assert.Equal(t, Date(2025, time.March, 5), *tx.PaymentDate)
}

func TestStatementGroupFits(t *testing.T) {
	assert.True(t, StatementGroupFits(GroupOperatingRevenue, KindIncome))
	assert.True(t, StatementGroupFits(GroupFinancialRevenue, KindIncome))
	assert.True(t, StatementGroupFits(GroupAdminExpense, KindExpense))
	assert.False(t, StatementGroupFits(GroupSalesTax, KindIncome))
	assert.False(t, StatementGroupFits(GroupOperatingRevenue, KindExpense))
	assert.False(t, ValidStatementGroup("unknown"))
}
