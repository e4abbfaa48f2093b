package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/models"
	"github.com/bobmcallan/fieldledger/internal/storage/sqlite"
)

type fakeBanks map[string]models.Bank

func (f fakeBanks) Lookup(_ context.Context, code string) (*models.Bank, bool) {
	b, ok := f[code]
	if !ok {
		return nil, false
	}
	return &b, true
}

func (f fakeBanks) List(context.Context) []models.Bank {
	var out []models.Bank
	for _, b := range f {
		out = append(out, b)
	}
	return out
}

type fixture struct {
	svc     *Service
	storage *sqlite.Manager
	now     time.Time
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m, err := sqlite.Open(common.NewSilentLogger(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	f := &fixture{
		storage: m,
		now:     time.Date(2025, time.March, 15, 15, 0, 0, 0, time.UTC),
		ctx:     common.WithUserContext(context.Background(), &common.UserContext{UserID: "u1"}),
	}
	banks := fakeBanks{"001": {Code: "001", Name: "Banco do Brasil"}}
	f.svc = NewService(m, banks, common.NewSilentLogger(), WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) account(t *testing.T, name string, opening string, primary bool) *models.Account {
	t.Helper()
	a, err := f.svc.SaveAccount(f.ctx, &models.Account{
		Name:           name,
		OpeningBalance: decimal.RequireFromString(opening),
		IsPrimary:      primary,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) category(t *testing.T, name string, kind models.Kind) *models.Category {
	t.Helper()
	c, err := f.svc.SaveCategory(f.ctx, &models.Category{Name: name, Kind: kind})
	require.NoError(t, err)
	return c
}

func (f *fixture) entry(t *testing.T, kind models.Kind, amount string, due time.Time, accountID, categoryID string) *models.Transaction {
	t.Helper()
	tx, err := f.svc.CreateTransaction(f.ctx, &models.Transaction{
		Kind:        kind,
		Description: "entry",
		Amount:      decimal.RequireFromString(amount),
		DueDate:     due,
		AccountID:   accountID,
		CategoryID:  categoryID,
	})
	require.NoError(t, err)
	return tx
}

// installments stores a group directly, bypassing the generator.
func (f *fixture) installments(t *testing.T, accountID, categoryID string, amounts ...string) []*models.Transaction {
	t.Helper()
	store := f.storage.Ledger()
	group := &models.InstallmentGroup{
		ID: newID(), UserID: "u1", WorkOrderID: "wo-" + newID(), Kind: models.KindIncome,
		Total: decimal.NewFromInt(int64(len(amounts))), Count: len(amounts),
		FirstDueDate: models.Date(2025, time.April, 10), CreatedAt: f.now,
	}
	require.NoError(t, store.CreateInstallmentGroup(f.ctx, group))

	var txs []*models.Transaction
	for i, amount := range amounts {
		tx := &models.Transaction{
			ID: newID(), UserID: "u1", WorkOrderID: group.WorkOrderID, Kind: models.KindIncome,
			Status: models.StatusPending, Description: "installment", Amount: decimal.RequireFromString(amount),
			DueDate: models.AddMonths(group.FirstDueDate, i), AccountID: accountID, CategoryID: categoryID,
			IsInstallment: true, InstallmentGroupID: group.ID, InstallmentNumber: i + 1, InstallmentTotal: len(amounts),
			CreatedAt: f.now, UpdatedAt: f.now,
		}
		require.NoError(t, store.SaveTransaction(f.ctx, tx))
		txs = append(txs, tx)
	}
	return txs
}

func TestSaveAccount_PrimaryAndBankName(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.SaveAccount(f.ctx, &models.Account{Name: " Caixa ", BankCode: "001", IsPrimary: true})
	require.NoError(t, err)
	assert.Equal(t, "Caixa", first.Name)
	assert.Equal(t, "Banco do Brasil", first.BankName)
	assert.Equal(t, models.AccountChecking, first.Type)
	assert.True(t, first.Active)
	assert.Equal(t, "u1", first.UserID)

	second := f.account(t, "Itaú", "0", true)

	accounts, err := f.svc.ListAccounts(f.ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	for _, a := range accounts {
		assert.Equal(t, a.ID == second.ID, a.IsPrimary, "only the last saved primary keeps the flag")
	}
}

func TestSaveAccount_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SaveAccount(f.ctx, &models.Account{Name: "  "})
	assert.ErrorIs(t, err, models.ErrRequiredField)

	_, err = f.svc.SaveAccount(f.ctx, &models.Account{Name: "x", Type: "wallet"})
	assert.ErrorIs(t, err, models.ErrInvalidField)

	_, err = f.svc.SaveAccount(f.ctx, &models.Account{Name: "x", OpeningBalance: decimal.RequireFromString("1.001")})
	assert.ErrorIs(t, err, models.ErrInvalidField)

	_, err = f.svc.SaveAccount(f.ctx, &models.Account{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestAccountBalance_RealizedOnly(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "100.00", true)
	other := f.account(t, "Other", "10.00", false)
	income := f.category(t, "Serviços", models.KindIncome)
	expense := f.category(t, "Aluguel", models.KindExpense)

	paidIncome := f.entry(t, models.KindIncome, "50.25", models.Date(2025, 3, 1), acc.ID, income.ID)
	paidExpense := f.entry(t, models.KindExpense, "20.10", models.Date(2025, 3, 2), acc.ID, expense.ID)
	f.entry(t, models.KindIncome, "999.99", models.Date(2025, 4, 1), acc.ID, income.ID)
	f.entry(t, models.KindExpense, "5.00", models.Date(2025, 3, 1), acc.ID, expense.ID)

	_, err := f.svc.MarkRealized(f.ctx, paidIncome.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.MarkRealized(f.ctx, paidExpense.ID, nil)
	require.NoError(t, err)

	balance, err := f.svc.AccountBalance(f.ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "130.15", balance.StringFixed(2))

	all, err := f.svc.AccountBalances(f.ctx)
	require.NoError(t, err)
	require.Len(t, all.Accounts, 2)
	assert.Equal(t, "140.15", all.Total.StringFixed(2))
	for _, b := range all.Accounts {
		if b.AccountID == other.ID {
			assert.True(t, b.Balance.Equal(decimal.RequireFromString("10")))
		}
	}
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	used := f.account(t, "Used", "0", true)
	unused := f.account(t, "Unused", "0", false)
	cat := f.category(t, "Serviços", models.KindIncome)
	f.entry(t, models.KindIncome, "10", models.Date(2025, 4, 1), used.ID, cat.ID)

	assert.ErrorIs(t, f.svc.DeleteAccount(f.ctx, used.ID), models.ErrAccountInUse)
	require.NoError(t, f.svc.DeleteAccount(f.ctx, unused.ID))
	_, err := f.svc.GetAccount(f.ctx, unused.ID)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestSaveCategory_Rules(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	rent := f.category(t, "Aluguel", models.KindExpense)

	_, err := f.svc.SaveCategory(f.ctx, &models.Category{Name: "  ALUGUEL ", Kind: models.KindExpense})
	assert.ErrorIs(t, err, models.ErrDuplicateCategory)

	_, err = f.svc.SaveCategory(f.ctx, &models.Category{Name: "Aluguel", Kind: models.KindIncome})
	assert.NoError(t, err, "the same name is allowed for the other kind")

	_, err = f.svc.SaveCategory(f.ctx, &models.Category{Name: "Juros", Kind: models.KindIncome, StatementGroup: models.GroupFinancialExpense})
	assert.ErrorIs(t, err, models.ErrInvalidStatementGroup)

	f.entry(t, models.KindExpense, "10", models.Date(2025, 4, 1), acc.ID, rent.ID)
	rent.Kind = models.KindIncome
	rent.Name = "Aluguel recebido"
	_, err = f.svc.SaveCategory(f.ctx, rent)
	assert.ErrorIs(t, err, models.ErrCategoryKindMismatch)

	cats, err := f.svc.ListCategories(f.ctx, models.KindExpense, true)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Aluguel", cats[0].Name)
}

func TestCreateTransaction_DerivesAndValidates(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)
	expense := f.category(t, "Aluguel", models.KindExpense)

	overdue := f.entry(t, models.KindIncome, "10", models.Date(2025, 3, 14), acc.ID, income.ID)
	assert.Equal(t, models.StatusOverdue, overdue.Status)

	pending := f.entry(t, models.KindIncome, "10", models.Date(2025, 3, 15), acc.ID, income.ID)
	assert.Equal(t, models.StatusPending, pending.Status)

	base := models.Transaction{Kind: models.KindIncome, Description: "x", Amount: decimal.NewFromInt(1),
		DueDate: models.Date(2025, 3, 10), AccountID: acc.ID, CategoryID: income.ID}

	tests := []struct {
		name   string
		mutate func(tx *models.Transaction)
		want   error
	}{
		{"zero amount", func(tx *models.Transaction) { tx.Amount = decimal.Zero }, models.ErrInvalidAmount},
		{"three decimals", func(tx *models.Transaction) { tx.Amount = decimal.RequireFromString("1.005") }, models.ErrInvalidAmount},
		{"no due date", func(tx *models.Transaction) { tx.DueDate = time.Time{} }, models.ErrMissingDueDate},
		{"paid before due", func(tx *models.Transaction) { tx.PaymentDate = datePtr(2025, 3, 9) }, models.ErrPaymentBeforeDue},
		{"paid in future", func(tx *models.Transaction) { tx.PaymentDate = datePtr(2025, 3, 16) }, models.ErrPaymentInFuture},
		{"kind mismatch", func(tx *models.Transaction) { tx.CategoryID = expense.ID }, models.ErrCategoryKindMismatch},
		{"orphan account", func(tx *models.Transaction) { tx.AccountID = "nope" }, models.ErrAccountNotFound},
		{"orphan category", func(tx *models.Transaction) { tx.CategoryID = "nope" }, models.ErrCategoryNotFound},
		{"expense class on income", func(tx *models.Transaction) { tx.ExpenseClass = models.ExpenseFixed }, models.ErrInvalidField},
		{"installment fields", func(tx *models.Transaction) { tx.IsInstallment = true }, models.ErrInstallmentFieldsManaged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base.Clone()
			tt.mutate(tx)
			_, err := f.svc.CreateTransaction(f.ctx, tx)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	paid := base.Clone()
	paid.PaymentDate = datePtr(2025, 3, 12)
	created, err := f.svc.CreateTransaction(f.ctx, paid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRealized, created.Status)
}

func TestCreateTransaction_OneEntryPerWorkOrder(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)

	tx := &models.Transaction{Kind: models.KindIncome, Description: "OS 12", Amount: decimal.NewFromInt(100),
		DueDate: models.Date(2025, 4, 1), AccountID: acc.ID, CategoryID: income.ID, WorkOrderID: "wo-12"}
	_, err := f.svc.CreateTransaction(f.ctx, tx)
	require.NoError(t, err)

	_, err = f.svc.CreateTransaction(f.ctx, tx)
	assert.ErrorIs(t, err, models.ErrWorkOrderHasEntry)
}

func TestMarkRealized(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)
	tx := f.entry(t, models.KindIncome, "10", models.Date(2025, 3, 1), acc.ID, income.ID)

	_, err := f.svc.MarkRealized(f.ctx, tx.ID, datePtr(2025, 2, 28))
	assert.ErrorIs(t, err, models.ErrPaymentBeforeDue)

	realized, err := f.svc.MarkRealized(f.ctx, tx.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRealized, realized.Status)
	assert.Equal(t, models.Date(2025, 3, 15), *realized.PaymentDate, "defaults to today")

	again, err := f.svc.MarkRealized(f.ctx, tx.ID, datePtr(2025, 3, 2))
	assert.ErrorIs(t, err, models.ErrAlreadyRealized)
	assert.Equal(t, models.KindWarning, models.ErrorKindOf(err))
	require.NotNil(t, again)
	assert.Equal(t, models.Date(2025, 3, 15), *again.PaymentDate, "entry is returned unchanged")

	_, err = f.svc.MarkRealized(f.ctx, "missing", nil)
	assert.ErrorIs(t, err, models.ErrTransactionNotFound)
}

func TestMarkRealized_UsesConfiguredTimezone(t *testing.T) {
	f := newFixture(t)
	f.svc.loc = time.FixedZone("BRT", -3*60*60)
	f.now = time.Date(2025, time.March, 16, 1, 0, 0, 0, time.UTC)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)
	tx := f.entry(t, models.KindIncome, "10", models.Date(2025, 3, 1), acc.ID, income.ID)

	realized, err := f.svc.MarkRealized(f.ctx, tx.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.Date(2025, 3, 15), *realized.PaymentDate)
}

func TestMarkPending(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)
	past := f.entry(t, models.KindIncome, "10", models.Date(2025, 3, 1), acc.ID, income.ID)
	future := f.entry(t, models.KindIncome, "10", models.Date(2025, 3, 15), acc.ID, income.ID)

	_, err := f.svc.MarkPending(f.ctx, future.ID)
	assert.ErrorIs(t, err, models.ErrNotRealized)

	for _, id := range []string{past.ID, future.ID} {
		_, err := f.svc.MarkRealized(f.ctx, id, nil)
		require.NoError(t, err)
	}

	reopened, err := f.svc.MarkPending(f.ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOverdue, reopened.Status)
	assert.Nil(t, reopened.PaymentDate)

	reopened, err = f.svc.MarkPending(f.ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reopened.Status)
}

func TestCancel_InstallmentsAndGroup(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)
	plain := f.entry(t, models.KindIncome, "10", models.Date(2025, 4, 1), acc.ID, income.ID)
	inst := f.installments(t, acc.ID, income.ID, "0.50", "0.50")

	_, err := f.svc.Cancel(f.ctx, plain.ID)
	assert.ErrorIs(t, err, models.ErrCancelNonInstallment)

	first, err := f.svc.Cancel(f.ctx, inst[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, first.Status)

	groups, err := f.storage.Ledger().ListInstallmentGroups(f.ctx, inst[0].WorkOrderID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].Active(), "group stays active while a member is live")

	_, err = f.svc.Cancel(f.ctx, inst[1].ID)
	require.NoError(t, err)
	groups, err = f.storage.Ledger().ListInstallmentGroups(f.ctx, inst[0].WorkOrderID)
	require.NoError(t, err)
	assert.False(t, groups[0].Active(), "last cancel closes the group")

	again, err := f.svc.Cancel(f.ctx, inst[1].ID)
	require.NoError(t, err, "canceling twice is a no-op")
	assert.Equal(t, models.StatusCanceled, again.Status)

	_, err = f.svc.MarkRealized(f.ctx, inst[0].ID, nil)
	assert.ErrorIs(t, err, models.ErrTransactionCanceled)
	_, err = f.svc.MarkPending(f.ctx, inst[0].ID)
	assert.ErrorIs(t, err, models.ErrTransactionCanceled)
	_, err = f.svc.UpdateTransaction(f.ctx, inst[0])
	assert.ErrorIs(t, err, models.ErrTransactionCanceled)
}

func TestCancel_RealizedInstallmentRejected(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)
	f.now = time.Date(2025, time.April, 20, 15, 0, 0, 0, time.UTC)
	inst := f.installments(t, acc.ID, income.ID, "1.00")

	_, err := f.svc.MarkRealized(f.ctx, inst[0].ID, nil)
	require.NoError(t, err)
	_, err = f.svc.Cancel(f.ctx, inst[0].ID)
	assert.ErrorIs(t, err, models.ErrCancelRealized)
}

func TestMarkRealized_ProjectionNotPayable(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)
	inst := f.installments(t, acc.ID, income.ID, "1.00")
	inst[0].IsProjection = true
	require.NoError(t, f.storage.Ledger().SaveTransaction(f.ctx, inst[0]))

	_, err := f.svc.MarkRealized(f.ctx, inst[0].ID, nil)
	assert.ErrorIs(t, err, models.ErrProjectionNotPayable)
}

func TestUpdateTransaction(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)
	tx := f.entry(t, models.KindIncome, "10", models.Date(2025, 4, 1), acc.ID, income.ID)

	tx.DueDate = models.Date(2025, 3, 1)
	tx.Amount = decimal.RequireFromString("12.50")
	updated, err := f.svc.UpdateTransaction(f.ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOverdue, updated.Status)
	assert.Equal(t, "12.50", updated.Amount.StringFixed(2))

	inst := f.installments(t, acc.ID, income.ID, "1.00", "2.00")
	changed := inst[0].Clone()
	changed.Amount = decimal.NewFromInt(5)
	_, err = f.svc.UpdateTransaction(f.ctx, changed)
	assert.ErrorIs(t, err, models.ErrInstallmentFieldsManaged)

	changed = inst[0].Clone()
	changed.Notes = "call before visiting"
	updated, err = f.svc.UpdateTransaction(f.ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, "call before visiting", updated.Notes)
	assert.True(t, updated.IsInstallment)
}

func TestDeleteTransaction(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)
	realized := f.entry(t, models.KindIncome, "10", models.Date(2025, 3, 1), acc.ID, income.ID)
	_, err := f.svc.MarkRealized(f.ctx, realized.ID, nil)
	require.NoError(t, err)
	open := f.entry(t, models.KindIncome, "10", models.Date(2025, 4, 1), acc.ID, income.ID)
	inst := f.installments(t, acc.ID, income.ID, "1.00")

	assert.ErrorIs(t, f.svc.DeleteTransaction(f.ctx, realized.ID), models.ErrDeleteRealized)
	assert.ErrorIs(t, f.svc.DeleteTransaction(f.ctx, inst[0].ID), models.ErrDeleteInstallment)
	require.NoError(t, f.svc.DeleteTransaction(f.ctx, open.ID))
	_, err = f.svc.GetTransaction(f.ctx, open.ID)
	assert.ErrorIs(t, err, models.ErrTransactionNotFound)
}

func TestRefreshStatuses(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)
	soon := f.entry(t, models.KindIncome, "10", models.Date(2025, 3, 20), acc.ID, income.ID)
	f.entry(t, models.KindIncome, "10", models.Date(2025, 5, 1), acc.ID, income.ID)

	changed, err := f.svc.RefreshStatuses(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)

	f.now = time.Date(2025, time.March, 25, 15, 0, 0, 0, time.UTC)
	changed, err = f.svc.RefreshStatuses(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	got, err := f.svc.GetTransaction(f.ctx, soon.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOverdue, got.Status)
}

func TestUserScope(t *testing.T) {
	f := newFixture(t)
	acc := f.account(t, "Main", "0", true)
	income := f.category(t, "Serviços", models.KindIncome)
	tx := f.entry(t, models.KindIncome, "10", models.Date(2025, 4, 1), acc.ID, income.ID)

	other := common.WithUserContext(context.Background(), &common.UserContext{UserID: "u2"})
	_, err := f.svc.GetTransaction(other, tx.ID)
	assert.ErrorIs(t, err, models.ErrTransactionNotFound)
	_, err = f.svc.GetAccount(other, acc.ID)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)

	list, err := f.svc.ListTransactions(other, models.TransactionFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, list, "a scoped caller cannot widen the user filter")

	staff := common.WithUserContext(context.Background(), &common.UserContext{UserID: "u2", AllUsers: true})
	list, err = f.svc.ListTransactions(staff, models.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
