package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(common.NewSilentLogger(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func seedAccount(t *testing.T, store interfaces.LedgerStore, id, userID string, primary bool) *models.Account {
	t.Helper()
	a := &models.Account{
		ID:             id,
		UserID:         userID,
		Name:           "Account " + id,
		Type:           models.AccountChecking,
		OpeningBalance: decimal.RequireFromString("100.50"),
		Active:         true,
		IsPrimary:      primary,
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
	}
	require.NoError(t, store.SaveAccount(context.Background(), a))
	return a
}

func seedCategory(t *testing.T, store interfaces.LedgerStore, id, name string, kind models.Kind) *models.Category {
	t.Helper()
	c := &models.Category{ID: id, Name: name, Kind: kind, Active: true, CreatedAt: fixedNow, UpdatedAt: fixedNow}
	require.NoError(t, store.SaveCategory(context.Background(), c))
	return c
}

func newTx(id string, amount string, due time.Time) *models.Transaction {
	return &models.Transaction{
		ID:          id,
		UserID:      "u1",
		Kind:        models.KindIncome,
		Status:      models.StatusPending,
		Description: "entry " + id,
		Amount:      decimal.RequireFromString(amount),
		DueDate:     due,
		AccountID:   "acc1",
		CategoryID:  "cat1",
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	m1, err := Open(common.NewSilentLogger(), path)
	require.NoError(t, err)
	require.NoError(t, m1.Close())

	m2, err := Open(common.NewSilentLogger(), path)
	require.NoError(t, err)
	require.NoError(t, m2.Close())
}

func TestSaveAccount_SinglePrimaryPerUser(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	store := m.Ledger()

	seedAccount(t, store, "a1", "u1", true)
	seedAccount(t, store, "a2", "u1", false)
	seedAccount(t, store, "b1", "u2", true)

	a2, err := store.GetAccount(ctx, "a2")
	require.NoError(t, err)
	a2.IsPrimary = true
	require.NoError(t, m.Atomic(ctx, func(s interfaces.LedgerStore) error {
		return s.SaveAccount(ctx, a2)
	}))

	accounts, err := store.ListAccounts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	primaries := 0
	for _, a := range accounts {
		if a.IsPrimary {
			primaries++
			assert.Equal(t, "a2", a.ID)
		}
	}
	assert.Equal(t, 1, primaries)

	other, err := store.GetAccount(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, other.IsPrimary, "other users keep their primary account")
	assert.True(t, other.OpeningBalance.Equal(decimal.RequireFromString("100.5")))
}

func TestGet_MissingReturnsNil(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	a, err := m.Ledger().GetAccount(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, a)

	c, err := m.Ledger().GetCategory(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, c)

	tx, err := m.Ledger().GetTransaction(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestSaveCategory_DuplicateNameAndKind(t *testing.T) {
	m := newTestManager(t)
	store := m.Ledger()

	seedCategory(t, store, "c1", "Aluguel", models.KindExpense)
	seedCategory(t, store, "c2", "Aluguel", models.KindIncome)

	dup := &models.Category{ID: "c3", Name: "aluguel", Kind: models.KindExpense, Active: true, CreatedAt: fixedNow, UpdatedAt: fixedNow}
	err := store.SaveCategory(context.Background(), dup)
	assert.True(t, errors.Is(err, models.ErrDuplicateCategory), "got %v", err)

	expense, err := store.ListCategories(context.Background(), models.KindExpense, true)
	require.NoError(t, err)
	require.Len(t, expense, 1)
	assert.Equal(t, "c1", expense[0].ID)
}

func TestTransaction_RoundTripsAllFields(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	store := m.Ledger()
	seedAccount(t, store, "acc1", "u1", true)
	seedCategory(t, store, "cat1", "Serviços", models.KindIncome)

	group := &models.InstallmentGroup{
		ID: "g1", UserID: "u1", WorkOrderID: "wo-1", Kind: models.KindIncome,
		Total: decimal.RequireFromString("1000"), Count: 3,
		FirstDueDate: models.Date(2025, time.January, 31), CreatedAt: fixedNow,
	}
	require.NoError(t, store.CreateInstallmentGroup(ctx, group))

	paid := models.Date(2025, time.March, 1)
	issued := models.Date(2025, time.February, 1)
	tx := newTx("t1", "333.34", models.Date(2025, time.February, 28))
	tx.WorkOrderID = "wo-1"
	tx.Status = models.StatusRealized
	tx.PaymentDate = &paid
	tx.PaymentMethod = models.PaymentBoleto
	tx.IsInstallment = true
	tx.InstallmentGroupID = "g1"
	tx.InstallmentNumber = 3
	tx.InstallmentTotal = 3
	tx.Invoice = models.Document{Number: "NF-77", IssuedOn: &issued, City: "Campinas", Payload: json.RawMessage(`{"serie":"A"}`)}
	tx.Boleto = models.Document{Number: "23790.0000", IssuedOn: &issued}
	require.NoError(t, store.SaveTransaction(ctx, tx))

	got, err := store.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("333.34")))
	assert.Equal(t, models.StatusRealized, got.Status)
	assert.Equal(t, paid, *got.PaymentDate)
	assert.Equal(t, "g1", got.InstallmentGroupID)
	assert.Equal(t, 3, got.InstallmentNumber)
	assert.Equal(t, "NF-77", got.Invoice.Number)
	assert.JSONEq(t, `{"serie":"A"}`, string(got.Invoice.Payload))
	assert.Equal(t, issued, *got.Boleto.IssuedOn)
	assert.Equal(t, fixedNow, got.CreatedAt)
}

func TestListTransactions_Filters(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	store := m.Ledger()
	seedAccount(t, store, "acc1", "u1", true)
	seedCategory(t, store, "cat1", "Serviços", models.KindIncome)

	paid := models.Date(2025, time.February, 20)
	t1 := newTx("t1", "10", models.Date(2025, time.February, 10))
	t1.Status = models.StatusRealized
	t1.PaymentDate = &paid
	t2 := newTx("t2", "20", models.Date(2025, time.March, 10))
	t3 := newTx("t3", "30", models.Date(2025, time.April, 10))
	t3.UserID = "u2"
	for _, tx := range []*models.Transaction{t3, t2, t1} {
		require.NoError(t, store.SaveTransaction(ctx, tx))
	}

	all, err := store.ListTransactions(ctx, models.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"t1", "t2", "t3"}, []string{all[0].ID, all[1].ID, all[2].ID}, "ordered by due date")

	from := models.Date(2025, time.March, 1)
	to := models.Date(2025, time.March, 31)
	march, err := store.ListTransactions(ctx, models.TransactionFilter{DueFrom: &from, DueTo: &to})
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, "t2", march[0].ID)

	febPaid := models.Date(2025, time.February, 1)
	realized, err := store.ListTransactions(ctx, models.TransactionFilter{
		UserID: "u1", Statuses: []models.Status{models.StatusRealized}, PaidFrom: &febPaid,
	})
	require.NoError(t, err)
	require.Len(t, realized, 1)
	assert.Equal(t, "t1", realized[0].ID)

	limited, err := store.ListTransactions(ctx, models.TransactionFilter{Limit: 2, IsInstallment: models.Bool(false)})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestInstallmentGroup_OneActivePerWorkOrder(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	store := m.Ledger()

	g1 := &models.InstallmentGroup{ID: "g1", UserID: "u1", WorkOrderID: "wo-9", Kind: models.KindIncome,
		Total: decimal.NewFromInt(100), Count: 2, FirstDueDate: models.Date(2025, 1, 1), CreatedAt: fixedNow}
	require.NoError(t, store.CreateInstallmentGroup(ctx, g1))

	g2 := *g1
	g2.ID = "g2"
	err := store.CreateInstallmentGroup(ctx, &g2)
	assert.True(t, errors.Is(err, models.ErrActiveGroupExists), "got %v", err)

	canceled := fixedNow.Add(time.Hour)
	g1.CanceledAt = &canceled
	require.NoError(t, store.CancelInstallmentGroup(ctx, g1))
	require.NoError(t, store.CreateInstallmentGroup(ctx, &g2), "a canceled group releases the work order")

	groups, err := store.ListInstallmentGroups(ctx, "wo-9")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	activeCount := 0
	for _, g := range groups {
		if g.Active() {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)

	// groups without a work order never collide
	ad1 := &models.InstallmentGroup{ID: "ad1", UserID: "u1", Kind: models.KindExpense,
		Total: decimal.NewFromInt(90), Count: 3, FirstDueDate: models.Date(2025, 1, 1), CreatedAt: fixedNow}
	ad2 := *ad1
	ad2.ID = "ad2"
	require.NoError(t, store.CreateInstallmentGroup(ctx, ad1))
	require.NoError(t, store.CreateInstallmentGroup(ctx, &ad2))
}

func TestSaveTransaction_UniqueConstraints(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	store := m.Ledger()
	seedAccount(t, store, "acc1", "u1", true)
	seedCategory(t, store, "cat1", "Serviços", models.KindIncome)

	a := newTx("a", "10", models.Date(2025, 3, 1))
	a.Invoice.Number = "NF-1"
	require.NoError(t, store.SaveTransaction(ctx, a))

	b := newTx("b", "10", models.Date(2025, 3, 1))
	b.Invoice.Number = "NF-1"
	assert.True(t, errors.Is(store.SaveTransaction(ctx, b), models.ErrDuplicateInvoice))

	w1 := newTx("w1", "10", models.Date(2025, 3, 1))
	w1.WorkOrderID = "wo-1"
	require.NoError(t, store.SaveTransaction(ctx, w1))
	w2 := newTx("w2", "10", models.Date(2025, 3, 1))
	w2.WorkOrderID = "wo-1"
	assert.True(t, errors.Is(store.SaveTransaction(ctx, w2), models.ErrWorkOrderHasEntry))

	w1.Status = models.StatusCanceled
	require.NoError(t, store.SaveTransaction(ctx, w1))
	require.NoError(t, store.SaveTransaction(ctx, w2), "a canceled entry no longer blocks the work order")
}

func TestDeleteAccount_InUse(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	store := m.Ledger()
	seedAccount(t, store, "acc1", "u1", true)
	seedAccount(t, store, "acc2", "u1", false)
	seedCategory(t, store, "cat1", "Serviços", models.KindIncome)
	require.NoError(t, store.SaveTransaction(ctx, newTx("t1", "10", models.Date(2025, 3, 1))))

	assert.True(t, errors.Is(store.DeleteAccount(ctx, "acc1"), models.ErrAccountInUse))
	require.NoError(t, store.DeleteAccount(ctx, "acc2"))

	gone, err := store.GetAccount(ctx, "acc2")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestAtomic_RollsBackOnError(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	seedAccount(t, m.Ledger(), "acc1", "u1", true)
	seedCategory(t, m.Ledger(), "cat1", "Serviços", models.KindIncome)

	boom := errors.New("boom")
	err := m.Atomic(ctx, func(s interfaces.LedgerStore) error {
		if err := s.SaveTransaction(ctx, newTx("t1", "10", models.Date(2025, 3, 1))); err != nil {
			return err
		}
		if err := s.SaveTransaction(ctx, newTx("t2", "10", models.Date(2025, 3, 1))); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	txs, err := m.Ledger().ListTransactions(ctx, models.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs, "no partial writes survive a failed atomic unit")
}

func TestSnapshot_RejectsWrites(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	err := m.Snapshot(ctx, func(s interfaces.LedgerStore) error {
		if _, err := s.ListAccounts(ctx, ""); err != nil {
			return err
		}
		return s.SaveCategory(ctx, &models.Category{ID: "c", Name: "x", Kind: models.KindIncome, CreatedAt: fixedNow, UpdatedAt: fixedNow})
	})
	assert.ErrorIs(t, err, errReadOnly)
}
