// Package installment splits totals into installment schedules and bills closed work orders
package installment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
	"github.com/bobmcallan/fieldledger/internal/services/ledger"
)

// Compile-time interface check
var _ interfaces.InstallmentService = (*Service)(nil)

const workOrderNote = "Conta a receber gerada a partir de OS encerrada."

// Service implements InstallmentService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	now     common.Clock
	loc     *time.Location
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(clock common.Clock) Option {
	return func(s *Service) { s.now = clock }
}

// WithLocation sets the timezone that decides the current calendar day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// NewService creates a new installment service
func NewService(storage interfaces.StorageManager, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		logger:  logger,
		now:     common.SystemClock,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return models.Today(s.now(), s.loc)
}

// batch is one split ready to be written.
type batch struct {
	group        *models.InstallmentGroup
	transactions []*models.Transaction
}

// template carries the fields every installment of a batch shares.
type template struct {
	userID        string
	workOrderID   string
	kind          models.Kind
	accountID     string
	categoryID    string
	paymentMethod models.PaymentMethod
	expenseClass  models.ExpenseClass
	serviceTypeID string
	notes         string
	projection    bool
	describe      func(number, total int) string
}

// build splits total over count months starting at first. Amounts and dates
// come from Split and Schedule; each entry's status is derived as of today.
func (s *Service) build(tpl template, total decimal.Decimal, count int, first, today time.Time) (*batch, error) {
	amounts, err := Split(total, count)
	if err != nil {
		return nil, err
	}
	dates := Schedule(first, count)
	now := s.now().UTC()

	group := &models.InstallmentGroup{
		ID:           uuid.NewString(),
		UserID:       tpl.userID,
		WorkOrderID:  tpl.workOrderID,
		Kind:         tpl.kind,
		Total:        total,
		Count:        count,
		FirstDueDate: dates[0],
		CreatedAt:    now,
	}

	txs := make([]*models.Transaction, count)
	for i := range txs {
		tx := &models.Transaction{
			ID:                 uuid.NewString(),
			UserID:             tpl.userID,
			WorkOrderID:        tpl.workOrderID,
			Kind:               tpl.kind,
			Status:             models.StatusPending,
			Description:        tpl.describe(i+1, count),
			Amount:             amounts[i],
			DueDate:            dates[i],
			PaymentMethod:      tpl.paymentMethod,
			AccountID:          tpl.accountID,
			CategoryID:         tpl.categoryID,
			Notes:              tpl.notes,
			ExpenseClass:       tpl.expenseClass,
			RecurrencePeriod:   models.RecurrenceOnce,
			ServiceTypeID:      tpl.serviceTypeID,
			IsInstallment:      true,
			IsProjection:       tpl.projection,
			InstallmentGroupID: group.ID,
			InstallmentNumber:  i + 1,
			InstallmentTotal:   count,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		ledger.ApplyStatus(tx, today)
		txs[i] = tx
	}

	return &batch{group: group, transactions: txs}, nil
}

// verify re-sums a batch. A mismatch means Split is broken; the unit aborts.
func (s *Service) verify(b *batch) error {
	if got := sum(b.transactions); !got.Equal(b.group.Total) {
		s.logger.Error().Str("group_id", b.group.ID).Str("total", b.group.Total.StringFixed(2)).
			Str("sum", got.StringFixed(2)).Int("count", b.group.Count).Msg("Installment split does not add up to the group total")
		return models.ErrSplitMismatch.WithMessage("installments sum to %s, expected %s",
			got.StringFixed(2), b.group.Total.StringFixed(2))
	}
	return nil
}

// write persists a verified batch inside the caller's atomic unit.
func write(ctx context.Context, store interfaces.LedgerStore, b *batch) error {
	if err := store.CreateInstallmentGroup(ctx, b.group); err != nil {
		return err
	}
	for _, tx := range b.transactions {
		if err := store.SaveTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to save installment %d/%d: %w", tx.InstallmentNumber, tx.InstallmentTotal, err)
		}
	}
	return nil
}

// guardWorkOrder refuses a new group while another is active, asks for
// confirmation before replacing a canceled one and refuses a work order that
// already has a realized entry. It returns the work order's entries.
func guardWorkOrder(ctx context.Context, store interfaces.LedgerStore, workOrderID string, confirmed bool) ([]*models.Transaction, error) {
	groups, err := store.ListInstallmentGroups(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.Active() {
			return nil, models.ErrActiveGroupExists
		}
	}
	if len(groups) > 0 && !confirmed {
		return nil, models.ErrRegenerationUnconfirmed.WithField("confirm_regenerate")
	}

	entries, err := store.ListTransactions(ctx, models.TransactionFilter{WorkOrderID: workOrderID})
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsRealized() {
			return nil, models.ErrWorkOrderAlreadyPaid
		}
	}
	return entries, nil
}

func result(b *batch, superseded []string) *models.InstallmentResult {
	ids := make([]string, len(b.transactions))
	for i, tx := range b.transactions {
		ids[i] = tx.ID
	}
	return &models.InstallmentResult{
		GroupID:        b.group.ID,
		TransactionIDs: ids,
		Transactions:   b.transactions,
		SupersededIDs:  superseded,
	}
}

// Generate creates an ad hoc installment schedule. Entries are not projections:
// each is derived normally, so past-due installments land in overdue.
func (s *Service) Generate(ctx context.Context, req models.InstallmentRequest) (*models.InstallmentResult, error) {
	if !models.ValidKind(req.Kind) {
		return nil, models.ErrInvalidKind.WithField("kind")
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, models.ErrRequiredField.WithField("description")
	}
	if req.FirstDueDate.IsZero() {
		return nil, models.ErrMissingDueDate.WithField("first_due_date")
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return nil, models.ErrInvalidField.WithField("payment_method").
			WithMessage("invalid payment method %q; must be pix, ted, card or boleto", req.PaymentMethod)
	}
	if !models.ValidExpenseClass(req.ExpenseClass) || (req.ExpenseClass != "" && req.Kind != models.KindExpense) {
		return nil, models.ErrInvalidField.WithField("expense_class").
			WithMessage("invalid expense class %q for a %s entry", req.ExpenseClass, req.Kind)
	}

	today := s.today()
	tpl := template{
		userID:        common.ResolveUserID(ctx),
		workOrderID:   strings.TrimSpace(req.WorkOrderID),
		kind:          req.Kind,
		accountID:     req.AccountID,
		categoryID:    req.CategoryID,
		paymentMethod: req.PaymentMethod,
		expenseClass:  req.ExpenseClass,
		serviceTypeID: req.ServiceTypeID,
		notes:         req.Notes,
		describe: func(number, total int) string {
			return fmt.Sprintf("%s (%d/%d)", desc, number, total)
		},
	}
	b, err := s.build(tpl, req.Total, req.Count, req.FirstDueDate, today)
	if err != nil {
		return nil, err
	}
	if err := s.verify(b); err != nil {
		return nil, err
	}

	err = s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		if err := ledger.ValidateReferences(ctx, store, b.transactions[0]); err != nil {
			return err
		}
		if tpl.workOrderID != "" {
			if _, err := guardWorkOrder(ctx, store, tpl.workOrderID, req.ConfirmRegenerate); err != nil {
				return err
			}
		}
		return write(ctx, store, b)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("group_id", b.group.ID).Str("kind", string(req.Kind)).
		Str("total", req.Total.StringFixed(2)).Int("count", req.Count).Msg("Installments generated")
	return result(b, nil), nil
}

// BillWorkOrder turns a closed work order into receivable projection installments.
// Earlier unrealized non-installment entries of the work order are canceled in
// the same write.
func (s *Service) BillWorkOrder(ctx context.Context, req models.WorkOrderBilling) (*models.InstallmentResult, error) {
	workOrderID := strings.TrimSpace(req.WorkOrderID)
	if workOrderID == "" {
		return nil, models.ErrRequiredField.WithField("work_order_id")
	}
	if !req.Total.IsPositive() {
		return nil, models.ErrMissingBillableAmount.WithField("total")
	}
	if !models.ValidAmount(req.Total) {
		return nil, models.ErrInvalidAmount.WithField("total")
	}
	if req.Count < 1 || req.Count > models.MaxInstallments {
		return nil, models.ErrInvalidInstallmentCount.WithField("count")
	}
	if req.FirstDueDate.IsZero() {
		return nil, models.ErrMissingDueDate.WithField("first_due_date")
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return nil, models.ErrInvalidField.WithField("payment_method").
			WithMessage("invalid payment method %q; must be pix, ted, card or boleto", req.PaymentMethod)
	}

	code := strings.TrimSpace(req.WorkOrderCode)
	if code == "" {
		code = workOrderID
	}
	today := s.today()
	userID := common.ResolveUserID(ctx)

	var (
		b          *batch
		superseded []string
	)
	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		entries, err := guardWorkOrder(ctx, store, workOrderID, req.ConfirmRegenerate)
		if err != nil {
			return err
		}
		var prior []*models.Transaction
		for _, e := range entries {
			if !e.IsInstallment && !e.IsCanceled() {
				prior = append(prior, e)
			}
		}

		accountID, categoryID, err := resolveDefaults(ctx, store, userID, req, prior)
		if err != nil {
			return err
		}

		tpl := template{
			userID:        userID,
			workOrderID:   workOrderID,
			kind:          models.KindIncome,
			accountID:     accountID,
			categoryID:    categoryID,
			paymentMethod: req.PaymentMethod,
			serviceTypeID: req.ServiceTypeID,
			notes:         workOrderNote,
			projection:    true,
			describe: func(number, total int) string {
				return fmt.Sprintf("OS %s - Parcela %d/%d", code, number, total)
			},
		}
		b, err = s.build(tpl, req.Total, req.Count, req.FirstDueDate, today)
		if err != nil {
			return err
		}
		if err := s.verify(b); err != nil {
			return err
		}
		if err := ledger.ValidateReferences(ctx, store, b.transactions[0]); err != nil {
			return err
		}

		now := s.now().UTC()
		for _, e := range prior {
			e.Status = models.StatusCanceled
			e.PaymentDate = nil
			e.UpdatedAt = now
			if err := store.SaveTransaction(ctx, e); err != nil {
				return fmt.Errorf("failed to supersede transaction %s: %w", e.ID, err)
			}
			superseded = append(superseded, e.ID)
		}

		return write(ctx, store, b)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("work_order_id", workOrderID).Str("group_id", b.group.ID).
		Str("total", req.Total.StringFixed(2)).Int("count", req.Count).
		Int("superseded", len(superseded)).Msg("Work order billed")
	return result(b, superseded), nil
}

// resolveDefaults picks the receivable account and category: explicit request
// values, then the work order's prior entry, then the user's primary active
// account and the first active income category by name.
func resolveDefaults(ctx context.Context, store interfaces.LedgerStore, userID string, req models.WorkOrderBilling, prior []*models.Transaction) (string, string, error) {
	accountID, categoryID := req.AccountID, req.CategoryID
	for _, p := range prior {
		if accountID == "" {
			accountID = p.AccountID
		}
		if categoryID == "" && p.Kind == models.KindIncome {
			categoryID = p.CategoryID
		}
	}

	if accountID == "" {
		accounts, err := store.ListAccounts(ctx, userID)
		if err != nil {
			return "", "", err
		}
		for _, a := range accounts {
			if a.IsPrimary && a.Active {
				accountID = a.ID
				break
			}
		}
	}
	if categoryID == "" {
		categories, err := store.ListCategories(ctx, models.KindIncome, true)
		if err != nil {
			return "", "", err
		}
		if len(categories) > 0 {
			categoryID = categories[0].ID
		}
	}

	if accountID == "" || categoryID == "" {
		return "", "", models.ErrNoDefaultReceivable
	}
	return accountID, categoryID, nil
}
