// Package report builds the income statement (DRE), the cashflow sheet and the headline summary
package report

import (
	"context"
	"time"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
	"github.com/bobmcallan/fieldledger/internal/services/classify"
)

// Compile-time interface check
var _ interfaces.ReportService = (*Service)(nil)

// Service implements ReportService
type Service struct {
	storage    interfaces.StorageManager
	classifier *classify.Classifier
	logger     *common.Logger
	now        common.Clock
	loc        *time.Location
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

// NewService creates a new report service. A nil classifier uses the default rule table.
func NewService(storage interfaces.StorageManager, classifier *classify.Classifier, logger *common.Logger, opts ...Option) *Service {
	if classifier == nil {
		classifier = classify.New()
	}
	s := &Service{
		storage:    storage,
		classifier: classifier,
		logger:     logger,
		now:        common.SystemClock,
		loc:        time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return models.Today(s.now(), s.loc)
}

// normalizeQuery validates the range and phase and pins the user filter to the caller's scope.
func normalizeQuery(ctx context.Context, q models.ReportQuery) (models.ReportQuery, error) {
	if q.From.IsZero() {
		return q, models.ErrRequiredField.WithField("from")
	}
	if q.To.IsZero() {
		return q, models.ErrRequiredField.WithField("to")
	}
	q.From = models.DateOf(q.From)
	q.To = models.DateOf(q.To)
	if q.From.After(q.To) {
		return q, models.ErrInvalidRange
	}
	if q.Phase == "" {
		q.Phase = models.PhaseRealized
	}
	if !models.ValidPhase(q.Phase) {
		return q, models.ErrInvalidField.WithField("phase").
			WithMessage("invalid phase %q; must be realized or projected", q.Phase)
	}
	if scope := common.ResolveScopeUserID(ctx); scope != "" {
		q.UserID = scope
	}
	return q, nil
}

// months lists the calendar months from the month of from to the month of to.
func months(from, to time.Time) []models.MonthColumn {
	var cols []models.MonthColumn
	end := models.MonthStart(to)
	for cursor := models.MonthStart(from); !cursor.After(end); cursor = models.AddMonths(cursor, 1) {
		cols = append(cols, models.NewMonthColumn(cursor))
	}
	return cols
}

// monthIndex returns the column of d relative to the first month, or -1 when out of range.
func monthIndex(first time.Time, n int, d time.Time) int {
	i := (d.Year()-first.Year())*12 + int(d.Month()) - int(first.Month())
	if i < 0 || i >= n {
		return -1
	}
	return i
}

// phaseFilter selects the entries a phase aggregates over [from, to].
func phaseFilter(q models.ReportQuery) models.TransactionFilter {
	f := models.TransactionFilter{
		UserID:     q.UserID,
		AccountID:  q.AccountID,
		CategoryID: q.CategoryID,
	}
	from, to := q.From, q.To
	if q.Phase == models.PhaseProjected {
		f.Statuses = []models.Status{models.StatusPending, models.StatusOverdue}
		f.DueFrom, f.DueTo = &from, &to
	} else {
		f.Statuses = []models.Status{models.StatusRealized}
		f.PaidFrom, f.PaidTo = &from, &to
	}
	return f
}

// bucketDate is the date a phase files an entry under.
func bucketDate(phase models.Phase, tx *models.Transaction) time.Time {
	if phase == models.PhaseRealized && tx.PaymentDate != nil {
		return *tx.PaymentDate
	}
	return tx.DueDate
}

// dataset is everything a report reads, loaded from one snapshot.
type dataset struct {
	months       []models.MonthColumn
	first        time.Time
	transactions []*models.Transaction
	categories   map[string]*models.Category
	accounts     []*models.Account
}

func (d *dataset) index(phase models.Phase, tx *models.Transaction) int {
	return monthIndex(d.first, len(d.months), bucketDate(phase, tx))
}

// load reads transactions, categories and the accounts in scope inside one snapshot.
func (s *Service) load(ctx context.Context, q models.ReportQuery) (*dataset, error) {
	d := &dataset{
		months:     months(q.From, q.To),
		first:      models.MonthStart(q.From),
		categories: make(map[string]*models.Category),
	}
	err := s.storage.Snapshot(ctx, func(store interfaces.LedgerStore) error {
		txs, err := store.ListTransactions(ctx, phaseFilter(q))
		if err != nil {
			return err
		}
		d.transactions = txs

		cats, err := store.ListCategories(ctx, "", false)
		if err != nil {
			return err
		}
		for _, c := range cats {
			d.categories[c.ID] = c
		}

		d.accounts, err = accountsInScope(ctx, store, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// accountsInScope returns the active accounts a balance starts from: the
// filtered account, else the filtered user's, else every account.
func accountsInScope(ctx context.Context, store interfaces.LedgerStore, q models.ReportQuery) ([]*models.Account, error) {
	if q.AccountID != "" {
		a, err := store.GetAccount(ctx, q.AccountID)
		if err != nil {
			return nil, err
		}
		if a == nil || !a.Active || (q.UserID != "" && a.UserID != q.UserID) {
			return nil, nil
		}
		return []*models.Account{a}, nil
	}

	all, err := store.ListAccounts(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, a := range all {
		if a.Active {
			active = append(active, a)
		}
	}
	return active, nil
}
