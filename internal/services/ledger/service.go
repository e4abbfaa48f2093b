// Package ledger manages accounts, categories and the transaction lifecycle
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
)

// Compile-time interface check
var _ interfaces.LedgerService = (*Service)(nil)

// Service implements LedgerService
type Service struct {
	storage interfaces.StorageManager
	banks   interfaces.BankDirectory
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

// NewService creates a new ledger service. banks may be nil, in which case
// account bank names are stored as given.
func NewService(storage interfaces.StorageManager, banks interfaces.BankDirectory, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		banks:   banks,
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

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

func newID() string {
	return uuid.NewString()
}

// visible reports whether a record owned by ownerID is in the caller's scope.
func visible(ctx context.Context, ownerID string) bool {
	scope := common.ResolveScopeUserID(ctx)
	return scope == "" || scope == ownerID
}
