package ledger

import (
	"context"
	"strings"

	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
)

// SaveCategory creates a category (empty ID) or updates an existing one.
// Names are unique per kind, compared trimmed and case-insensitively.
func (s *Service) SaveCategory(ctx context.Context, category *models.Category) (*models.Category, error) {
	c := *category
	c.Name = strings.TrimSpace(c.Name)
	if err := validateCategory(&c); err != nil {
		return nil, err
	}

	now := s.timestamp()
	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		if c.ID == "" {
			c.ID = newID()
			c.Active = true
			c.CreatedAt = now
		} else {
			existing, err := store.GetCategory(ctx, c.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				return models.ErrCategoryNotFound
			}
			if existing.Kind != c.Kind {
				used, err := store.ListTransactions(ctx, models.TransactionFilter{CategoryID: c.ID, Limit: 1})
				if err != nil {
					return err
				}
				if len(used) > 0 {
					return models.ErrCategoryKindMismatch.WithField("kind").
						WithMessage("category has transactions; its kind cannot change")
				}
			}
			c.CreatedAt = existing.CreatedAt
		}

		siblings, err := store.ListCategories(ctx, c.Kind, false)
		if err != nil {
			return err
		}
		for _, other := range siblings {
			if other.ID != c.ID && strings.EqualFold(strings.TrimSpace(other.Name), c.Name) {
				return models.ErrDuplicateCategory.WithField("name")
			}
		}

		c.UpdatedAt = now
		return store.SaveCategory(ctx, &c)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("category_id", c.ID).Str("kind", string(c.Kind)).Msg("Category saved")
	return &c, nil
}

// ListCategories lists categories ordered by name.
func (s *Service) ListCategories(ctx context.Context, kind models.Kind, activeOnly bool) ([]*models.Category, error) {
	if kind != "" && !models.ValidKind(kind) {
		return nil, models.ErrInvalidKind.WithField("kind")
	}
	return s.storage.Ledger().ListCategories(ctx, kind, activeOnly)
}
