package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bobmcallan/fieldledger/internal/models"
)

const categoryColumns = `id, name, kind, statement_group, active, created_at, updated_at`

func scanCategory(row rowScanner) (*models.Category, error) {
	var (
		c                    models.Category
		kind, group          string
		active               int
		createdAt, updatedAt string
	)
	if err := row.Scan(&c.ID, &c.Name, &kind, &group, &active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Kind = models.Kind(kind)
	c.StatementGroup = models.StatementGroup(group)
	c.Active = active == 1

	var err error
	if c.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, kind models.Kind, activeOnly bool) ([]*models.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories WHERE 1 = 1"
	var args []any
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY name COLLATE NOCASE, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) SaveCategory(ctx context.Context, c *models.Category) error {
	_, err := s.exec(ctx, `INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, kind = excluded.kind,
			statement_group = excluded.statement_group, active = excluded.active,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, string(c.Kind), string(c.StatementGroup), boolInt(c.Active),
		formatTimestamp(c.CreatedAt), formatTimestamp(c.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err, "categories.name") {
			return models.ErrDuplicateCategory.Wrap(err)
		}
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}
