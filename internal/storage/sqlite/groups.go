package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/models"
)

const groupColumns = `id, user_id, work_order_id, kind, total, count, first_due_date, canceled_at, created_at`

func scanGroup(row rowScanner) (*models.InstallmentGroup, error) {
	var (
		g                   models.InstallmentGroup
		kind, firstDue, cat string
		total               decimal.Decimal
		canceledAt          sql.NullString
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.WorkOrderID, &kind, &total, &g.Count, &firstDue, &canceledAt, &cat); err != nil {
		return nil, err
	}
	g.Kind = models.Kind(kind)
	g.Total = total

	var err error
	if g.FirstDueDate, err = models.ParseDate(firstDue); err != nil {
		return nil, err
	}
	if canceledAt.Valid {
		ts, err := parseTimestamp(canceledAt.String)
		if err != nil {
			return nil, err
		}
		g.CanceledAt = &ts
	}
	if g.CreatedAt, err = parseTimestamp(cat); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) CreateInstallmentGroup(ctx context.Context, g *models.InstallmentGroup) error {
	_, err := s.exec(ctx, "INSERT INTO installment_groups ("+groupColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?)",
		g.ID, g.UserID, g.WorkOrderID, string(g.Kind), g.Total.String(), g.Count,
		models.FormatDate(g.FirstDueDate), formatTimestamp(g.CreatedAt))
	if err != nil {
		if isUniqueViolation(err, "installment_groups.work_order_id") {
			return models.ErrActiveGroupExists.Wrap(err)
		}
		return fmt.Errorf("failed to create installment group: %w", err)
	}
	return nil
}

func (s *Store) GetInstallmentGroup(ctx context.Context, id string) (*models.InstallmentGroup, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+groupColumns+" FROM installment_groups WHERE id = ?", id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installment group: %w", err)
	}
	return g, nil
}

func (s *Store) ListInstallmentGroups(ctx context.Context, workOrderID string) ([]*models.InstallmentGroup, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+groupColumns+" FROM installment_groups WHERE work_order_id = ? ORDER BY created_at DESC, id", workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list installment groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.InstallmentGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) CancelInstallmentGroup(ctx context.Context, g *models.InstallmentGroup) error {
	if g.CanceledAt == nil {
		return fmt.Errorf("installment group %s has no cancel time", g.ID)
	}
	if _, err := s.exec(ctx, "UPDATE installment_groups SET canceled_at = ? WHERE id = ? AND canceled_at IS NULL",
		formatTimestamp(*g.CanceledAt), g.ID); err != nil {
		return fmt.Errorf("failed to cancel installment group: %w", err)
	}
	return nil
}
