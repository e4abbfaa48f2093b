package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/models"
)

const accountColumns = `id, user_id, name, bank_code, bank_name, agency, agency_digit,
	number, number_digit, type, opening_balance, active, is_primary, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a                    models.Account
		accountType          string
		opening              decimal.Decimal
		active, primary      int
		createdAt, updatedAt string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.BankCode, &a.BankName, &a.Agency, &a.AgencyDigit,
		&a.Number, &a.NumberDigit, &accountType, &opening, &active, &primary, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Type = models.AccountType(accountType)
	a.OpeningBalance = opening
	a.Active = active == 1
	a.IsPrimary = primary == 1

	var err error
	if a.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts"
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY name COLLATE NOCASE, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Store) SaveAccount(ctx context.Context, a *models.Account) error {
	if a.IsPrimary {
		if _, err := s.exec(ctx,
			"UPDATE accounts SET is_primary = 0, updated_at = ? WHERE user_id = ? AND id <> ? AND is_primary = 1",
			formatTimestamp(a.UpdatedAt), a.UserID, a.ID); err != nil {
			return fmt.Errorf("failed to clear primary flag: %w", err)
		}
	}

	_, err := s.exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id, name = excluded.name,
			bank_code = excluded.bank_code, bank_name = excluded.bank_name,
			agency = excluded.agency, agency_digit = excluded.agency_digit,
			number = excluded.number, number_digit = excluded.number_digit,
			type = excluded.type, opening_balance = excluded.opening_balance,
			active = excluded.active, is_primary = excluded.is_primary,
			updated_at = excluded.updated_at`,
		a.ID, a.UserID, a.Name, a.BankCode, a.BankName, a.Agency, a.AgencyDigit,
		a.Number, a.NumberDigit, string(a.Type), a.OpeningBalance.String(),
		boolInt(a.Active), boolInt(a.IsPrimary), formatTimestamp(a.CreatedAt), formatTimestamp(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, "DELETE FROM accounts WHERE id = ?", id); err != nil {
		if isForeignKeyViolation(err) {
			return models.ErrAccountInUse
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
