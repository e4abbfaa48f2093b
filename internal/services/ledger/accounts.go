package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
)

// SaveAccount creates an account (empty ID) or updates an existing one.
// Saving a primary account clears the flag on the owner's other accounts in the same write.
func (s *Service) SaveAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	a := *account
	a.Name = strings.TrimSpace(a.Name)
	a.BankCode = strings.TrimSpace(a.BankCode)
	if a.Type == "" {
		a.Type = models.AccountChecking
	}
	if err := validateAccount(&a); err != nil {
		return nil, err
	}

	if a.BankCode != "" && a.BankName == "" && s.banks != nil {
		if bank, ok := s.banks.Lookup(ctx, a.BankCode); ok {
			a.BankCode = bank.Code
			a.BankName = bank.Name
		}
	}

	now := s.timestamp()
	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		if a.ID == "" {
			a.ID = newID()
			a.UserID = common.ResolveUserID(ctx)
			a.Active = true
			a.CreatedAt = now
		} else {
			existing, err := store.GetAccount(ctx, a.ID)
			if err != nil {
				return err
			}
			if existing == nil || !visible(ctx, existing.UserID) {
				return models.ErrAccountNotFound
			}
			a.UserID = existing.UserID
			a.CreatedAt = existing.CreatedAt
		}
		a.UpdatedAt = now
		return store.SaveAccount(ctx, &a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("account_id", a.ID).Str("user_id", a.UserID).Bool("primary", a.IsPrimary).Msg("Account saved")
	return &a, nil
}

// GetAccount returns an account in the caller's scope.
func (s *Service) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return getAccount(ctx, s.storage.Ledger(), id)
}

func getAccount(ctx context.Context, store interfaces.LedgerStore, id string) (*models.Account, error) {
	a, err := store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil || !visible(ctx, a.UserID) {
		return nil, models.ErrAccountNotFound
	}
	return a, nil
}

// ListAccounts returns the accounts in the caller's scope ordered by name.
func (s *Service) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.storage.Ledger().ListAccounts(ctx, common.ResolveScopeUserID(ctx))
}

// DeleteAccount removes an account that has no transactions.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		if _, err := getAccount(ctx, store, id); err != nil {
			return err
		}
		used, err := store.ListTransactions(ctx, models.TransactionFilter{AccountID: id, Limit: 1})
		if err != nil {
			return err
		}
		if len(used) > 0 {
			return models.ErrAccountInUse
		}
		return store.DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("account_id", id).Msg("Account deleted")
	return nil
}

// AccountBalance returns opening balance plus realized income minus realized expense.
func (s *Service) AccountBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	var balance models.AccountBalance
	err := s.storage.Snapshot(ctx, func(store interfaces.LedgerStore) error {
		a, err := getAccount(ctx, store, id)
		if err != nil {
			return err
		}
		balance, err = computeBalance(ctx, store, a)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Balance, nil
}

// AccountBalances lists every account in scope with its balance and the total.
func (s *Service) AccountBalances(ctx context.Context) (*models.AccountBalances, error) {
	result := &models.AccountBalances{Accounts: []models.AccountBalance{}, Total: decimal.Zero}
	err := s.storage.Snapshot(ctx, func(store interfaces.LedgerStore) error {
		accounts, err := store.ListAccounts(ctx, common.ResolveScopeUserID(ctx))
		if err != nil {
			return err
		}
		for _, a := range accounts {
			b, err := computeBalance(ctx, store, a)
			if err != nil {
				return err
			}
			result.Accounts = append(result.Accounts, b)
			result.Total = result.Total.Add(b.Balance)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// computeBalance reads the account's realized entries; pending, overdue and
// canceled entries never move a balance.
func computeBalance(ctx context.Context, store interfaces.LedgerStore, a *models.Account) (models.AccountBalance, error) {
	realized, err := store.ListTransactions(ctx, models.TransactionFilter{
		AccountID: a.ID,
		Statuses:  []models.Status{models.StatusRealized},
	})
	if err != nil {
		return models.AccountBalance{}, fmt.Errorf("failed to list realized transactions for account %s: %w", a.ID, err)
	}

	b := models.AccountBalance{
		AccountID:       a.ID,
		Name:            a.Name,
		Active:          a.Active,
		IsPrimary:       a.IsPrimary,
		OpeningBalance:  a.OpeningBalance,
		RealizedIncome:  decimal.Zero,
		RealizedExpense: decimal.Zero,
	}
	for _, tx := range realized {
		switch tx.Kind {
		case models.KindIncome:
			b.RealizedIncome = b.RealizedIncome.Add(tx.Amount)
		case models.KindExpense:
			b.RealizedExpense = b.RealizedExpense.Add(tx.Amount)
		}
	}
	b.Balance = a.OpeningBalance.Add(b.RealizedIncome).Sub(b.RealizedExpense)
	return b, nil
}
