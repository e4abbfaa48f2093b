package interfaces

import (
	"context"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// BankCatalogClient fetches the bank catalog from an external source
type BankCatalogClient interface {
	// ListBanks returns every bank the source knows about.
	ListBanks(ctx context.Context) ([]models.Bank, error)
}
