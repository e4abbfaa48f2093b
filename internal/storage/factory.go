// Package storage selects the ledger storage backend.
package storage

import (
	"fmt"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/storage/sqlite"
	"github.com/bobmcallan/fieldledger/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendSQLite    = "sqlite"
	BackendSurrealDB = "surrealdb"
)

// NewStorageManager creates the storage manager named by storage.backend.
// Supported backends: "sqlite" (default), "surrealdb".
func NewStorageManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = BackendSQLite
	}

	switch backend {
	case BackendSQLite:
		return sqlite.NewManager(logger, config)

	case BackendSurrealDB:
		return surrealdb.NewManager(logger, config)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: sqlite, surrealdb)", backend)
	}
}
