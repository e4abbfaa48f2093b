package surrealdb

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fieldledger/internal/common"
	tcommon "github.com/bobmcallan/fieldledger/tests/common"
)

// testManager connects a Manager to the shared container, using a fresh
// database per test for isolation.
func testManager(t *testing.T) *Manager {
	t.Helper()

	sc := tcommon.StartSurrealDB(t)

	// SurrealDB rejects "/" in database names, which subtests produce.
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbName := fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000)

	config := common.NewDefaultConfig()
	config.Storage.Backend = "surrealdb"
	config.Storage.SurrealDB = sc.Config(dbName)

	m, err := NewManager(common.NewSilentLogger(), config)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}
