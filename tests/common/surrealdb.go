// Package common provides shared test infrastructure
package common

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	appcommon "github.com/bobmcallan/fieldledger/internal/common"
)

const (
	surrealImage    = "surrealdb/surrealdb:v3.0.0"
	surrealUser     = "root"
	surrealPassword = "root"
)

var (
	surrealOnce      sync.Once
	surrealContainer *SurrealDBContainer
	surrealError     error
)

// SurrealDBContainer wraps a testcontainers SurrealDB instance.
type SurrealDBContainer struct {
	container testcontainers.Container
	host      string
	port      string
}

// StartSurrealDB starts one SurrealDB container per test process. Tests are
// skipped under -short or when FIELDLEDGER_SKIP_CONTAINERS is set.
func StartSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()

	if testing.Short() || os.Getenv("FIELDLEDGER_SKIP_CONTAINERS") != "" {
		t.Skip("container tests disabled")
	}

	surrealOnce.Do(func() {
		surrealContainer, surrealError = startSurrealDB(context.Background())
	})

	if surrealError != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealError)
	}
	return surrealContainer
}

func startSurrealDB(ctx context.Context) (*SurrealDBContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        surrealImage,
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"start", "--user", surrealUser, "--pass", surrealPassword},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("8000/tcp"),
			wait.ForLog("Started web server"),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start SurrealDB container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get SurrealDB host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, "8000/tcp")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get SurrealDB port: %w", err)
	}

	return &SurrealDBContainer{container: container, host: host, port: mappedPort.Port()}, nil
}

// Address returns the WebSocket RPC address for SurrealDB.
func (c *SurrealDBContainer) Address() string {
	return fmt.Sprintf("ws://%s:%s/rpc", c.host, c.port)
}

// Config returns storage settings pointing at the container with the given database.
func (c *SurrealDBContainer) Config(database string) appcommon.SurrealDBConfig {
	return appcommon.SurrealDBConfig{
		Address:   c.Address(),
		Username:  surrealUser,
		Password:  surrealPassword,
		Namespace: "fieldledger_test",
		Database:  database,
	}
}

// Cleanup terminates the container. Call from TestMain if needed.
func (c *SurrealDBContainer) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}
