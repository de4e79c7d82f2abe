package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var shared struct {
	once      sync.Once
	conn      *Conn
	err       error
	terminate func()
}

func TestMain(m *testing.M) {
	code := m.Run()
	if shared.terminate != nil {
		shared.terminate()
	}
	os.Exit(code)
}

// setupTestDB returns a connection to a ClickHouse container shared by the
// package's tests, with build_events emptied.
func setupTestDB(t *testing.T) *Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	shared.once.Do(startClickhouse)
	require.NoError(t, shared.err, "start clickhouse")

	require.NoError(t, shared.conn.Exec(context.Background(), "TRUNCATE TABLE IF EXISTS build_events"))
	return shared.conn
}

func startClickhouse() {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_DB": "launchpad"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Application: Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	if err != nil {
		shared.err = err
		return
	}
	shared.terminate = func() { _ = container.Terminate(ctx) }

	host, err := container.Host(ctx)
	if err != nil {
		shared.err = err
		return
	}
	port, err := container.MappedPort(ctx, "9000")
	if err != nil {
		shared.err = err
		return
	}
	if shared.conn, shared.err = NewConn(ctx, fmt.Sprintf("clickhouse://%s:%s/launchpad", host, port.Port())); shared.err != nil {
		return
	}
	shared.err = applySchema(ctx, shared.conn)
}

// applySchema runs the migration files from disk one statement at a time.
func applySchema(ctx context.Context, conn *Conn) error {
	paths, err := filepath.Glob(filepath.Join("..", "migrations", "clickhouse", "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(paths)
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, stmt := range strings.Split(string(content), ";") {
			if !hasSQL(stmt) {
				continue
			}
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
		}
	}
	return nil
}

func hasSQL(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return true
		}
	}
	return false
}
