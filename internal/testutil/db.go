// Package testutil opens real store handles for integration tests. Tests
// using it are skipped unless TEST_DATABASE_URL / TEST_MONGO_URI are set.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kjannette/paper-trader/internal/db"
	"github.com/kjannette/paper-trader/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupPool connects to TEST_DATABASE_URL, creates the schema and empties
// both tables.
func SetupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := repository.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE trades, users, daily_buys"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

// SetupMongo connects to TEST_MONGO_URI and returns a throwaway database
// that is dropped when the test ends.
func SetupMongo(t *testing.T) *mongo.Database {
	t.Helper()

	_ = godotenv.Load("../../.env")

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set, skipping")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := db.ConnectMongo(ctx, uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	database := client.Database(fmt.Sprintf("paper-trades-test-%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = database.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return database
}
