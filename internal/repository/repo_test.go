package repository_test

import (
	"context"
	"testing"

	"github.com/kjannette/paper-trader/internal/repository"
	"github.com/kjannette/paper-trader/internal/repository/storetest"
	"github.com/kjannette/paper-trader/internal/testutil"
)

func TestPostgresStore(t *testing.T) {
	pool := testutil.SetupPool(t)
	storetest.Run(t, repository.NewTradeRepo(pool), repository.NewSpendRepo(pool))
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	pool := testutil.SetupPool(t)
	if err := repository.EnsureSchema(context.Background(), pool); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}
