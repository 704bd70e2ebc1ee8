package testutil

import (
	"context"
	"errors"
	"testing"
	"yamisign/lib/accounts"
	"yamisign/pkg/migrations"
)

// SetupStore returns a store backed by a fresh in-memory sqlite database,
// seeded with the given accounts in order.
func SetupStore(t testing.TB, seed ...accounts.Account) accounts.SqliteStore {
	t.Helper()

	db, err := migrations.OpenAndMigrateDB(migrations.Config{File: ":memory:"}, accounts.Schema)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	store := accounts.NewSqliteStore(db)
	for _, acc := range seed {
		err := store.Upsert(context.Background(), acc)
		if err != nil {
			t.Fatal(err)
		}
	}
	return store
}

var ErrStoreDown = errors.New("store down")

// FailingStore fails every call with ErrStoreDown.
type FailingStore struct{}

func (FailingStore) GetAll(context.Context) ([]accounts.Account, error) {
	return nil, ErrStoreDown
}

func (FailingStore) GetAutoSign(context.Context) ([]accounts.Account, error) {
	return nil, ErrStoreDown
}

func (FailingStore) GetByID(context.Context, string) (accounts.Account, error) {
	return accounts.Account{}, ErrStoreDown
}

func (FailingStore) Upsert(context.Context, accounts.Account) error {
	return ErrStoreDown
}
