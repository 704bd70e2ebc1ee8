package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "embed"
)

//go:embed schema.sql
var Schema string

// SqliteStore is a Store over any database/sql connection speaking the
// sqlite dialect (modernc sqlite or libsql). The schema must already be applied.
type SqliteStore struct {
	db *sql.DB
}

func NewSqliteStore(db *sql.DB) SqliteStore {
	return SqliteStore{db: db}
}

const selectAccount = `SELECT external_id, username, cookies, last_authenticated_at, valid, autosign FROM accounts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var acc Account
	var cookies string
	err := row.Scan(
		&acc.ExternalID,
		&acc.Username,
		&cookies,
		&acc.LastAuthenticatedAt,
		&acc.Valid,
		&acc.AutoSign,
	)
	if err != nil {
		return Account{}, err
	}
	err = json.Unmarshal([]byte(cookies), &acc.Cookies)
	if err != nil {
		return Account{}, fmt.Errorf("decode cookies of '%s': %w", acc.ExternalID, err)
	}
	return acc, nil
}

func (s SqliteStore) query(ctx context.Context, query string, args ...any) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (s SqliteStore) GetAll(ctx context.Context) ([]Account, error) {
	out, err := s.query(ctx, selectAccount+` ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("get all accounts: %w", err)
	}
	return out, nil
}

func (s SqliteStore) GetAutoSign(ctx context.Context) ([]Account, error) {
	out, err := s.query(ctx, selectAccount+` WHERE autosign = 1 ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("get autosign accounts: %w", err)
	}
	return out, nil
}

func (s SqliteStore) GetByID(ctx context.Context, externalID string) (Account, error) {
	row := s.db.QueryRowContext(ctx, selectAccount+` WHERE external_id = ?`, externalID)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account '%s': %w", externalID, err)
	}
	return acc, nil
}

func (s SqliteStore) Upsert(ctx context.Context, account Account) error {
	cookies, err := json.Marshal(account.Cookies)
	if err != nil {
		return fmt.Errorf("upsert account '%s': %w", account.ExternalID, err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO accounts (external_id, username, cookies, last_authenticated_at, valid, autosign)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			username = excluded.username,
			cookies = excluded.cookies,
			last_authenticated_at = excluded.last_authenticated_at,
			valid = excluded.valid,
			autosign = excluded.autosign`,
		account.ExternalID,
		account.Username,
		string(cookies),
		account.LastAuthenticatedAt,
		account.Valid,
		account.AutoSign,
	)
	if err != nil {
		return fmt.Errorf("upsert account '%s': %w", account.ExternalID, err)
	}
	return nil
}
