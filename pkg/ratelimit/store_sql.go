// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLStore persists usage counters to a relational database, so a
// multi-instance gateway deployment shares one rate limit view instead of
// each instance counting independently.
// Dialect selects the placeholder style and the upsert syntax; the three supported drivers
// (lib/pq, go-sql-driver/mysql, mattn/go-sqlite3) differ only there.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore creates the usage table if absent and returns a Store backed
// by db. dialect is one of "postgres", "mysql", "sqlite".
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("ratelimit: unsupported dialect %q", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ratelimit: create schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) ensureSchema() error {
	ddl := `CREATE TABLE IF NOT EXISTS rate_limit_usage (
		scope TEXT NOT NULL,
		identifier TEXT NOT NULL,
		limit_type TEXT NOT NULL,
		window_name TEXT NOT NULL,
		amount BIGINT NOT NULL DEFAULT 0,
		window_end TIMESTAMP NOT NULL,
		PRIMARY KEY (scope, identifier, limit_type, window_name)
	)`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) GetUsage(ctx context.Context, scope Scope, identifier string, limitType LimitType, window TimeWindow) (int64, time.Time, error) {
	q := fmt.Sprintf(`SELECT amount, window_end FROM rate_limit_usage
		WHERE scope = %s AND identifier = %s AND limit_type = %s AND window_name = %s`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4))

	var amount int64
	var windowEnd time.Time
	err := s.db.QueryRowContext(ctx, q, string(scope), identifier, string(limitType), string(window)).Scan(&amount, &windowEnd)
	if err == sql.ErrNoRows {
		return 0, time.Now().Add(window.Duration()), nil
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	return amount, windowEnd, nil
}

// IncrementUsage resets the counter if the stored window has already
// expired, then adds amount, all in one transaction to avoid a
// check-then-update race between concurrent gateway instances.
func (s *SQLStore) IncrementUsage(ctx context.Context, scope Scope, identifier string, limitType LimitType, window TimeWindow, amount int64) (int64, time.Time, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, time.Time{}, err
	}
	defer tx.Rollback()

	current, windowEnd, err := s.getUsageTx(ctx, tx, scope, identifier, limitType, window)
	if err != nil {
		return 0, time.Time{}, err
	}

	now := time.Now()
	if now.After(windowEnd) {
		current = 0
		windowEnd = now.Add(window.Duration())
	}
	current += amount

	if err := s.upsertTx(ctx, tx, scope, identifier, limitType, window, current, windowEnd); err != nil {
		return 0, time.Time{}, err
	}
	if err := tx.Commit(); err != nil {
		return 0, time.Time{}, err
	}
	return current, windowEnd, nil
}

func (s *SQLStore) getUsageTx(ctx context.Context, tx *sql.Tx, scope Scope, identifier string, limitType LimitType, window TimeWindow) (int64, time.Time, error) {
	q := fmt.Sprintf(`SELECT amount, window_end FROM rate_limit_usage
		WHERE scope = %s AND identifier = %s AND limit_type = %s AND window_name = %s`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4))

	var amount int64
	var windowEnd time.Time
	err := tx.QueryRowContext(ctx, q, string(scope), identifier, string(limitType), string(window)).Scan(&amount, &windowEnd)
	if err == sql.ErrNoRows {
		return 0, time.Now().Add(window.Duration()), nil
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	return amount, windowEnd, nil
}

func (s *SQLStore) upsertTx(ctx context.Context, tx *sql.Tx, scope Scope, identifier string, limitType LimitType, window TimeWindow, amount int64, windowEnd time.Time) error {
	var q string
	switch s.dialect {
	case "postgres":
		q = `INSERT INTO rate_limit_usage (scope, identifier, limit_type, window_name, amount, window_end)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (scope, identifier, limit_type, window_name)
			DO UPDATE SET amount = $5, window_end = $6`
	case "mysql":
		q = `INSERT INTO rate_limit_usage (scope, identifier, limit_type, window_name, amount, window_end)
			VALUES (?,?,?,?,?,?)
			ON DUPLICATE KEY UPDATE amount = VALUES(amount), window_end = VALUES(window_end)`
	default: // sqlite
		q = `INSERT INTO rate_limit_usage (scope, identifier, limit_type, window_name, amount, window_end)
			VALUES (?,?,?,?,?,?)
			ON CONFLICT (scope, identifier, limit_type, window_name)
			DO UPDATE SET amount = excluded.amount, window_end = excluded.window_end`
	}
	_, err := tx.ExecContext(ctx, q, string(scope), identifier, string(limitType), string(window), amount, windowEnd)
	return err
}

func (s *SQLStore) SetUsage(ctx context.Context, scope Scope, identifier string, limitType LimitType, window TimeWindow, amount int64, windowEnd time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.upsertTx(ctx, tx, scope, identifier, limitType, window, amount, windowEnd); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) DeleteUsage(ctx context.Context, scope Scope, identifier string) error {
	q := fmt.Sprintf(`DELETE FROM rate_limit_usage WHERE scope = %s AND identifier = %s`, s.placeholder(1), s.placeholder(2))
	_, err := s.db.ExecContext(ctx, q, string(scope), identifier)
	return err
}

func (s *SQLStore) DeleteExpired(ctx context.Context, before time.Time) error {
	q := fmt.Sprintf(`DELETE FROM rate_limit_usage WHERE window_end < %s`, s.placeholder(1))
	_, err := s.db.ExecContext(ctx, q, before)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
