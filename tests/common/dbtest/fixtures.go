//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flightshare/internal/pkg/password"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// DefaultPassword is the plain password of every fixture user.
const DefaultPassword = "password123"

var (
	hashOnce    sync.Once
	defaultHash string
	hashErr     error
)

func passwordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		defaultHash, hashErr = password.Hash(DefaultPassword)
	})
	require.NoError(t, hashErr)
	return defaultHash
}

func CreateTestUser(t *testing.T, db DBLike, email, role string) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	ctx := context.Background()

	tag, err := db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, display_name, is_active)
		VALUES ($1, lower($2), $3, $4, $5, true)
		ON CONFLICT ((lower(email))) DO NOTHING`,
		userID, email, passwordHash(t), role, strings.Split(email, "@")[0])
	require.NoError(t, err)

	if tag.RowsAffected() == 0 {
		err = db.QueryRow(ctx, "SELECT id FROM users WHERE email = lower($1)", email).Scan(&userID)
		require.NoError(t, err)
	}

	return userID
}

func DeactivateUser(t *testing.T, db DBLike, userID uuid.UUID) {
	t.Helper()

	_, err := db.Exec(context.Background(), "UPDATE users SET is_active = false WHERE id = $1", userID)
	require.NoError(t, err)
}

// CreateTestOffer inserts an open offer directly, bypassing the API.
func CreateTestOffer(t *testing.T, db DBLike, ownerID uuid.UUID, amount int64, currency string) uuid.UUID {
	t.Helper()

	offerID := uuid.New()
	_, err := db.Exec(context.Background(), `
		INSERT INTO offers (id, owner_id, requested_share_amount, currency, itinerary, status)
		VALUES ($1, $2, $3, $4, '{"from":"HND","to":"SFO"}'::jsonb, 'open')`,
		offerID, ownerID, amount, currency)
	require.NoError(t, err)

	return offerID
}

func OfferStatus(t *testing.T, db DBLike, offerID uuid.UUID) (status string, acceptorID *uuid.UUID) {
	t.Helper()

	err := db.QueryRow(context.Background(),
		"SELECT status, acceptor_id FROM offers WHERE id = $1", offerID).Scan(&status, &acceptorID)
	require.NoError(t, err)
	return status, acceptorID
}

// CountLedgerEntries counts entries for the offer; an empty status counts all.
func CountLedgerEntries(t *testing.T, db DBLike, offerID uuid.UUID, status string) int {
	t.Helper()

	var n int
	err := db.QueryRow(context.Background(), `
		SELECT count(*) FROM ledger_entries
		WHERE offer_id = $1 AND ($2 = '' OR status = $2)`, offerID, status).Scan(&n)
	require.NoError(t, err)
	return n
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	_, err := pool.Exec(ctx, sqlAny.(string))
	return err
}
