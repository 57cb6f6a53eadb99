package repository

import (
	"context"
	"time"

	"flightshare/internal/domain/ledger"
	"flightshare/internal/domain/offer"
	"flightshare/internal/infra"
	"flightshare/internal/infra/db"
	"flightshare/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const ledgerColumns = `id, offer_id, payer_id, recipient_id, amount, fee, currency, payment_method,
	status, external_reference, gateway_reference, failure_reason, created_at, updated_at`

// Only the external_reference arbiter is absorbed here; the one-pending-per-offer
// index still raises 23505 so callers can tell a concurrent attempt apart.
const insertLedgerEntrySQL = `
INSERT INTO ledger_entries (id, offer_id, payer_id, recipient_id, amount, fee, currency,
	payment_method, status, external_reference, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (external_reference) DO NOTHING
RETURNING ` + ledgerColumns

const getLedgerEntryByReferenceSQL = `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE external_reference = $1`

const getLedgerEntrySQL = `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1`

const updateLedgerStatusSQL = `
UPDATE ledger_entries SET
	status = $2,
	gateway_reference = COALESCE($3, gateway_reference),
	failure_reason = $4,
	updated_at = $5
WHERE id = $1 AND status = 'pending'
RETURNING ` + ledgerColumns

const findLedgerEntryByOfferSQL = `
SELECT ` + ledgerColumns + ` FROM ledger_entries
WHERE offer_id = $1 AND status = $2
ORDER BY created_at DESC
LIMIT 1`

const listLedgerEntriesByOfferSQL = `
SELECT ` + ledgerColumns + ` FROM ledger_entries
WHERE offer_id = $1
ORDER BY created_at, id`

// Constraint names from the schema, surfaced through infra.ConstraintOf.
const (
	ConstraintLedgerOnePendingPerOffer   = "ledger_entries_one_pending_per_offer"
	ConstraintLedgerOneCompletedPerOffer = "ledger_entries_one_completed_per_offer"
)

type LedgerRepository struct {
	db db.DBTX
}

func NewLedgerRepository(dbtx db.DBTX) *LedgerRepository {
	return &LedgerRepository{db: dbtx}
}

func (r *LedgerRepository) InsertIfAbsent(ctx context.Context, e *ledger.Entry) (*ledger.Entry, bool, error) {
	row := r.db.QueryRow(ctx, insertLedgerEntrySQL,
		e.ID(), e.OfferID(), e.PayerID(), e.RecipientID(),
		e.Amount().Amount(), e.Fee().Amount(), e.Amount().Currency(),
		e.PaymentMethod().String(), e.Status().String(), e.ExternalReference().Value(),
		e.CreatedAt(), e.UpdatedAt(),
	)
	inserted, err := scanLedgerEntry(row)
	if err == nil {
		return inserted, true, nil
	}
	if !pgconv.IsNoRows(err) {
		return nil, false, infra.WrapRepoErr("failed to insert ledger entry", err)
	}

	existing, err := scanLedgerEntry(r.db.QueryRow(ctx, getLedgerEntryByReferenceSQL, e.ExternalReference().Value()))
	if err != nil {
		// the conflicting row vanished between the two statements; entries are never deleted
		return nil, false, infra.WrapRepoErr("failed to read existing ledger entry", err, infra.KindConflict)
	}
	return existing, false, nil
}

func (r *LedgerRepository) UpdateStatus(ctx context.Context, entryID uuid.UUID, u ledger.StatusUpdate) (*ledger.Entry, bool, error) {
	row := r.db.QueryRow(ctx, updateLedgerStatusSQL,
		entryID, u.To.String(), u.GatewayReference, u.FailureReason, u.At,
	)
	updated, err := scanLedgerEntry(row)
	if err == nil {
		return updated, true, nil
	}
	if !pgconv.IsNoRows(err) {
		return nil, false, infra.WrapRepoErr("failed to update ledger entry status", err)
	}

	current, err := scanLedgerEntry(r.db.QueryRow(ctx, getLedgerEntrySQL, entryID))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, false, infra.WrapRepoErr("ledger entry not found", err, infra.KindNotFound)
		}
		return nil, false, infra.WrapRepoErr("failed to read ledger entry", err)
	}
	return current, false, nil
}

func (r *LedgerRepository) FindByOffer(ctx context.Context, offerID uuid.UUID, status ledger.Status) (*ledger.Entry, error) {
	e, err := scanLedgerEntry(r.db.QueryRow(ctx, findLedgerEntryByOfferSQL, offerID, status.String()))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, nil
		}
		return nil, infra.WrapRepoErr("failed to find ledger entry by offer", err)
	}
	return e, nil
}

func (r *LedgerRepository) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]*ledger.Entry, error) {
	rows, err := r.db.Query(ctx, listLedgerEntriesByOfferSQL, offerID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list ledger entries", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		e, scanErr := scanLedgerEntry(rows)
		if scanErr != nil {
			return nil, infra.WrapRepoErr("failed to scan ledger entry", scanErr)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate ledger entries", err)
	}
	return entries, nil
}

func scanLedgerEntry(row pgx.Row) (*ledger.Entry, error) {
	var (
		id, offerID, payerID, recipientID uuid.UUID
		amount, fee                       int64
		currency, method, status, ref     string
		gatewayRef, failureReason         pgtype.Text
		createdAt, updatedAt              time.Time
	)
	if err := row.Scan(&id, &offerID, &payerID, &recipientID, &amount, &fee, &currency, &method,
		&status, &ref, &gatewayRef, &failureReason, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	st, err := ledger.NewStatus(status)
	if err != nil {
		return nil, err
	}
	pm, err := ledger.NewPaymentMethod(method)
	if err != nil {
		return nil, err
	}
	extRef, err := ledger.NewExternalReference(ref)
	if err != nil {
		return nil, err
	}

	return ledger.ReconstructEntry(
		id, offerID, payerID, recipientID,
		offer.ReconstructMoney(amount, currency),
		offer.ReconstructMoney(fee, currency),
		pm, st, extRef,
		pgconv.TextPtrFromPgtype(gatewayRef),
		pgconv.TextPtrFromPgtype(failureReason),
		createdAt.UTC(), updatedAt.UTC(),
	), nil
}
