package repository

import (
	"context"
	"time"

	"flightshare/internal/domain/offer"
	"flightshare/internal/infra"
	"flightshare/internal/infra/db"
	"flightshare/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const offerColumns = `id, owner_id, requested_share_amount, currency, itinerary, status,
	acceptor_id, accepted_at, completed_at, created_at, updated_at`

const insertOfferSQL = `
INSERT INTO offers (id, owner_id, requested_share_amount, currency, itinerary, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + offerColumns

const getOfferSQL = `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

// The WHERE clause on status is what serializes concurrent transitions.
const conditionalUpdateOfferSQL = `
UPDATE offers SET
	status       = $3,
	acceptor_id  = CASE WHEN $3 = 'accepted' THEN $4::uuid
	                    WHEN $3 = 'open' THEN NULL
	                    ELSE acceptor_id END,
	accepted_at  = CASE WHEN $3 = 'accepted' THEN $5::timestamptz
	                    WHEN $3 = 'open' THEN NULL
	                    ELSE accepted_at END,
	completed_at = CASE WHEN $3 = 'completed' THEN $5::timestamptz ELSE completed_at END,
	updated_at   = $5
WHERE id = $1 AND status = $2`

const listOpenOffersSQL = `
SELECT ` + offerColumns + ` FROM offers
WHERE status = 'open'
  AND ($1::timestamptz IS NULL OR (created_at, id) > ($1::timestamptz, $2::uuid))
ORDER BY created_at, id
LIMIT $3`

type OfferRepository struct {
	db db.DBTX
}

func NewOfferRepository(dbtx db.DBTX) *OfferRepository {
	return &OfferRepository{db: dbtx}
}

func (r *OfferRepository) Insert(ctx context.Context, o *offer.Offer) (*offer.Offer, error) {
	row := r.db.QueryRow(ctx, insertOfferSQL,
		o.ID(), o.OwnerID(), o.Price().Amount(), o.Price().Currency(), []byte(o.Itinerary()),
		o.Status().String(), o.CreatedAt(), o.UpdatedAt(),
	)
	created, err := scanOffer(row)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to insert offer", err)
	}
	return created, nil
}

func (r *OfferRepository) Get(ctx context.Context, id uuid.UUID) (*offer.Offer, error) {
	o, err := scanOffer(r.db.QueryRow(ctx, getOfferSQL, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("offer not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get offer", err)
	}
	return o, nil
}

func (r *OfferRepository) ConditionalUpdate(ctx context.Context, id uuid.UUID, t offer.Transition) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, infra.WrapRepoErr("rejected offer transition", err, infra.KindConstraintViolated)
	}

	tag, err := r.db.Exec(ctx, conditionalUpdateOfferSQL,
		id, t.From.String(), t.To.String(), pgconv.UUIDPtrToPgtype(t.AcceptorID), t.At,
	)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to update offer status", err)
	}
	return tag.RowsAffected(), nil
}

// ListOpen pages open offers in (created_at, id) order.
func (r *OfferRepository) ListOpen(ctx context.Context, afterCreatedAt *time.Time, afterID uuid.UUID, limit int) ([]*offer.Offer, error) {
	rows, err := r.db.Query(ctx, listOpenOffersSQL, pgconv.TimePtrToPgtype(afterCreatedAt), afterID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list open offers", err)
	}
	defer rows.Close()

	var offers []*offer.Offer
	for rows.Next() {
		o, scanErr := scanOffer(rows)
		if scanErr != nil {
			return nil, infra.WrapRepoErr("failed to scan offer", scanErr)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate offers", err)
	}
	return offers, nil
}

func scanOffer(row pgx.Row) (*offer.Offer, error) {
	var (
		id, ownerID            uuid.UUID
		amount                 int64
		currency, status       string
		itinerary              []byte
		acceptorID             pgtype.UUID
		acceptedAt, completeAt pgtype.Timestamptz
		createdAt, updatedAt   time.Time
	)
	if err := row.Scan(&id, &ownerID, &amount, &currency, &itinerary, &status,
		&acceptorID, &acceptedAt, &completeAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	st, err := offer.NewStatus(status)
	if err != nil {
		return nil, err
	}

	return offer.ReconstructOffer(
		id, ownerID,
		offer.ReconstructMoney(amount, currency),
		itinerary,
		st,
		pgconv.UUIDPtrFromPgtype(acceptorID),
		pgconv.TimePtrFromPgtype(acceptedAt),
		pgconv.TimePtrFromPgtype(completeAt),
		createdAt.UTC(), updatedAt.UTC(),
	), nil
}
