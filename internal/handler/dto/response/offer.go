package response

import (
	"time"

	"flightshare/internal/usecase/commands"
	"flightshare/internal/usecase/queries"

	"github.com/google/uuid"
)

type AcceptResponse struct {
	Outcome string             `json:"outcome"`
	Offer   *queries.OfferView `json:"offer,omitempty"`
	// Replayed is true when the caller already held this acceptance.
	Replayed     bool                  `json:"replayed,omitempty"`
	Continuation *ContinuationResponse `json:"continuation,omitempty"`
}

type ContinuationResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
	OfferID   uuid.UUID `json:"offerId"`
}

type SettleResponse struct {
	Outcome  string                   `json:"outcome"`
	Offer    *queries.OfferView       `json:"offer"`
	Entry    *queries.LedgerEntryView `json:"entry"`
	Replayed bool                     `json:"replayed,omitempty"`
}

type LedgerResponse struct {
	OfferID uuid.UUID                  `json:"offerId"`
	Entries []*queries.LedgerEntryView `json:"entries"`
}

type ReconcileResponse struct {
	Action string             `json:"action"`
	Offer  *queries.OfferView `json:"offer"`
}

func FromAcceptResult(r *commands.AcceptResult) *AcceptResponse {
	resp := &AcceptResponse{
		Outcome:  string(r.Outcome),
		Replayed: r.Replayed,
	}
	if r.Offer != nil {
		resp.Offer = queries.NewOfferView(r.Offer)
	}
	if c := r.Continuation; c != nil {
		resp.Continuation = &ContinuationResponse{
			Token:     c.Token,
			URL:       c.URL,
			ExpiresAt: c.ExpiresAt,
			OfferID:   c.OfferID,
		}
	}
	return resp
}

func FromSettleResult(r *commands.SettleResult) *SettleResponse {
	resp := &SettleResponse{
		Outcome:  string(r.Outcome),
		Replayed: r.Replayed,
	}
	if r.Offer != nil {
		resp.Offer = queries.NewOfferView(r.Offer)
	}
	if r.Entry != nil {
		resp.Entry = queries.NewLedgerEntryView(r.Entry)
	}
	return resp
}

func FromReconcileReport(r *commands.ReconcileReport) *ReconcileResponse {
	resp := &ReconcileResponse{Action: string(r.Action)}
	if r.Offer != nil {
		resp.Offer = queries.NewOfferView(r.Offer)
	}
	return resp
}
