//go:build unit

package offer_test

import (
	"testing"

	"flightshare/internal/domain/offer"
	"flightshare/tests/common/builder"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

// Property: 0 <= fee <= amount for every positive amount and rate in [0, 1).
func TestFeeBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("fee never exceeds the amount", prop.ForAll(
		func(amount int64, basisPoints int64) bool {
			policy, err := offer.NewFeePolicy(decimal.New(basisPoints, -4))
			if err != nil {
				return false
			}
			fee := policy.Fee(offer.ReconstructMoney(amount, "USD")).Amount()
			return fee >= 0 && fee <= amount
		},
		gen.Int64Range(1, 1_000_000_000),
		gen.Int64Range(0, 9999),
	))

	properties.TestingRun(t)
}

// Property: whatever sequence of transitions is applied, an offer holds an
// acceptor exactly when its status says so, the owner never becomes the
// acceptor, and a completed offer never changes again.
func TestTransitionInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	owner := uuid.New()
	principals := []uuid.UUID{owner, uuid.New(), uuid.New()}
	at := now

	properties.Property("status and acceptor stay consistent", prop.ForAll(
		func(steps []int) bool {
			o := builder.NewOfferBuilder().WithOwner(owner).Build()
			for _, step := range steps {
				var tr offer.Transition
				switch step % 4 {
				case 0:
					tr = offer.AcceptTransition(principals[(step/4)%len(principals)], at)
				case 1:
					tr = offer.CompleteTransition(at)
				case 2:
					tr = offer.CancelTransition(at)
				default:
					tr = offer.ResetTransition(at)
				}

				next, err := o.Apply(tr)
				if o.Status() == offer.StatusCompleted && err == nil {
					return false
				}
				if err != nil {
					continue
				}
				o = next

				if o.Status().HoldsAcceptor() != (o.AcceptorID() != nil) {
					return false
				}
				if o.AcceptorID() != nil && *o.AcceptorID() == owner {
					return false
				}
				if (o.Status() == offer.StatusCompleted) != (o.CompletedAt() != nil) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}
