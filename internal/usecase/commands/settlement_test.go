//go:build unit

package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"flightshare/internal/domain/ledger"
	"flightshare/internal/domain/offer"
	"flightshare/internal/domain/principal"
	"flightshare/internal/infra"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/commands"
	"flightshare/tests/common/builder"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settleIn(o *offer.Offer, p principal.Principal, ref string) commands.SettleInput {
	return commands.SettleInput{
		OfferID:           o.ID(),
		Principal:         p,
		PaymentMethod:     "card",
		ExternalReference: ref,
	}
}

func TestSettle(t *testing.T) {
	ctx := context.Background()

	t.Run("基本成功ケース", func(t *testing.T) {
		b := newMember()
		o := builder.NewOfferBuilder().AcceptedBy(b.ID).Build()
		h := newHarness(t, o)

		res, err := h.settle.Settle(ctx, settleIn(o, b, "r1"))
		require.NoError(t, err)

		assert.Equal(t, commands.OutcomeSettled, res.Outcome)
		assert.False(t, res.Replayed)
		assert.Equal(t, offer.StatusCompleted, res.Offer.Status())
		assert.Equal(t, start, *res.Offer.CompletedAt())

		assert.Equal(t, ledger.StatusCompleted, res.Entry.Status())
		assert.EqualValues(t, 12500, res.Entry.Amount().Amount())
		assert.EqualValues(t, 625, res.Entry.Fee().Amount())
		assert.Equal(t, b.ID, res.Entry.PayerID())
		assert.Equal(t, o.OwnerID(), res.Entry.RecipientID())
		require.NotNil(t, res.Entry.GatewayReference())
		assert.Equal(t, "gw_r1", *res.Entry.GatewayReference())

		assert.Len(t, h.ledger.Entries(o.ID(), ledger.StatusCompleted), 1)
		assert.Equal(t, 1, h.gateway.Calls("r1"))
	})

	t.Run("同じ参照の再実行は課金せず同じ結果", func(t *testing.T) {
		b := newMember()
		o := builder.NewOfferBuilder().AcceptedBy(b.ID).Build()
		h := newHarness(t, o)

		first, err := h.settle.Settle(ctx, settleIn(o, b, "r1"))
		require.NoError(t, err)

		h.clk.Add(time.Hour)
		again, err := h.settle.Settle(ctx, settleIn(o, b, "r1"))
		require.NoError(t, err)

		assert.Equal(t, commands.OutcomeAlreadySettled, again.Outcome)
		assert.True(t, again.Replayed)
		assert.Equal(t, first.Entry.ID(), again.Entry.ID())
		assert.Equal(t, offer.StatusCompleted, again.Offer.Status())
		assert.Equal(t, *first.Offer.CompletedAt(), *again.Offer.CompletedAt())
		assert.Equal(t, 1, h.gateway.Calls("r1"))
		assert.Equal(t, 1, h.gateway.Charges())
	})

	t.Run("完了後に別参照で精算しても課金しない", func(t *testing.T) {
		b := newMember()
		o := builder.NewOfferBuilder().AcceptedBy(b.ID).Build()
		h := newHarness(t, o)

		_, err := h.settle.Settle(ctx, settleIn(o, b, "r1"))
		require.NoError(t, err)

		res, err := h.settle.Settle(ctx, settleIn(o, b, "r2"))
		require.NoError(t, err)
		assert.Equal(t, commands.OutcomeAlreadySettled, res.Outcome)
		assert.False(t, res.Replayed)
		assert.Equal(t, "r1", res.Entry.ExternalReference().Value())
		assert.Zero(t, h.gateway.Calls("r2"))
		assert.Len(t, h.ledger.Entries(o.ID(), ""), 1)
	})
}

func TestSettleRejections(t *testing.T) {
	ctx := context.Background()
	b := newMember()

	tests := []struct {
		name     string
		offer    *offer.Offer
		in       func(o *offer.Offer) commands.SettleInput
		wantErr  error
		wantKind error
	}{
		{
			name:     "未受諾のオファーはInvalidState",
			offer:    builder.NewOfferBuilder().Build(),
			in:       func(o *offer.Offer) commands.SettleInput { return settleIn(o, b, "r1") },
			wantErr:  commands.ErrOfferNotAccepted,
			wantKind: errs.ErrInvalidState,
		},
		{
			name:     "取消済みのオファーはInvalidState",
			offer:    builder.NewOfferBuilder().Cancelled().Build(),
			in:       func(o *offer.Offer) commands.SettleInput { return settleIn(o, b, "r1") },
			wantErr:  commands.ErrOfferNotAccepted,
			wantKind: errs.ErrInvalidState,
		},
		{
			name:     "受諾者以外はInvalidState",
			offer:    builder.NewOfferBuilder().AcceptedBy(uuid.New()).Build(),
			in:       func(o *offer.Offer) commands.SettleInput { return settleIn(o, b, "r1") },
			wantErr:  commands.ErrNotAcceptor,
			wantKind: errs.ErrInvalidState,
		},
		{
			name:     "ゲストは精算できない",
			offer:    builder.NewOfferBuilder().AcceptedBy(b.ID).Build(),
			in:       func(o *offer.Offer) commands.SettleInput { return settleIn(o, newGuest(), "r1") },
			wantErr:  commands.ErrGuestSettlement,
			wantKind: errs.ErrUnauthenticated,
		},
		{
			name:     "主体なしは精算できない",
			offer:    builder.NewOfferBuilder().AcceptedBy(b.ID).Build(),
			in:       func(o *offer.Offer) commands.SettleInput { return settleIn(o, nil, "r1") },
			wantErr:  commands.ErrGuestSettlement,
			wantKind: errs.ErrUnauthenticated,
		},
		{
			name:  "未対応の支払い方法",
			offer: builder.NewOfferBuilder().AcceptedBy(b.ID).Build(),
			in: func(o *offer.Offer) commands.SettleInput {
				in := settleIn(o, b, "r1")
				in.PaymentMethod = "cash"
				return in
			},
			wantErr:  commands.ErrInvalidInput,
			wantKind: errs.ErrValidation,
		},
		{
			name:     "不正な参照",
			offer:    builder.NewOfferBuilder().AcceptedBy(b.ID).Build(),
			in:       func(o *offer.Offer) commands.SettleInput { return settleIn(o, b, "has space") },
			wantErr:  commands.ErrInvalidInput,
			wantKind: errs.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.offer)

			_, err := h.settle.Settle(ctx, tt.in(tt.offer))
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, errs.Is(err, tt.wantKind))

			assert.Zero(t, h.gateway.Charges())
			assert.Empty(t, h.ledger.Entries(tt.offer.ID(), ""))
			stored, _ := h.offers.Get(ctx, tt.offer.ID())
			assert.Equal(t, tt.offer.Status(), stored.Status())
		})
	}

	t.Run("存在しないオファー", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.settle.Settle(ctx, settleIn(builder.NewOfferBuilder().Build(), b, "r1"))
		require.ErrorIs(t, err, commands.ErrOfferNotFound)
	})
}

func TestSettleDeclined(t *testing.T) {
	ctx := context.Background()
	b := newMember()
	o := builder.NewOfferBuilder().AcceptedBy(b.ID).Build()
	h := newHarness(t, o)
	h.gateway.DeclineReference("r-declined", "insufficient_funds")

	_, err := h.settle.Settle(ctx, settleIn(o, b, "r-declined"))
	require.ErrorIs(t, err, commands.ErrPaymentDeclined)
	assert.True(t, errs.Is(err, errs.ErrGatewayFailure))
	assert.Contains(t, err.Error(), "insufficient_funds")

	failed := h.ledger.Entries(o.ID(), ledger.StatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "insufficient_funds", *failed[0].FailureReason())

	stored, _ := h.offers.Get(ctx, o.ID())
	assert.Equal(t, offer.StatusAccepted, stored.Status())

	// the declined reference stays declined
	_, err = h.settle.Settle(ctx, settleIn(o, b, "r-declined"))
	require.ErrorIs(t, err, commands.ErrPaymentDeclined)
	assert.Equal(t, 1, h.gateway.Calls("r-declined"))

	res, err := h.settle.Settle(ctx, settleIn(o, b, "r-retry"))
	require.NoError(t, err)
	assert.Equal(t, commands.OutcomeSettled, res.Outcome)
	assert.Equal(t, offer.StatusCompleted, res.Offer.Status())
	assert.Len(t, h.ledger.Entries(o.ID(), ledger.StatusCompleted), 1)
	assert.Len(t, h.ledger.Entries(o.ID(), ledger.StatusFailed), 1)
}

func TestSettleGatewayUnavailable(t *testing.T) {
	ctx := context.Background()
	b := newMember()
	o := builder.NewOfferBuilder().AcceptedBy(b.ID).Build()
	h := newHarness(t, o)
	h.gateway.SetUnavailable(true)

	_, err := h.settle.Settle(ctx, settleIn(o, b, "r1"))
	require.ErrorIs(t, err, commands.ErrGatewayUnreachable)
	assert.True(t, errs.Is(err, errs.ErrGatewayFailure))
	require.Len(t, h.ledger.Entries(o.ID(), ledger.StatusPending), 1)

	t.Run("直後の同一参照は処理中", func(t *testing.T) {
		_, err := h.settle.Settle(ctx, settleIn(o, b, "r1"))
		require.ErrorIs(t, err, commands.ErrSettlementInProgress)
		assert.True(t, errs.Is(err, errs.ErrConflict))
	})

	t.Run("別参照も処理中", func(t *testing.T) {
		_, err := h.settle.Settle(ctx, settleIn(o, b, "r2"))
		require.ErrorIs(t, err, commands.ErrSettlementInProgress)
		assert.Zero(t, h.gateway.Calls("r2"))
	})

	t.Run("猶予経過後の同一参照で再送して完了", func(t *testing.T) {
		h.gateway.SetUnavailable(false)
		h.clk.Add(pendingRetryAfter + time.Second)

		res, err := h.settle.Settle(ctx, settleIn(o, b, "r1"))
		require.NoError(t, err)
		assert.Equal(t, commands.OutcomeSettled, res.Outcome)
		assert.Equal(t, offer.StatusCompleted, res.Offer.Status())
		assert.Equal(t, 2, h.gateway.Calls("r1"))
		assert.Empty(t, h.ledger.Entries(o.ID(), ledger.StatusPending))
		assert.Len(t, h.ledger.Entries(o.ID(), ledger.StatusCompleted), 1)
	})
}

func TestSettleReferenceReuse(t *testing.T) {
	ctx := context.Background()
	b := newMember()
	first := builder.NewOfferBuilder().AcceptedBy(b.ID).Build()
	second := builder.NewOfferBuilder().AcceptedBy(b.ID).Build()
	h := newHarness(t, first, second)

	_, err := h.settle.Settle(ctx, settleIn(first, b, "shared-ref"))
	require.NoError(t, err)

	_, err = h.settle.Settle(ctx, settleIn(second, b, "shared-ref"))
	require.ErrorIs(t, err, commands.ErrReferenceReused)
	assert.True(t, errs.Is(err, errs.ErrInvalidState))

	stored, _ := h.offers.Get(ctx, second.ID())
	assert.Equal(t, offer.StatusAccepted, stored.Status())
	assert.Equal(t, 1, h.gateway.Calls("shared-ref"))
}

func TestSettleConcurrent(t *testing.T) {
	ctx := context.Background()
	const attempts = 16

	run := func(h *harness, o *offer.Offer, ref func(i int) string) (settled int, failures []error) {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			gate = make(chan struct{})
		)
		payer := builder.NewUserBuilder().WithID(*o.AcceptorID()).BuildPrincipal()
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-gate
				res, err := h.settle.Settle(ctx, settleIn(o, payer, ref(i)))

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil && res.Outcome == commands.OutcomeSettled:
					settled++
				case err == nil:
				case errs.Is(err, commands.ErrSettlementInProgress):
				default:
					failures = append(failures, err)
				}
			}(i)
		}
		close(gate)
		wg.Wait()
		return settled, failures
	}

	t.Run("同一参照の同時精算で課金は一度", func(t *testing.T) {
		o := builder.NewOfferBuilder().AcceptedBy(uuid.New()).Build()
		h := newHarness(t, o)

		settled, failures := run(h, o, func(int) string { return "r1" })
		require.Empty(t, failures)
		assert.Equal(t, 1, settled)
		assert.Equal(t, 1, h.gateway.Calls("r1"))
		assert.Len(t, h.ledger.Entries(o.ID(), ""), 1)
	})

	t.Run("異なる参照の同時精算でも完了は一件", func(t *testing.T) {
		o := builder.NewOfferBuilder().AcceptedBy(uuid.New()).Build()
		h := newHarness(t, o)

		settled, failures := run(h, o, func(i int) string { return "r" + string(rune('a'+i)) })
		require.Empty(t, failures)
		assert.Equal(t, 1, settled)
		assert.Equal(t, 1, h.gateway.Charges())
		assert.Len(t, h.ledger.Entries(o.ID(), ledger.StatusCompleted), 1)

		stored, _ := h.offers.Get(ctx, o.ID())
		assert.Equal(t, offer.StatusCompleted, stored.Status())
	})
}

func TestSettleReconciliation(t *testing.T) {
	ctx := context.Background()

	t.Run("オファー完了の書き込み失敗はその場で回復", func(t *testing.T) {
		b := newMember()
		o := builder.NewOfferBuilder().AcceptedBy(b.ID).Build()
		h := newHarness(t, o)
		h.offers.UpdateErr = infra.WrapRepoErr("failed to update offer status", &pgconn.PgError{Code: "40001"})

		res, err := h.settle.Settle(ctx, settleIn(o, b, "r1"))
		require.NoError(t, err)
		assert.Equal(t, commands.OutcomeSettled, res.Outcome)
		assert.Equal(t, offer.StatusCompleted, res.Offer.Status())
	})

	t.Run("台帳だけ完了した状態は再実行で揃う", func(t *testing.T) {
		b := newMember()
		o := builder.NewOfferBuilder().AcceptedBy(b.ID).Build()
		paid := builder.NewLedgerEntryBuilder().ForOffer(o).WithReference("r1").Completed("gw_r1").Build()
		h := newHarness(t, o)
		_, _, err := h.ledger.InsertIfAbsent(ctx, paid)
		require.NoError(t, err)

		res, err := h.settle.Settle(ctx, settleIn(o, b, "r1"))
		require.NoError(t, err)
		assert.Equal(t, commands.OutcomeAlreadySettled, res.Outcome)
		assert.True(t, res.Replayed)
		assert.Equal(t, offer.StatusCompleted, res.Offer.Status())
		assert.Zero(t, h.gateway.Calls("r1"))
	})

	t.Run("台帳のない完了済みオファーはConflict", func(t *testing.T) {
		b := newMember()
		o := builder.NewOfferBuilder().Completed(b.ID).Build()
		h := newHarness(t, o)

		_, err := h.settle.Settle(ctx, settleIn(o, b, "r1"))
		require.ErrorIs(t, err, commands.ErrSettleConflict)
		assert.True(t, errs.Is(err, errs.ErrConflict))
		assert.Zero(t, h.gateway.Calls("r1"))
	})

	t.Run("記録直後にリセットされたら課金しない", func(t *testing.T) {
		b := newMember()
		o := builder.NewOfferBuilder().AcceptedBy(b.ID).Build()
		h := newHarness(t, o)
		h.ledger.AfterInsert = func(e *ledger.Entry) {
			n, err := h.offers.ConditionalUpdate(ctx, e.OfferID(), offer.ResetTransition(h.clk.Now()))
			require.NoError(t, err)
			require.EqualValues(t, 1, n)
		}

		_, err := h.settle.Settle(ctx, settleIn(o, b, "r1"))
		require.ErrorIs(t, err, commands.ErrOfferNotAccepted)
		assert.Zero(t, h.gateway.Calls("r1"))

		failed := h.ledger.Entries(o.ID(), ledger.StatusFailed)
		require.Len(t, failed, 1)
		assert.Equal(t, "offer no longer accepted by payer", *failed[0].FailureReason())
	})
}
