//go:build unit

package commands_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

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

func TestAccept(t *testing.T) {
	ctx := context.Background()

	t.Run("基本成功ケース", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)
		b := newMember()

		res, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: b})
		require.NoError(t, err)

		assert.Equal(t, commands.OutcomeAccepted, res.Outcome)
		assert.False(t, res.Replayed)
		assert.Equal(t, offer.StatusAccepted, res.Offer.Status())
		assert.Equal(t, b.ID, *res.Offer.AcceptorID())
		assert.Equal(t, start, *res.Offer.AcceptedAt())
	})

	t.Run("同じ受諾者の再実行は冪等", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)
		b := newMember()

		_, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: b})
		require.NoError(t, err)
		again, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: b})
		require.NoError(t, err)

		assert.True(t, again.Replayed)
		assert.Equal(t, b.ID, *again.Offer.AcceptorID())
		assert.Equal(t, 1, h.offers.Updates())
	})

	t.Run("他者が受諾済みならAlreadyTaken", func(t *testing.T) {
		o := builder.NewOfferBuilder().AcceptedBy(uuid.New()).Build()
		h := newHarness(t, o)

		_, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newMember()})
		require.ErrorIs(t, err, commands.ErrOfferTaken)
		assert.True(t, errs.Is(err, errs.ErrAlreadyTaken))
	})

	t.Run("取消済みはInvalidState", func(t *testing.T) {
		o := builder.NewOfferBuilder().Cancelled().Build()
		h := newHarness(t, o)

		_, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newMember()})
		require.ErrorIs(t, err, commands.ErrOfferWithdrawn)
		assert.True(t, errs.Is(err, errs.ErrInvalidState))
	})

	t.Run("存在しないオファー", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: uuid.New(), Principal: newMember()})
		require.ErrorIs(t, err, commands.ErrOfferNotFound)
		assert.Equal(t, "not_found", errs.CodeOf(err))
	})

	t.Run("主体なしはUnauthenticated", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)
		_, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID()})
		assert.True(t, errs.Is(err, errs.ErrUnauthenticated))
	})
}

func TestAcceptOutcomeCounter(t *testing.T) {
	ctx := context.Background()
	o := builder.NewOfferBuilder().Build()
	h := newHarness(t, o)
	b := newMember()

	_, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: b})
	require.NoError(t, err)
	_, err = h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: b})
	require.NoError(t, err)
	_, err = h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newMember()})
	require.ErrorIs(t, err, commands.ErrOfferTaken)

	assert.Equal(t, map[string]int64{
		"accepted":      1,
		"replayed":      1,
		"already_taken": 1,
	}, h.counted(t, "offer.accept.outcomes"))
}

func TestAcceptSelfAcceptance(t *testing.T) {
	ctx := context.Background()
	owner := newMember()
	other := uuid.New()

	for _, o := range []*offer.Offer{
		builder.NewOfferBuilder().WithOwner(owner.ID).Build(),
		builder.NewOfferBuilder().WithOwner(owner.ID).AcceptedBy(other).Build(),
		builder.NewOfferBuilder().WithOwner(owner.ID).Completed(other).Build(),
		builder.NewOfferBuilder().WithOwner(owner.ID).Cancelled().Build(),
	} {
		t.Run("状態: "+o.Status().String(), func(t *testing.T) {
			h := newHarness(t, o)

			_, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: owner})
			require.ErrorIs(t, err, commands.ErrSelfAcceptance)
			assert.True(t, errs.Is(err, errs.ErrInvalidState))
			assert.Zero(t, h.offers.Updates())

			stored, err := h.offers.Get(ctx, o.ID())
			require.NoError(t, err)
			assert.Equal(t, o.Status(), stored.Status())
		})
	}
}

func TestAcceptConcurrent(t *testing.T) {
	ctx := context.Background()
	const contenders = 32

	o := builder.NewOfferBuilder().Build()
	h := newHarness(t, o)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
		taken   int
		other   []error
	)
	gate := make(chan struct{})
	for i := 0; i < contenders; i++ {
		p := newMember()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate
			res, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: p})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && !res.Replayed:
				winners = append(winners, p.ID)
			case errs.Is(err, errs.ErrAlreadyTaken):
				taken++
			default:
				other = append(other, err)
			}
		}()
	}
	close(gate)
	wg.Wait()

	require.Empty(t, other)
	require.Len(t, winners, 1, "exactly one acceptor")
	assert.Equal(t, contenders-1, taken)

	stored, err := h.offers.Get(ctx, o.ID())
	require.NoError(t, err)
	assert.Equal(t, offer.StatusAccepted, stored.Status())
	assert.Equal(t, winners[0], *stored.AcceptorID())
	assert.Equal(t, 1, h.offers.Updates())
}

func TestAcceptRaceAndReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("直前に他者が受諾したらAlreadyTaken", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)
		b, c := newMember(), newMember()

		h.offers.BeforeUpdate = func(id uuid.UUID, _ offer.Transition) {
			h.offers.BeforeUpdate = nil
			n, err := h.offers.ConditionalUpdate(ctx, id, offer.AcceptTransition(c.ID, h.clk.Now()))
			require.NoError(t, err)
			require.EqualValues(t, 1, n)
		}

		_, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: b})
		require.ErrorIs(t, err, commands.ErrOfferTaken)

		stored, _ := h.offers.Get(ctx, o.ID())
		assert.Equal(t, c.ID, *stored.AcceptorID())
	})

	t.Run("直前に取り消されたらInvalidState", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)

		h.offers.BeforeUpdate = func(id uuid.UUID, _ offer.Transition) {
			h.offers.BeforeUpdate = nil
			_, err := h.offers.ConditionalUpdate(ctx, id, offer.CancelTransition(h.clk.Now()))
			require.NoError(t, err)
		}

		_, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newMember()})
		require.ErrorIs(t, err, commands.ErrOfferWithdrawn)
	})

	t.Run("ストアの競合エラーはその場で再試行して回復", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)
		b := newMember()

		h.offers.UpdateErr = infra.WrapRepoErr("failed to update offer status", &pgconn.PgError{Code: "40001"})

		res, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: b})
		require.NoError(t, err)
		assert.Equal(t, commands.OutcomeAccepted, res.Outcome)
		assert.False(t, res.Replayed)
		assert.Equal(t, b.ID, *res.Offer.AcceptorID())
	})

	t.Run("想定外のストア障害はそのまま返す", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)
		h.offers.UpdateErr = infra.WrapRepoErr("failed to update offer status", assert.AnError)

		_, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newMember()})
		require.Error(t, err)
		assert.Nil(t, errs.KindOf(err))
		assert.True(t, infra.IsKind(err, infra.KindDBFailure))
	})
}

func TestGuestContinuation(t *testing.T) {
	ctx := context.Background()

	t.Run("ゲストは保留になりオファーは変わらない", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)

		res, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newGuest()})
		require.NoError(t, err)

		assert.Equal(t, commands.OutcomePendingAuthentication, res.Outcome)
		assert.Nil(t, res.Offer)
		require.NotNil(t, res.Continuation)
		assert.Equal(t, o.ID(), res.Continuation.OfferID)
		assert.Equal(t, start.Add(continuationTTL), res.Continuation.ExpiresAt)
		assert.Equal(t, 1, h.bridges.Len())
		assert.Zero(t, h.offers.Updates())

		u, err := url.Parse(res.Continuation.URL)
		require.NoError(t, err)
		assert.Equal(t, "app.example.com", u.Host)
		assert.Equal(t, o.ID().String(), u.Query().Get("offer_id"))
		assert.Equal(t, res.Continuation.Token, u.Query().Get("continuation"))
	})

	t.Run("認証後の再開は直接受諾と同じ結果", func(t *testing.T) {
		direct := builder.NewOfferBuilder().Build()
		viaGuest := builder.NewOfferBuilder().Build()
		h := newHarness(t, direct, viaGuest)
		b := newMember()

		want, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: direct.ID(), Principal: b})
		require.NoError(t, err)

		pending, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: viaGuest.ID(), Principal: newGuest()})
		require.NoError(t, err)

		h.clk.Add(10 * time.Minute)
		got, err := h.accept.Accept(ctx, commands.AcceptInput{
			OfferID:           viaGuest.ID(),
			Principal:         b,
			ContinuationToken: pending.Continuation.Token,
		})
		require.NoError(t, err)

		assert.Equal(t, want.Outcome, got.Outcome)
		assert.Equal(t, want.Replayed, got.Replayed)
		assert.Equal(t, want.Offer.Status(), got.Offer.Status())
		assert.Equal(t, *want.Offer.AcceptorID(), *got.Offer.AcceptorID())
		assert.Zero(t, h.bridges.Len(), "bridge is consumed")
	})

	t.Run("継続は一度しか使えない", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)
		b := newMember()

		pending, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newGuest()})
		require.NoError(t, err)

		in := commands.AcceptInput{OfferID: o.ID(), Principal: b, ContinuationToken: pending.Continuation.Token}
		_, err = h.accept.Accept(ctx, in)
		require.NoError(t, err)

		_, err = h.accept.Accept(ctx, in)
		require.ErrorIs(t, err, commands.ErrContinuationExpired)
	})

	t.Run("TTL経過後はContinuationExpired", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)

		pending, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newGuest()})
		require.NoError(t, err)

		h.clk.Add(continuationTTL + time.Second)
		_, err = h.accept.Accept(ctx, commands.AcceptInput{
			OfferID:           o.ID(),
			Principal:         newMember(),
			ContinuationToken: pending.Continuation.Token,
		})
		require.ErrorIs(t, err, commands.ErrContinuationExpired)
		assert.True(t, errs.Is(err, errs.ErrContinuationExpired))

		stored, _ := h.offers.Get(ctx, o.ID())
		assert.Equal(t, offer.StatusOpen, stored.Status())
	})

	t.Run("TTL境界ちょうどで失効", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)

		pending, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newGuest()})
		require.NoError(t, err)

		h.clk.Add(continuationTTL)
		_, err = h.accept.Accept(ctx, commands.AcceptInput{
			OfferID:           o.ID(),
			Principal:         newMember(),
			ContinuationToken: pending.Continuation.Token,
		})
		require.ErrorIs(t, err, commands.ErrContinuationExpired)
	})

	t.Run("別オファーへの継続はNG", func(t *testing.T) {
		a := builder.NewOfferBuilder().Build()
		b := builder.NewOfferBuilder().Build()
		h := newHarness(t, a, b)

		pending, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: a.ID(), Principal: newGuest()})
		require.NoError(t, err)

		_, err = h.accept.Accept(ctx, commands.AcceptInput{
			OfferID:           b.ID(),
			Principal:         newMember(),
			ContinuationToken: pending.Continuation.Token,
		})
		require.ErrorIs(t, err, commands.ErrContinuationOffer)
		assert.Zero(t, h.offers.Updates())
	})

	t.Run("不正な継続トークンはValidation", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)

		_, err := h.accept.Accept(ctx, commands.AcceptInput{
			OfferID:           o.ID(),
			Principal:         newMember(),
			ContinuationToken: "not-a-grant",
		})
		require.ErrorIs(t, err, commands.ErrContinuationInvalid)
		assert.True(t, errs.Is(err, errs.ErrValidation))
	})

	t.Run("保留中に他者が受諾したら再開はAlreadyTaken", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)

		pending, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newGuest()})
		require.NoError(t, err)
		_, err = h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newMember()})
		require.NoError(t, err)

		_, err = h.accept.Accept(ctx, commands.AcceptInput{
			OfferID:           o.ID(),
			Principal:         newMember(),
			ContinuationToken: pending.Continuation.Token,
		})
		require.ErrorIs(t, err, commands.ErrOfferTaken)
	})

	t.Run("受諾済みオファーにゲストはAlreadyTaken", func(t *testing.T) {
		o := builder.NewOfferBuilder().AcceptedBy(uuid.New()).Build()
		h := newHarness(t, o)

		_, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newGuest()})
		require.ErrorIs(t, err, commands.ErrOfferTaken)
		assert.Zero(t, h.bridges.Len())
	})

	t.Run("ゲストは継続トークンで受諾できない", func(t *testing.T) {
		o := builder.NewOfferBuilder().Build()
		h := newHarness(t, o)

		pending, err := h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newGuest()})
		require.NoError(t, err)

		res, err := h.accept.Accept(ctx, commands.AcceptInput{
			OfferID:           o.ID(),
			Principal:         principal.NewGuestTicket(h.clk.Now(), continuationTTL),
			ContinuationToken: pending.Continuation.Token,
		})
		require.NoError(t, err)
		assert.Equal(t, commands.OutcomePendingAuthentication, res.Outcome)
		assert.Zero(t, h.offers.Updates())
	})
}
