//go:build unit

package commands_test

import (
	"context"
	"encoding/json"
	"testing"

	"flightshare/internal/domain/offer"
	reqdto "flightshare/internal/handler/dto/request"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/commands"
	"flightshare/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferCreate(t *testing.T) {
	ctx := context.Background()
	owner := newMember()

	tests := []struct {
		name    string
		mutate  func(r *reqdto.CreateOfferRequest)
		wantErr bool
	}{
		{name: "基本成功ケース"},
		{
			name:   "通貨は大文字に正規化",
			mutate: func(r *reqdto.CreateOfferRequest) { r.Currency = "jpy" },
		},
		{
			name:   "旅程なしでも作成できる",
			mutate: func(r *reqdto.CreateOfferRequest) { r.Itinerary = nil },
		},
		{
			name:    "金額0はNG",
			mutate:  func(r *reqdto.CreateOfferRequest) { r.RequestedShareAmount = 0 },
			wantErr: true,
		},
		{
			name:    "負の金額はNG",
			mutate:  func(r *reqdto.CreateOfferRequest) { r.RequestedShareAmount = -100 },
			wantErr: true,
		},
		{
			name:    "不正な通貨",
			mutate:  func(r *reqdto.CreateOfferRequest) { r.Currency = "US" },
			wantErr: true,
		},
		{
			name:    "旅程がJSONでない",
			mutate:  func(r *reqdto.CreateOfferRequest) { r.Itinerary = json.RawMessage(`{"from":`) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := builder.NewOfferBuilder().BuildCreateDTO()
			if tt.mutate != nil {
				tt.mutate(&req)
			}

			created, err := h.offerCmds.Create(ctx, owner, req)
			if tt.wantErr {
				require.ErrorIs(t, err, commands.ErrInvalidInput)
				assert.True(t, errs.Is(err, errs.ErrValidation))
				return
			}
			require.NoError(t, err)

			assert.Equal(t, owner.ID, created.OwnerID())
			assert.Equal(t, offer.StatusOpen, created.Status())
			assert.Nil(t, created.AcceptorID())
			assert.Equal(t, start, created.CreatedAt())
			assert.Len(t, created.Price().Currency(), 3)

			stored, err := h.offers.Get(ctx, created.ID())
			require.NoError(t, err)
			assert.Equal(t, created.ID(), stored.ID())
		})
	}
}

func TestOfferCancel(t *testing.T) {
	ctx := context.Background()
	owner := newMember()

	t.Run("基本成功ケース", func(t *testing.T) {
		o := builder.NewOfferBuilder().WithOwner(owner.ID).Build()
		h := newHarness(t, o)

		cancelled, err := h.offerCmds.Cancel(ctx, o.ID(), owner)
		require.NoError(t, err)
		assert.Equal(t, offer.StatusCancelled, cancelled.Status())

		_, err = h.accept.Accept(ctx, commands.AcceptInput{OfferID: o.ID(), Principal: newMember()})
		require.ErrorIs(t, err, commands.ErrOfferWithdrawn)
	})

	t.Run("取消済みの再取消は冪等", func(t *testing.T) {
		o := builder.NewOfferBuilder().WithOwner(owner.ID).Cancelled().Build()
		h := newHarness(t, o)

		cancelled, err := h.offerCmds.Cancel(ctx, o.ID(), owner)
		require.NoError(t, err)
		assert.Equal(t, offer.StatusCancelled, cancelled.Status())
		assert.Zero(t, h.offers.Updates())
	})

	t.Run("所有者以外はForbidden", func(t *testing.T) {
		o := builder.NewOfferBuilder().WithOwner(owner.ID).Build()
		h := newHarness(t, o)

		_, err := h.offerCmds.Cancel(ctx, o.ID(), newMember())
		require.ErrorIs(t, err, commands.ErrNotOwner)
		assert.True(t, errs.Is(err, errs.ErrForbidden))
	})

	t.Run("受諾済みは取り消せない", func(t *testing.T) {
		o := builder.NewOfferBuilder().WithOwner(owner.ID).AcceptedBy(uuid.New()).Build()
		h := newHarness(t, o)

		_, err := h.offerCmds.Cancel(ctx, o.ID(), owner)
		require.ErrorIs(t, err, commands.ErrOfferNotOpen)
		assert.True(t, errs.Is(err, errs.ErrInvalidState))

		stored, _ := h.offers.Get(ctx, o.ID())
		assert.Equal(t, offer.StatusAccepted, stored.Status())
	})

	t.Run("存在しないオファー", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.offerCmds.Cancel(ctx, uuid.New(), owner)
		require.ErrorIs(t, err, commands.ErrOfferNotFound)
	})
}
