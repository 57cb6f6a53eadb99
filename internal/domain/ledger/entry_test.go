//go:build unit

package ledger_test

import (
	"strings"
	"testing"
	"time"

	"flightshare/internal/domain/ledger"
	"flightshare/internal/domain/offer"
	"flightshare/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalReference(t *testing.T) {
	cases := []struct {
		name string
		in   string
		ok   bool
	}{
		{name: "英数字OK", in: "r1", ok: true},
		{name: "区切り文字OK", in: "stl_2026-10.15:a", ok: true},
		{name: "前後空白は除去", in: "  r1  ", ok: true},
		{name: "128文字OK", in: strings.Repeat("a", 128), ok: true},
		{name: "129文字NG", in: strings.Repeat("a", 129)},
		{name: "空NG", in: ""},
		{name: "記号始まりNG", in: "_r1"},
		{name: "空白含みNG", in: "r 1"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ref, err := ledger.NewExternalReference(c.in)
			if !c.ok {
				require.ErrorIs(t, err, ledger.ErrInvalidReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(c.in), ref.Value())
		})
	}
}

func TestPaymentMethod(t *testing.T) {
	for _, in := range []string{"card", "CARD", "bank_transfer", " wallet "} {
		_, err := ledger.NewPaymentMethod(in)
		assert.NoError(t, err, in)
	}
	_, err := ledger.NewPaymentMethod("cash")
	require.ErrorIs(t, err, ledger.ErrInvalidPaymentMethod)
}

func TestEntryLifecycle(t *testing.T) {
	created := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	ref, err := ledger.NewExternalReference("r1")
	require.NoError(t, err)

	pending := ledger.NewPendingEntry(ledger.PendingParams{
		OfferID:           uuid.New(),
		PayerID:           uuid.New(),
		RecipientID:       uuid.New(),
		Amount:            offer.ReconstructMoney(12500, "USD"),
		Fee:               offer.ReconstructMoney(625, "USD"),
		PaymentMethod:     ledger.PaymentMethodCard,
		ExternalReference: ref,
		At:                created,
	})

	t.Run("新規エントリは保留", func(t *testing.T) {
		assert.Equal(t, ledger.StatusPending, pending.Status())
		assert.Nil(t, pending.GatewayReference())
		assert.Equal(t, 90*time.Second, pending.PendingFor(created.Add(90*time.Second)))
	})

	t.Run("完了", func(t *testing.T) {
		done, err := pending.Apply(ledger.Complete("gw_1", created.Add(time.Second)))
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusCompleted, done.Status())
		assert.Equal(t, "gw_1", *done.GatewayReference())
		assert.Zero(t, done.PendingFor(created.Add(time.Hour)))
		assert.Equal(t, ledger.StatusPending, pending.Status())
	})

	t.Run("失敗は理由を持つ", func(t *testing.T) {
		failed, err := pending.Apply(ledger.Fail("card_declined", nil, created.Add(time.Second)))
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusFailed, failed.Status())
		assert.Equal(t, "card_declined", *failed.FailureReason())
	})

	t.Run("ゲートウェイ参照は未指定なら保持", func(t *testing.T) {
		withRef := builder.NewLedgerEntryBuilder().Build()
		gw := "gw_prev"
		withRef = ledger.ReconstructEntry(withRef.ID(), withRef.OfferID(), withRef.PayerID(), withRef.RecipientID(),
			withRef.Amount(), withRef.Fee(), withRef.PaymentMethod(), ledger.StatusPending, withRef.ExternalReference(),
			&gw, nil, withRef.CreatedAt(), withRef.UpdatedAt())

		failed, err := withRef.Apply(ledger.Fail("timeout", nil, created))
		require.NoError(t, err)
		require.NotNil(t, failed.GatewayReference())
		assert.Equal(t, "gw_prev", *failed.GatewayReference())
	})

	t.Run("確定済みは遷移不可", func(t *testing.T) {
		for _, e := range []*ledger.Entry{
			builder.NewLedgerEntryBuilder().Completed("gw").Build(),
			builder.NewLedgerEntryBuilder().Failed("declined").Build(),
		} {
			_, err := e.Apply(ledger.Complete("gw_2", created))
			require.ErrorIs(t, err, ledger.ErrIllegalTransition)
		}
	})
}
