package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/engine"
	"github.com/warp/billing-engine/store/sqlite"
	"github.com/warp/billing-engine/tracker"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tx := tracker.Transaction{
		ID:          "tx-1",
		Amount:      engine.MustParseMoney("123.45"),
		Description: "saturday deliveries",
		Date:        "2024-06-08",
		Kind:        engine.KindIncome,
	}
	require.NoError(t, s.SaveTransaction(ctx, tx))

	got, err := s.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tx.ID, got[0].ID)
	assert.True(t, got[0].Amount.Equal(tx.Amount))
	assert.Equal(t, tx.Date, got[0].Date)
	assert.Equal(t, engine.KindIncome, got[0].Kind)
}

func TestTransactionsOrderedByDate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, tx := range []tracker.Transaction{
		{ID: "b", Amount: engine.NewMoney(1), Date: "2024-06-10", Kind: engine.KindIncome},
		{ID: "a", Amount: engine.NewMoney(1), Date: "2024-06-01", Kind: engine.KindIncome},
		{ID: "c", Amount: engine.NewMoney(1), Date: "2024-06-10", Kind: engine.KindExpense},
	} {
		require.NoError(t, s.SaveTransaction(ctx, tx))
	}

	got, err := s.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, engine.TransactionID("a"), got[0].ID)
	assert.Equal(t, engine.TransactionID("b"), got[1].ID)
	assert.Equal(t, engine.TransactionID("c"), got[2].ID)
}

func TestObligationRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	n := 12
	o := engine.Obligation{
		ID:            "ob-1",
		Title:         "motorbike loan",
		Amount:        engine.MustParseMoney("215.50"),
		Category:      "vehicle",
		Kind:          engine.KindExpense,
		AnchorDate:    "2024-01-15",
		Recurrence:    engine.RecurInstallments,
		Installments:  &n,
		ExcludedDates: []engine.DateString{"2024-03-15"},
		SettledDates:  []engine.DateString{"2024-01-15", "2024-02-15"},
		CardID:        "card-1",
	}
	require.NoError(t, s.SaveObligation(ctx, o))

	got, err := s.GetObligation(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Title, got.Title)
	assert.True(t, got.Amount.Equal(o.Amount))
	require.NotNil(t, got.Installments)
	assert.Equal(t, 12, *got.Installments)
	assert.Equal(t, o.ExcludedDates, got.ExcludedDates)
	assert.Equal(t, o.SettledDates, got.SettledDates)
	assert.Equal(t, "card-1", got.CardID)
}

func TestObligationUpsertAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := engine.Obligation{
		ID: "ob-1", Title: "rent", Amount: engine.NewMoney(1200),
		Kind: engine.KindExpense, AnchorDate: "2024-01-05", Recurrence: engine.RecurMonthly,
	}
	second := engine.Obligation{
		ID: "ob-2", Title: "phone", Amount: engine.NewMoney(30),
		Kind: engine.KindExpense, AnchorDate: "2024-01-20", Recurrence: engine.RecurMonthly,
	}
	require.NoError(t, s.SaveObligation(ctx, first))
	require.NoError(t, s.SaveObligation(ctx, second))

	// Updating the first row must not move it to the end.
	first.Title = "rent v2"
	require.NoError(t, s.SaveObligation(ctx, first))

	got, err := s.Obligations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rent v2", got[0].Title)
	assert.Equal(t, "phone", got[1].Title)
}

func TestGetObligation_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetObligation(context.Background(), "missing")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Fresh store serves the defaults.
	got, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StartDay)
	assert.Nil(t, got.EndDay)

	end := 25
	settings := tracker.Settings{
		StartDay:          5,
		EndDay:            &end,
		DaysOff:           []engine.DateString{"2024-06-12", "2024-06-13"},
		DailySavingTarget: engine.NewMoney(50),
		SavingsDates:      []engine.DateString{"2024-06-01"},
		SavingsAdjustments: map[engine.DateString]engine.Money{
			"2024-06-01": engine.MustParseMoney("12.34"),
		},
		SavingsWithdrawals: map[engine.DateString]engine.Money{
			"2024-06-02": engine.NewMoney(20),
		},
	}
	require.NoError(t, s.SaveSettings(ctx, settings))

	got, err = s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StartDay)
	require.NotNil(t, got.EndDay)
	assert.Equal(t, 25, *got.EndDay)
	assert.Equal(t, settings.DaysOff, got.DaysOff)
	assert.True(t, got.DailySavingTarget.Equal(engine.NewMoney(50)))
	assert.True(t, got.SavingsAdjustments["2024-06-01"].Equal(engine.MustParseMoney("12.34")))
	assert.True(t, got.SavingsWithdrawals["2024-06-02"].Equal(engine.NewMoney(20)))
}

func TestCardRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := tracker.CreditCard{ID: "card-1", Name: "visa", Color: "#336699", Limit: engine.NewMoney(2000)}
	require.NoError(t, s.SaveCard(ctx, c))

	got, err := s.Cards(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "visa", got[0].Name)
	assert.True(t, got[0].Limit.Equal(engine.NewMoney(2000)))

	require.NoError(t, s.DeleteCard(ctx, "card-1"))
	assert.ErrorIs(t, s.DeleteCard(ctx, "card-1"), tracker.ErrNotFound)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	o := engine.Obligation{
		ID: "ob-1", Title: "rent", Amount: engine.NewMoney(1200),
		Kind: engine.KindExpense, AnchorDate: "2024-01-05", Recurrence: engine.RecurMonthly,
	}
	require.NoError(t, s.SaveObligation(ctx, o))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(st tracker.Store) error {
		got, err := st.GetObligation(ctx, o.ID)
		if err != nil {
			return err
		}
		got.ExcludedDates = append(got.ExcludedDates, "2024-06-05")
		if err := st.SaveObligation(ctx, got); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetObligation(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ExcludedDates)
}

func TestWithTx_ReadsSeeOwnWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(st tracker.Store) error {
		o := engine.Obligation{
			ID: "ob-1", Title: "rent", Amount: engine.NewMoney(1200),
			Kind: engine.KindExpense, AnchorDate: "2024-01-05", Recurrence: engine.RecurMonthly,
		}
		if err := st.SaveObligation(ctx, o); err != nil {
			return err
		}
		got, err := st.GetObligation(ctx, "ob-1")
		if err != nil {
			return err
		}
		assert.Equal(t, "rent", got.Title)
		return nil
	})
	require.NoError(t, err)
}
