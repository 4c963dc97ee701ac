package cashbook

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type fakeBook struct {
	movements []Movement
	nextID    int64
}

func (f *fakeBook) InsertMovement(_ context.Context, mv Movement) (int64, error) {
	if f.nextID == 0 {
		f.nextID = 1
	}
	mv.ID = f.nextID
	f.nextID++
	f.movements = append(f.movements, mv)
	return mv.ID, nil
}

type fakeCashRepo struct {
	book fakeBook
}

func (f *fakeCashRepo) WithTx(ctx context.Context, fn func(context.Context, TxBook) error) error {
	moved := len(f.book.movements)
	if err := fn(ctx, &f.book); err != nil {
		f.book.movements = f.book.movements[:moved]
		return err
	}
	return nil
}

func (f *fakeCashRepo) ListMovements(_ context.Context, filter MovementFilter) ([]Movement, error) {
	var out []Movement
	for _, mv := range f.book.movements {
		if filter.Kind != "" && mv.Kind != filter.Kind {
			continue
		}
		out = append(out, mv)
	}
	return out, nil
}

func (f *fakeCashRepo) GetMovement(_ context.Context, id int64) (Movement, error) {
	for _, mv := range f.book.movements {
		if mv.ID == id {
			return mv, nil
		}
	}
	return Movement{}, shared.ErrNotFound
}

func (f *fakeCashRepo) Balance(_ context.Context, filter MovementFilter) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, mv := range f.book.movements {
		if !filter.From.IsZero() && mv.OccurredAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !mv.OccurredAt.Before(filter.To) {
			continue
		}
		if mv.Kind == KindIn {
			total = total.Add(mv.Amount)
		} else {
			total = total.Sub(mv.Amount)
		}
	}
	return total, nil
}

func (f *fakeCashRepo) Summarize(ctx context.Context, filter MovementFilter) (Summary, error) {
	var s Summary
	for _, mv := range f.book.movements {
		inWindow := true
		if !filter.From.IsZero() && mv.OccurredAt.Before(filter.From) {
			inWindow = false
		}
		if !filter.To.IsZero() && !mv.OccurredAt.Before(filter.To) {
			inWindow = false
		}
		if mv.Kind == KindIn {
			s.Balance = s.Balance.Add(mv.Amount)
			if inWindow {
				s.TotalIn = s.TotalIn.Add(mv.Amount)
			}
		} else {
			s.Balance = s.Balance.Sub(mv.Amount)
			if inWindow {
				s.TotalOut = s.TotalOut.Add(mv.Amount)
			}
		}
	}
	s.Net = s.TotalIn.Sub(s.TotalOut)
	return s, nil
}

func TestRecordMovementAndBalance(t *testing.T) {
	repo := &fakeCashRepo{}
	svc := NewService(repo, nil, nil)

	_, err := svc.RecordMovement(context.Background(), MovementInput{
		Kind:        KindIn,
		Amount:      decimal.RequireFromString("150.00"),
		Description: "recebimento avulso",
		ActorID:     1,
	})
	require.NoError(t, err)

	_, err = svc.RecordMovement(context.Background(), MovementInput{
		Kind:        KindOut,
		Amount:      decimal.RequireFromString("40.50"),
		Description: "despesa",
		ActorID:     1,
	})
	require.NoError(t, err)

	balance, err := svc.Balance(context.Background(), MovementFilter{})
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("109.50")))
}

func TestRecordMovementRejectsNonPositiveAmount(t *testing.T) {
	repo := &fakeCashRepo{}
	svc := NewService(repo, nil, nil)

	_, err := svc.RecordMovement(context.Background(), MovementInput{
		Kind:        KindIn,
		Amount:      decimal.Zero,
		Description: "nada",
		ActorID:     1,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.book.movements)

	_, err = svc.RecordMovement(context.Background(), MovementInput{
		Kind:        KindOut,
		Amount:      decimal.RequireFromString("-5"),
		Description: "negativo",
		ActorID:     1,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.book.movements)
}

func TestRecordMovementRejectsUnknownKind(t *testing.T) {
	repo := &fakeCashRepo{}
	svc := NewService(repo, nil, nil)

	_, err := svc.RecordMovement(context.Background(), MovementInput{
		Kind:        Kind("sideways"),
		Amount:      decimal.NewFromInt(1),
		Description: "x",
		ActorID:     1,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestBalanceWindow(t *testing.T) {
	repo := &fakeCashRepo{}
	svc := NewService(repo, nil, nil)

	now := time.Now().UTC()
	repo.book.movements = []Movement{
		{ID: 1, Kind: KindIn, Amount: decimal.NewFromInt(100), OccurredAt: now.Add(-48 * time.Hour)},
		{ID: 2, Kind: KindIn, Amount: decimal.NewFromInt(30), OccurredAt: now},
		{ID: 3, Kind: KindOut, Amount: decimal.NewFromInt(10), OccurredAt: now},
	}

	balance, err := svc.Balance(context.Background(), MovementFilter{From: now.Add(-time.Hour)})
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(20)))

	balance, err = svc.Balance(context.Background(), MovementFilter{})
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(120)))
}

func TestSummarizeKeepsAllTimeBalance(t *testing.T) {
	repo := &fakeCashRepo{}
	svc := NewService(repo, nil, nil)

	now := time.Now().UTC()
	repo.book.movements = []Movement{
		{ID: 1, Kind: KindIn, Amount: decimal.NewFromInt(100), OccurredAt: now.Add(-48 * time.Hour)},
		{ID: 2, Kind: KindIn, Amount: decimal.NewFromInt(30), OccurredAt: now},
		{ID: 3, Kind: KindOut, Amount: decimal.NewFromInt(10), OccurredAt: now},
	}

	summary, err := svc.Summarize(context.Background(), MovementFilter{From: now.Add(-time.Hour)})
	require.NoError(t, err)
	require.True(t, summary.TotalIn.Equal(decimal.NewFromInt(30)))
	require.True(t, summary.TotalOut.Equal(decimal.NewFromInt(10)))
	require.True(t, summary.Net.Equal(decimal.NewFromInt(20)))
	require.True(t, summary.Balance.Equal(decimal.NewFromInt(120)))
}
