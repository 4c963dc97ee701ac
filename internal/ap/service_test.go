package ap

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/cashbook"
	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type fakeCashBook struct {
	movements []cashbook.Movement
}

func (f *fakeCashBook) InsertMovement(_ context.Context, mv cashbook.Movement) (int64, error) {
	mv.ID = int64(len(f.movements) + 1)
	f.movements = append(f.movements, mv)
	return mv.ID, nil
}

type fakeRepo struct {
	entries map[int64]Entry
	cash    *fakeCashBook
	nextID  int64
	seq     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: map[int64]Entry{}, cash: &fakeCashBook{}, nextID: 1}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[int64]Entry, len(f.entries))
	for k, v := range f.entries {
		snapshot[k] = v
	}
	moved := len(f.cash.movements)
	if err := fn(ctx, &fakeTx{repo: f}); err != nil {
		f.entries = snapshot
		f.cash.movements = f.cash.movements[:moved]
		return err
	}
	return nil
}

func (f *fakeRepo) GetEntry(_ context.Context, id int64) (Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return Entry{}, shared.ErrNotFound
	}
	return e, nil
}

func (f *fakeRepo) ListEntries(_ context.Context, filter Filter) ([]Entry, error) {
	var out []Entry
	for _, e := range f.entries {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeTx struct {
	repo *fakeRepo
}

func (t *fakeTx) InsertEntry(_ context.Context, e Entry) (int64, error) {
	e.ID = t.repo.nextID
	t.repo.nextID++
	t.repo.entries[e.ID] = e
	return e.ID, nil
}

func (t *fakeTx) GetEntryForUpdate(_ context.Context, id int64) (Entry, error) {
	e, ok := t.repo.entries[id]
	if !ok {
		return Entry{}, shared.ErrNotFound
	}
	return e, nil
}

func (t *fakeTx) UpdateEntry(_ context.Context, e Entry) error {
	if _, ok := t.repo.entries[e.ID]; !ok {
		return shared.ErrNotFound
	}
	t.repo.entries[e.ID] = e
	return nil
}

func (t *fakeTx) DeleteEntry(_ context.Context, id int64) error {
	if _, ok := t.repo.entries[id]; !ok {
		return shared.ErrNotFound
	}
	delete(t.repo.entries, id)
	return nil
}

func (t *fakeTx) NextSequence(_ context.Context, _ int) (int64, error) {
	t.repo.seq++
	return t.repo.seq, nil
}

func (t *fakeTx) Cashbook() cashbook.TxBook {
	return t.repo.cash
}

type fakeCatalog struct {
	partners map[int64]catalog.Partner
}

func (f *fakeCatalog) RequireSupplier(_ context.Context, id int64) (catalog.Partner, error) {
	p, ok := f.partners[id]
	if !ok {
		return catalog.Partner{}, shared.ErrNotFound
	}
	if !p.Roles.CanSupply() {
		return catalog.Partner{}, shared.ErrInvalidRole
	}
	return p, nil
}

type fakePolicy struct{}

func (fakePolicy) AllowSettledEdit() bool { return false }

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	supplierRoles, _ := catalog.ParseRoleTag("supplier")
	customerRoles, _ := catalog.ParseRoleTag("customer")
	cat := &fakeCatalog{partners: map[int64]catalog.Partner{
		1: {ID: 1, Name: "Fornecedor A", Roles: supplierRoles},
		2: {ID: 2, Name: "Cliente B", Roles: customerRoles},
	}}
	svc := NewService(repo, cat, nil, fakePolicy{}, nil)
	return svc, repo
}

var clerkActor = shared.Actor{ID: 3, Name: "clerk", Role: "user"}

func TestCreatePayableRejectsCustomerOnlyPartner(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), clerkActor, CreateInput{
		SupplierID: 2,
		Amount:     decimal.NewFromInt(10),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.ErrorIs(t, err, shared.ErrInvalidRole)
}

func TestSettlePostsExactlyOneCashOutflow(t *testing.T) {
	svc, repo := newTestService()

	entry, err := svc.Create(context.Background(), clerkActor, CreateInput{
		SupplierID: 1,
		Amount:     decimal.RequireFromString("230.00"),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	require.Contains(t, entry.Code, "CP")

	settled, err := svc.Settle(context.Background(), clerkActor, entry.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSettled, settled.Status)

	require.Len(t, repo.cash.movements, 1)
	mv := repo.cash.movements[0]
	require.Equal(t, cashbook.KindOut, mv.Kind)
	require.True(t, mv.Amount.Equal(decimal.RequireFromString("230.00")))
	require.Equal(t, entry.Code, mv.Reference)

	_, err = svc.Settle(context.Background(), clerkActor, entry.ID, nil)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Len(t, repo.cash.movements, 1)
}

func TestSettledEditAlwaysRejectedWithOverrideOff(t *testing.T) {
	svc, _ := newTestService()

	entry, err := svc.Create(context.Background(), clerkActor, CreateInput{
		SupplierID: 1,
		Amount:     decimal.NewFromInt(80),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	_, err = svc.Settle(context.Background(), clerkActor, entry.ID, nil)
	require.NoError(t, err)

	amount := decimal.NewFromInt(90)
	admin := shared.Actor{ID: 9, Name: "root", Role: "admin"}
	_, err = svc.Update(context.Background(), admin, entry.ID, Patch{Amount: &amount})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCancelPendingPayable(t *testing.T) {
	svc, repo := newTestService()

	entry, err := svc.Create(context.Background(), clerkActor, CreateInput{
		SupplierID: 1,
		Amount:     decimal.NewFromInt(40),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), clerkActor, entry.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Empty(t, repo.cash.movements)

	_, err = svc.Cancel(context.Background(), clerkActor, entry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}
