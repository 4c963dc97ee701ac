package ar

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
	seq := f.seq
	if err := fn(ctx, &fakeTx{repo: f}); err != nil {
		f.entries = snapshot
		f.cash.movements = f.cash.movements[:moved]
		f.seq = seq
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

func (f *fakeCatalog) RequireCustomer(_ context.Context, id int64) (catalog.Partner, error) {
	p, ok := f.partners[id]
	if !ok {
		return catalog.Partner{}, shared.ErrNotFound
	}
	if !p.Roles.CanBuy() {
		return catalog.Partner{}, shared.ErrInvalidRole
	}
	return p, nil
}

type fakePolicy struct {
	settledEdit bool
}

func (f *fakePolicy) AllowSettledEdit() bool { return f.settledEdit }

func newTestService(settledEdit bool) (*Service, *fakeRepo) {
	repo := newFakeRepo()
	customerRoles, _ := catalog.ParseRoleTag("customer")
	supplierRoles, _ := catalog.ParseRoleTag("supplier")
	cat := &fakeCatalog{partners: map[int64]catalog.Partner{
		1: {ID: 1, Name: "Cliente A", Roles: customerRoles},
		2: {ID: 2, Name: "Fornecedor B", Roles: supplierRoles},
	}}
	svc := NewService(repo, cat, nil, &fakePolicy{settledEdit: settledEdit}, nil)
	return svc, repo
}

var adminActor = shared.Actor{ID: 9, Name: "root", Role: "admin"}
var clerkActor = shared.Actor{ID: 3, Name: "clerk", Role: "user"}

func TestCreateReceivable(t *testing.T) {
	svc, _ := newTestService(false)

	entry, err := svc.Create(context.Background(), clerkActor, CreateInput{
		CustomerID: 1,
		Amount:     decimal.RequireFromString("150.00"),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, entry.Status)
	require.Contains(t, entry.Code, "CR")
	require.Nil(t, entry.SettledAt)
}

func TestCreateReceivableRejectsSupplierOnlyPartner(t *testing.T) {
	svc, _ := newTestService(false)

	_, err := svc.Create(context.Background(), clerkActor, CreateInput{
		CustomerID: 2,
		Amount:     decimal.NewFromInt(10),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.ErrorIs(t, err, shared.ErrInvalidRole)
}

func TestCreateReceivableRejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newTestService(false)

	_, err := svc.Create(context.Background(), clerkActor, CreateInput{
		CustomerID: 1,
		Amount:     decimal.Zero,
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSettlePostsExactlyOneCashMovement(t *testing.T) {
	svc, repo := newTestService(false)

	entry, err := svc.Create(context.Background(), clerkActor, CreateInput{
		CustomerID: 1,
		Amount:     decimal.RequireFromString("150.00"),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	settled, err := svc.Settle(context.Background(), clerkActor, entry.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSettled, settled.Status)
	require.NotNil(t, settled.SettledAt)

	require.Len(t, repo.cash.movements, 1)
	mv := repo.cash.movements[0]
	require.Equal(t, cashbook.KindIn, mv.Kind)
	require.True(t, mv.Amount.Equal(decimal.RequireFromString("150.00")))
	require.Equal(t, entry.Code, mv.Reference)

	// Second settle must be rejected and must not post again.
	_, err = svc.Settle(context.Background(), clerkActor, entry.ID, nil)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Len(t, repo.cash.movements, 1)
}

func TestSettleCancelledEntryRejected(t *testing.T) {
	svc, repo := newTestService(false)

	entry, err := svc.Create(context.Background(), clerkActor, CreateInput{
		CustomerID: 1,
		Amount:     decimal.NewFromInt(50),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), clerkActor, entry.ID)
	require.NoError(t, err)

	_, err = svc.Settle(context.Background(), clerkActor, entry.ID, nil)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Empty(t, repo.cash.movements)
}

func TestCancelOnlyFromPending(t *testing.T) {
	svc, _ := newTestService(false)

	entry, err := svc.Create(context.Background(), clerkActor, CreateInput{
		CustomerID: 1,
		Amount:     decimal.NewFromInt(50),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	_, err = svc.Settle(context.Background(), clerkActor, entry.ID, nil)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), clerkActor, entry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestUpdateSettledEntryGuard(t *testing.T) {
	svc, _ := newTestService(false)

	entry, err := svc.Create(context.Background(), clerkActor, CreateInput{
		CustomerID: 1,
		Amount:     decimal.NewFromInt(100),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	_, err = svc.Settle(context.Background(), clerkActor, entry.ID, nil)
	require.NoError(t, err)

	amount := decimal.NewFromInt(120)

	// Plain users never edit settled entries.
	_, err = svc.Update(context.Background(), clerkActor, entry.ID, Patch{Amount: &amount})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	// Admins are still rejected while the override is off.
	_, err = svc.Update(context.Background(), adminActor, entry.ID, Patch{Amount: &amount})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestUpdateSettledEntryAdminOverride(t *testing.T) {
	svc, _ := newTestService(true)

	entry, err := svc.Create(context.Background(), clerkActor, CreateInput{
		CustomerID: 1,
		Amount:     decimal.NewFromInt(100),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	_, err = svc.Settle(context.Background(), clerkActor, entry.ID, nil)
	require.NoError(t, err)

	amount := decimal.NewFromInt(120)

	_, err = svc.Update(context.Background(), clerkActor, entry.ID, Patch{Amount: &amount})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	updated, err := svc.Update(context.Background(), adminActor, entry.ID, Patch{Amount: &amount})
	require.NoError(t, err)
	require.True(t, updated.Amount.Equal(amount))
}

func TestDeleteOnlyPending(t *testing.T) {
	svc, repo := newTestService(false)

	entry, err := svc.Create(context.Background(), clerkActor, CreateInput{
		CustomerID: 1,
		Amount:     decimal.NewFromInt(100),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), clerkActor, entry.ID))
	_, err = repo.GetEntry(context.Background(), entry.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	settledEntry, err := svc.Create(context.Background(), clerkActor, CreateInput{
		CustomerID: 1,
		Amount:     decimal.NewFromInt(100),
		DueDate:    time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	_, err = svc.Settle(context.Background(), clerkActor, settledEntry.ID, nil)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), clerkActor, settledEntry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}
