package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
	commitErr error
}

func (f *fakeTx) Commit(context.Context) error {
	f.commits++
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rollbacks++
	return nil
}

type fakeBeginner struct {
	tx       *fakeTx
	opts     pgx.TxOptions
	beginErr error
}

func (f *fakeBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	f.opts = opts
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

func TestWithTxCommitsAtRepeatableRead(t *testing.T) {
	pool := &fakeBeginner{tx: &fakeTx{}}

	var got pgx.Tx
	err := WithTx(context.Background(), pool, func(tx pgx.Tx) error {
		got = tx
		return nil
	})
	require.NoError(t, err)
	require.Same(t, pgx.Tx(pool.tx), got)
	require.Equal(t, pgx.RepeatableRead, pool.opts.IsoLevel)
	require.Equal(t, 1, pool.tx.commits)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	pool := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")

	err := WithTx(context.Background(), pool, func(pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.Zero(t, pool.tx.commits)
	require.Equal(t, 1, pool.tx.rollbacks)
}

func TestWithTxWrapsBeginAndCommitErrors(t *testing.T) {
	pool := &fakeBeginner{beginErr: errors.New("down")}
	called := false
	err := WithTx(context.Background(), pool, func(pgx.Tx) error {
		called = true
		return nil
	})
	require.ErrorContains(t, err, "begin tx")
	require.False(t, called)

	pool = &fakeBeginner{tx: &fakeTx{commitErr: errors.New("conflict")}}
	err = WithTx(context.Background(), pool, func(pgx.Tx) error { return nil })
	require.ErrorContains(t, err, "commit tx")
}
