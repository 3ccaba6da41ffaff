package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestNoopTransactorRunsHooksAfterSuccess(t *testing.T) {
	var calls []string
	err := NoopTransactor{}.WithinTx(context.Background(), func(ctx context.Context) error {
		require.True(t, InTx(ctx))
		AfterCommit(ctx, func(context.Context) { calls = append(calls, "hook") })
		calls = append(calls, "body")
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"body", "hook"}, calls)
}

func TestNoopTransactorSkipsHooksOnError(t *testing.T) {
	fired := false
	boom := errors.New("boom")
	err := NoopTransactor{}.WithinTx(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(context.Context) { fired = true })
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, fired)
}

func TestNoopTransactorNestedJoinsOuter(t *testing.T) {
	var order []string
	err := NoopTransactor{}.WithinTx(context.Background(), func(ctx context.Context) error {
		return NoopTransactor{}.WithinTx(ctx, func(inner context.Context) error {
			AfterCommit(inner, func(context.Context) { order = append(order, "hook") })
			order = append(order, "inner")
			return nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, []string{"inner", "hook"}, order)
}

func TestAfterCommitWithoutTxRunsImmediately(t *testing.T) {
	fired := false
	AfterCommit(context.Background(), func(context.Context) { fired = true })
	require.True(t, fired)
}

func TestTranslateErrorMarksLostRaces(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		pgErr := &pgconn.PgError{Code: code, Message: "could not serialize access due to concurrent update"}
		err := TranslateError(fmt.Errorf("procurement: get po: %w", pgErr))
		require.ErrorIs(t, err, ErrConcurrentUpdate, code)
		var got *pgconn.PgError
		require.ErrorAs(t, err, &got)
		require.Equal(t, code, got.Code)
	}

	unique := &pgconn.PgError{Code: "23505"}
	require.Same(t, error(unique), TranslateError(unique))
	require.NotErrorIs(t, TranslateError(errors.New("boom")), ErrConcurrentUpdate)
	require.NoError(t, TranslateError(nil))
}
