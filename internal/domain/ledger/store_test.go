package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/account"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/infrastructure/storage/memory"
)

func newStore(t *testing.T) (*ledger.Store, *memory.Backend) {
	t.Helper()
	b := memory.New()
	require.NoError(t, b.Accounts.Create(context.Background(),
		account.NewAccount("1300", "Inventory", account.KindAsset)))
	return ledger.NewStore(b.Ledger, account.NewLookup(b.Accounts), 0), b
}

func balanced(amount string) *ledger.Entry {
	return ledger.NewEntry(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "test", "manual").
		Debit("1300", types.MustMoney(amount), "").
		Credit("5900", types.MustMoney(amount), "")
}

func TestAppend_AssignsSequencesFromBase(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	first, err := store.Append(ctx, balanced("10"))
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultSequenceBase, first)

	second, err := store.Append(ctx, balanced("20"))
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}

func TestAppend_ResolvesAccountNames(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	seq, err := store.Append(ctx, balanced("10"))
	require.NoError(t, err)

	e, err := store.Get(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, "Inventory", e.Lines[0].AccountName)
	assert.Empty(t, e.Lines[1].AccountName, "unknown codes are accepted")
	assert.Equal(t, "system", e.CreatedBy)
}

func TestAppend_RejectsUnbalanced(t *testing.T) {
	ctx := context.Background()
	store, b := newStore(t)
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry *ledger.Entry
	}{
		{
			name: "debit differs from credit",
			entry: ledger.NewEntry(date, "x", "manual").
				Debit("1300", types.MustMoney("10"), "").
				Credit("5900", types.MustMoney("9.99"), ""),
		},
		{
			name: "declared totals differ from lines",
			entry: func() *ledger.Entry {
				e := balanced("10")
				e.TotalDebit = types.MustMoney("11")
				e.TotalCredit = types.MustMoney("11")
				return e
			}(),
		},
		{
			name: "line with both sides",
			entry: func() *ledger.Entry {
				e := balanced("10")
				e.Lines[0].Credit = types.MustMoney("10")
				e.TotalCredit = types.MustMoney("20")
				e.Lines[1].Debit = types.MustMoney("10")
				e.TotalDebit = types.MustMoney("20")
				return e
			}(),
		},
		{
			name: "negative amount",
			entry: ledger.NewEntry(date, "x", "manual").
				Debit("1300", types.MustMoney("-5"), "").
				Credit("5900", types.MustMoney("-5"), ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Append(ctx, tt.entry)
			assert.True(t, apperror.HasCode(err, apperror.CodeUnbalancedEntry), "got %v", err)
		})
	}

	last, err := b.Ledger.MaxSequence(ctx)
	require.NoError(t, err)
	assert.Zero(t, last, "rejected entries must not consume a sequence")
}

func TestAppend_PostedEntryRejectsPlaceholderLines(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	e := balanced("10").Debit("1400", types.Zero(), "placeholder")
	_, err := store.Append(ctx, e)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnbalancedEntry))

	draft := balanced("10").Debit("1400", types.Zero(), "placeholder")
	draft.Status = ledger.StatusDraft
	seq, err := store.Append(ctx, draft)
	require.NoError(t, err)

	err = store.Post(ctx, seq)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnbalancedEntry))
}

func TestLifecycle_PostApprove(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	e := balanced("10")
	e.Status = ledger.StatusDraft
	seq, err := store.Append(ctx, e)
	require.NoError(t, err)

	err = store.Approve(ctx, seq)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLedgerState))

	require.NoError(t, store.Post(ctx, seq))
	require.NoError(t, store.Approve(ctx, seq))

	got, err := store.Get(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, got.Status)
}

func TestReverse_AppendsMirrorAndKeepsOriginal(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	seq, err := store.Append(ctx, balanced("250"))
	require.NoError(t, err)

	mirrorSeq, err := store.Reverse(ctx, seq, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "entered twice")
	require.NoError(t, err)
	assert.Greater(t, mirrorSeq, seq)

	original, err := store.Get(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, original.Status)
	require.NotNil(t, original.ReversedBy)
	assert.Equal(t, mirrorSeq, *original.ReversedBy)

	mirror, err := store.Get(ctx, mirrorSeq)
	require.NoError(t, err)
	require.NotNil(t, mirror.ReversalOf)
	assert.Equal(t, seq, *mirror.ReversalOf)
	assert.Equal(t, "Reversal of #1000: entered twice", mirror.Description)
	assert.True(t, mirror.Lines[0].Credit.Equal(types.MustMoney("250")))
	assert.True(t, mirror.Lines[1].Debit.Equal(types.MustMoney("250")))

	_, err = store.Reverse(ctx, seq, time.Now(), "again")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLedgerState))

	// Sequences keep increasing after a reversal.
	next, err := store.Append(ctx, balanced("1"))
	require.NoError(t, err)
	assert.Equal(t, mirrorSeq+1, next)
}

func TestUpdateStatus_RejectsStaleStatus(t *testing.T) {
	ctx := context.Background()
	store, b := newStore(t)

	seq, err := store.Append(ctx, balanced("40"))
	require.NoError(t, err)
	_, err = store.Reverse(ctx, seq, time.Now(), "wrong account")
	require.NoError(t, err)

	// An approval that read "posted" before the reversal committed must not win.
	err = b.Ledger.UpdateStatus(ctx, seq, ledger.StatusPosted, ledger.StatusApproved, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLedgerState))

	got, err := store.Get(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, got.Status)
	assert.NotNil(t, got.ReversedBy)
}

func TestEveryStoredEntryBalances(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	for _, amount := range []string{"1", "2.5", "1000000.01"} {
		seq, err := store.Append(ctx, balanced(amount))
		require.NoError(t, err)
		_, err = store.Reverse(ctx, seq, time.Now(), "")
		require.NoError(t, err)
	}

	entries, err := store.List(ctx, ledger.ListFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 6)

	var prev int64
	for _, e := range entries {
		debit, credit := e.LineTotals()
		assert.True(t, debit.Equal(credit))
		assert.True(t, debit.Equal(e.TotalDebit))
		assert.True(t, credit.Equal(e.TotalCredit))
		assert.Greater(t, e.Sequence, prev)
		prev = e.Sequence
	}
}
