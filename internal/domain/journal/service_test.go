package journal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/journal"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/domain/posting"
	"ledgercore/internal/infrastructure/storage/memory"
)

func newEngine(b *memory.Backend) *posting.Engine {
	return posting.NewEngine(posting.Config{
		TxManager: b.TxManager,
		Ledger:    ledger.NewStore(b.Ledger, nil, 0),
		Outbox:    b.Outbox,
		Audit:     b.Audit,
	})
}

func newService(t *testing.T) (*journal.Service, *memory.Backend) {
	t.Helper()
	b := memory.New()
	return journal.NewService(newEngine(b)), b
}

func draft(amount string) *ledger.Entry {
	e := ledger.NewEntry(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), "accrual", "").
		Debit("6100", types.MustMoney(amount), "").
		Credit("2400", types.MustMoney(amount), "")
	e.Status = ledger.StatusDraft
	return e
}

func TestAppendPostApproveReverse(t *testing.T) {
	ctx := context.Background()
	svc, b := newService(t)

	seq, err := svc.Append(ctx, draft("250"))
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultSequenceBase, seq)

	stored, err := svc.Get(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, journal.SourceModule, stored.SourceModule)
	assert.Equal(t, ledger.StatusDraft, stored.Status)

	posted, err := svc.Post(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, posted.Status)

	approved, err := svc.Approve(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, approved.Status)

	mirrorSeq, err := svc.Reverse(ctx, seq, time.Time{}, "wrong period")
	require.NoError(t, err)
	assert.Equal(t, seq+1, mirrorSeq)

	original, err := svc.Get(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, original.Status)
	require.NotNil(t, original.ReversedBy)
	assert.Equal(t, mirrorSeq, *original.ReversedBy)

	mirror, err := svc.Get(ctx, mirrorSeq)
	require.NoError(t, err)
	require.NotNil(t, mirror.ReversalOf)
	assert.Equal(t, seq, *mirror.ReversalOf)
	assert.True(t, mirror.Lines[0].Credit.Equal(types.MustMoney("250")))

	events := b.Outbox.Messages()
	require.Len(t, events, 2)
	assert.Equal(t, journal.EventEntryAppended, events[0].EventType)
	assert.Equal(t, journal.EventEntryReversed, events[1].EventType)
}

func TestReverse_TwiceFails(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	e := draft("10")
	e.Status = ledger.StatusPosted
	seq, err := svc.Append(ctx, e)
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, seq, time.Now(), "")
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, seq, time.Now(), "")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidLedgerState, appErr.Code)

	entries, err := svc.List(ctx, ledger.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 2, "failed reversal leaves no trace")
}

func TestAppend_UnbalancedRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, b := newService(t)

	e := draft("10")
	e.TotalCredit = types.MustMoney("9")

	_, err := svc.Append(ctx, e)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnbalancedEntry, appErr.Code)
	assert.Empty(t, b.Outbox.Messages())

	_, err = svc.Append(ctx, nil)
	assert.True(t, apperror.IsAppError(err))
}

func TestAppend_AlwaysTagsManual(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	e := draft("5")
	e.SourceModule = "settlement"
	seq, err := svc.Append(ctx, e)
	require.NoError(t, err)

	stored, err := svc.Get(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, journal.SourceModule, stored.SourceModule)
}

func TestForeignEntriesAreReadOnly(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	engine := newEngine(b)
	svc := journal.NewService(engine)

	e := ledger.NewEntry(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), "receipt", "settlement").
		Debit("1010", types.MustMoney("100"), "").
		Credit("1200", types.MustMoney("100"), "")
	require.NoError(t, engine.Run(ctx, "payment.apply", nil, func(ctx context.Context, uow *posting.UnitOfWork) error {
		uow.AppendEntry(e)
		return nil
	}))
	seq := e.Sequence

	_, err := svc.Reverse(ctx, seq, time.Now(), "by hand")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLedgerState), "reverse: %v", err)

	_, err = svc.Approve(ctx, seq)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLedgerState), "approve: %v", err)

	_, err = svc.Post(ctx, seq)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLedgerState), "post: %v", err)

	stored, err := svc.Get(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, stored.Status)
	assert.Nil(t, stored.ReversedBy)

	entries, err := svc.List(ctx, ledger.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
