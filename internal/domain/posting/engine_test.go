package posting_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/lock"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/domain/posting"
	"ledgercore/internal/domain/registers/stock"
	"ledgercore/internal/infrastructure/storage/memory"
)

type recordingObserver struct {
	mu      sync.Mutex
	results []string
	entries int
}

func (o *recordingObserver) ObserveAction(action, result string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, action+":"+result)
}

func (o *recordingObserver) LedgerEntriesAppended(_ string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries += n
}

type fixture struct {
	backend  *memory.Backend
	engine   *posting.Engine
	observer *recordingObserver
	item     *item.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := memory.New()
	it := item.NewItem("BOLT", "Bolt", item.KindRawMaterial, types.MustMoney("10"))
	require.NoError(t, b.Items.Create(context.Background(), it))

	obs := &recordingObserver{}
	engine := posting.NewEngine(posting.Config{
		TxManager: b.TxManager,
		Stock:     stock.NewService(b.Items, b.Movements),
		Ledger:    ledger.NewStore(b.Ledger, nil, 0),
		Outbox:    b.Outbox,
		Audit:     b.Audit,
		Observer:  obs,
	})
	return &fixture{backend: b, engine: engine, observer: obs, item: it}
}

func entry(amount string) *ledger.Entry {
	return ledger.NewEntry(time.Now().UTC(), "test", "test").
		Debit("1300", types.MustMoney(amount), "").
		Credit("2100", types.MustMoney(amount), "")
}

func TestRun_AppliesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	docID := id.New()

	var saved int64
	err := f.engine.Run(ctx, "receive", []string{lock.ItemKey(f.item.ID.String())}, func(ctx context.Context, uow *posting.UnitOfWork) error {
		uow.AddMovement(entity.NewInventoryMovement(docID, "GoodsReceipt", time.Now(), f.item.ID, types.NewQuantity(4)))
		e := uow.AppendEntry(entry("40"))
		uow.Save(func(ctx context.Context) error {
			saved = e.Sequence
			return nil
		})
		uow.Audit(posting.AuditRecord{EntityType: "GoodsReceipt", EntityID: docID, Action: "post"})
		uow.Emit(posting.Event{AggregateType: "GoodsReceipt", AggregateID: docID, EventType: "goods_receipt.posted"})
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.DefaultSequenceBase, saved, "saves run after the ledger")

	got, err := f.backend.Items.GetByID(ctx, f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(4), got.Stock)

	moves, err := f.backend.Movements.GetMovementsByRecorder(ctx, docID)
	require.NoError(t, err)
	assert.Len(t, moves, 1)

	assert.Len(t, f.backend.Outbox.Messages(), 1)
	history := f.backend.Audit.History(ctx, "GoodsReceipt", docID)
	require.Len(t, history, 1)
	assert.Equal(t, "system", history[0].ActorID)

	assert.Equal(t, []string{"receive:ok"}, f.observer.results)
	assert.Equal(t, 1, f.observer.entries)
}

func TestRun_InsufficientStockWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	docID := id.New()

	err := f.engine.Run(ctx, "ship", nil, func(ctx context.Context, uow *posting.UnitOfWork) error {
		uow.AddMovement(entity.NewInventoryMovement(docID, "GoodsIssue", time.Now(), f.item.ID, types.NewQuantity(-1)))
		uow.AppendEntry(entry("10"))
		uow.Emit(posting.Event{AggregateType: "GoodsIssue", AggregateID: docID, EventType: "goods_issue.posted"})
		return nil
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	last, err := f.backend.Ledger.MaxSequence(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)
	assert.Empty(t, f.backend.Outbox.Messages())
	assert.Equal(t, []string{"ship:" + apperror.CodeInsufficientStock}, f.observer.results)
}

func TestRun_FailingSaveRollsBackLedgerAndStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boom := errors.New("save failed")

	err := f.engine.Run(ctx, "receive", nil, func(ctx context.Context, uow *posting.UnitOfWork) error {
		uow.AddMovement(entity.NewInventoryMovement(id.New(), "GoodsReceipt", time.Now(), f.item.ID, types.NewQuantity(2)))
		uow.AppendEntry(entry("20"))
		uow.Save(func(context.Context) error { return boom })
		return nil
	})
	require.ErrorIs(t, err, boom)

	got, err := f.backend.Items.GetByID(ctx, f.item.ID)
	require.NoError(t, err)
	assert.True(t, got.Stock.IsZero())

	last, err := f.backend.Ledger.MaxSequence(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestRun_PlanErrorAbortsBeforeApply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boom := apperror.NewValidation("bad input")

	err := f.engine.Run(ctx, "noop", nil, func(ctx context.Context, uow *posting.UnitOfWork) error {
		uow.AppendEntry(entry("1"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	last, err := f.backend.Ledger.MaxSequence(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestRun_ReversalReportsMirrorSequence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var original *ledger.Entry
	require.NoError(t, f.engine.Run(ctx, "append", nil, func(ctx context.Context, uow *posting.UnitOfWork) error {
		original = uow.AppendEntry(entry("5"))
		return nil
	}))

	var rev *posting.Reversal
	require.NoError(t, f.engine.Run(ctx, "reverse", nil, func(ctx context.Context, uow *posting.UnitOfWork) error {
		rev = uow.ReverseEntry(original.Sequence, time.Now().UTC(), "undo")
		return nil
	}))
	assert.Equal(t, original.Sequence+1, rev.Sequence)
}

func TestRun_ConcurrentActionsGetDistinctSequences(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.engine.Run(ctx, "receive", []string{lock.ItemKey(f.item.ID.String())}, func(ctx context.Context, uow *posting.UnitOfWork) error {
				uow.AddMovement(entity.NewInventoryMovement(id.New(), "GoodsReceipt", time.Now(), f.item.ID, types.NewQuantity(1)))
				uow.AppendEntry(entry("10"))
				return nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := f.backend.Items.GetByID(ctx, f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(n), got.Stock)

	entries, err := f.backend.Ledger.List(ctx, ledger.ListFilter{})
	require.NoError(t, err)
	require.Len(t, entries, n)
	seen := make(map[int64]bool, n)
	for _, e := range entries {
		assert.False(t, seen[e.Sequence])
		seen[e.Sequence] = true
	}
}
