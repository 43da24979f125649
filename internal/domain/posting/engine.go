package posting

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledgercore/internal/core/apperror"
	appctx "ledgercore/internal/core/context"
	"ledgercore/internal/core/lock"
	"ledgercore/internal/core/tx"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/domain/registers/stock"
	"ledgercore/pkg/logger"
)

// Outbox stores events in the same transaction as the business change.
type Outbox interface {
	PublishBatch(ctx context.Context, events []Event) error
}

// AuditSink stores audit records in the same transaction as the business change.
type AuditSink interface {
	Record(ctx context.Context, records []AuditRecord) error
}

// Observer receives action metrics. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveAction(action, result string, duration time.Duration)
	LedgerEntriesAppended(module string, n int)
}

// Config holds the engine collaborators. Outbox, Audit and Observer are optional.
type Config struct {
	TxManager          tx.Manager
	Locks              *lock.Keyed
	Stock              *stock.Service
	Ledger             *ledger.Store
	Outbox             Outbox
	Audit              AuditSink
	Observer           Observer
	AllowNegativeStock bool
}

// Engine runs business actions as one atomic unit.
//
// Lock order is fixed: aggregate keys sorted by name, then the ledger
// sequence key. The sequence key is only taken when the action appends
// to the ledger and is held until commit, so sequences are assigned
// in commit order.
type Engine struct {
	txm           tx.Manager
	locks         *lock.Keyed
	stock         *stock.Service
	ledger        *ledger.Store
	outbox        Outbox
	audit         AuditSink
	observer      Observer
	allowNegative bool
	tracer        trace.Tracer
}

// NewEngine creates a posting engine.
func NewEngine(cfg Config) *Engine {
	locks := cfg.Locks
	if locks == nil {
		locks = lock.NewKeyed()
	}
	return &Engine{
		txm:           cfg.TxManager,
		locks:         locks,
		stock:         cfg.Stock,
		ledger:        cfg.Ledger,
		outbox:        cfg.Outbox,
		audit:         cfg.Audit,
		observer:      cfg.Observer,
		allowNegative: cfg.AllowNegativeStock,
		tracer:        otel.Tracer("ledgercore/posting"),
	}
}

// Ledger returns the ledger store the engine writes to.
func (e *Engine) Ledger() *ledger.Store { return e.ledger }

// Stock returns the stock register service.
func (e *Engine) Stock() *stock.Service { return e.stock }

// PlanFunc reads current state through ctx and records effects on uow.
// Returning an error aborts the action with nothing written.
type PlanFunc func(ctx context.Context, uow *UnitOfWork) error

// Run executes plan under the given aggregate locks inside one transaction
// and applies the collected effects. Either every effect is committed or none.
func (e *Engine) Run(ctx context.Context, action string, keys []string, plan PlanFunc) (err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "posting."+action,
		trace.WithAttributes(attribute.StringSlice("posting.keys", keys)))
	defer func() {
		result := resultLabel(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		span.End()
		if e.observer != nil {
			e.observer.ObserveAction(action, result, time.Since(start))
		}
	}()

	unlock := e.locks.Lock(keys...)
	defer unlock()

	var (
		uow       *UnitOfWork
		seqUnlock func()
	)
	err = e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if kl, ok := e.txm.(tx.KeyLocker); ok && len(keys) > 0 {
			if err := kl.LockKeys(ctx, keys...); err != nil {
				return fmt.Errorf("lock keys: %w", err)
			}
		}

		uow = newUnitOfWork(action)
		if err := plan(ctx, uow); err != nil {
			return err
		}
		return e.apply(ctx, uow, &seqUnlock)
	})
	if seqUnlock != nil {
		seqUnlock()
	}
	if err != nil {
		logger.Debug(ctx, "posting action failed", "action", action, "error", err)
		return err
	}

	entries := uow.Entries()
	if n := len(entries) + countReversals(uow); n > 0 && e.observer != nil {
		module := ""
		if len(entries) > 0 {
			module = entries[0].SourceModule
		}
		e.observer.LedgerEntriesAppended(module, n)
	}
	logger.Info(ctx, "posting action committed",
		"action", action,
		"movements", len(uow.movements),
		"ledger_ops", len(uow.ledger),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (e *Engine) apply(ctx context.Context, uow *UnitOfWork, seqUnlock *func()) error {
	if len(uow.movements) > 0 {
		if e.stock == nil {
			return apperror.NewInternal(fmt.Errorf("stock register is not configured"))
		}
		if err := e.stock.Apply(ctx, uow.movements, e.allowNegative); err != nil {
			return err
		}
	}

	if uow.needsSequence() {
		if *seqUnlock == nil {
			*seqUnlock = e.locks.Lock(lock.LedgerSequenceKey)
		}
		if kl, ok := e.txm.(tx.KeyLocker); ok {
			if err := kl.LockKeys(ctx, lock.LedgerSequenceKey); err != nil {
				return fmt.Errorf("lock ledger sequence: %w", err)
			}
		}
	}

	for _, op := range uow.ledger {
		if err := e.applyLedgerOp(ctx, op); err != nil {
			return err
		}
	}

	for _, save := range uow.saves {
		if err := save(ctx); err != nil {
			return err
		}
	}

	if len(uow.audits) > 0 && e.audit != nil {
		actor := appctx.GetActorID(ctx)
		for i := range uow.audits {
			if uow.audits[i].ActorID == "" {
				uow.audits[i].ActorID = actor
			}
		}
		if err := e.audit.Record(ctx, uow.audits); err != nil {
			return fmt.Errorf("record audit: %w", err)
		}
	}

	if len(uow.events) > 0 && e.outbox != nil {
		if err := e.outbox.PublishBatch(ctx, uow.events); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}
	}
	return nil
}

func (e *Engine) applyLedgerOp(ctx context.Context, op ledgerOp) error {
	if e.ledger == nil {
		return apperror.NewInternal(fmt.Errorf("ledger store is not configured"))
	}
	switch op.kind {
	case opAppend:
		_, err := e.ledger.Append(ctx, op.entry)
		return err
	case opReverse:
		seq, err := e.ledger.Reverse(ctx, op.reversal.Of, op.reversal.Date, op.reversal.Reason)
		if err != nil {
			return err
		}
		op.reversal.Sequence = seq
		return nil
	case opPost:
		return e.ledger.Post(ctx, op.sequence)
	case opApprove:
		return e.ledger.Approve(ctx, op.sequence)
	default:
		return apperror.NewInternal(fmt.Errorf("unknown ledger operation %d", op.kind))
	}
}

func countReversals(uow *UnitOfWork) int {
	n := 0
	for _, op := range uow.ledger {
		if op.kind == opReverse {
			n++
		}
	}
	return n
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.Code
	}
	return "error"
}
