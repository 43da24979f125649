// Package journal exposes manual ledger operations (append, post, approve,
// reverse) through the posting engine so they share its locking and audit.
package journal

import (
	"context"
	"strconv"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/domain/posting"
)

// SourceModule tags entries created by hand.
const SourceModule = "manual"

const (
	EventEntryAppended = "ledger.entry_appended"
	EventEntryReversed = "ledger.entry_reversed"
)

// Service runs manual ledger actions.
type Service struct {
	engine *posting.Engine
}

// NewService creates a journal service.
func NewService(engine *posting.Engine) *Service {
	return &Service{engine: engine}
}

func entryKey(sequence int64) string {
	return "ledger:" + strconv.FormatInt(sequence, 10)
}

func audit(sequence int64, action string, changes map[string]any) posting.AuditRecord {
	return posting.AuditRecord{
		EntityType: "ledger_entry",
		EntityID:   id.ID{},
		Action:     action,
		Changes:    withSequence(changes, sequence),
	}
}

func withSequence(m map[string]any, sequence int64) map[string]any {
	if m == nil {
		m = map[string]any{}
	}
	m["sequence"] = sequence
	return m
}

// ensureManual rejects entries written by another module. Only the owning
// module may change their state, so its documents stay in step with the ledger.
func (s *Service) ensureManual(ctx context.Context, sequence int64, to ledger.Status) error {
	e, err := s.engine.Ledger().Get(ctx, sequence)
	if err != nil {
		return err
	}
	if e.SourceModule != SourceModule {
		return apperror.NewInvalidLedgerState(sequence, string(e.Status), string(to)).
			WithDetail("source_module", e.SourceModule)
	}
	return nil
}

// Append stores e as a manual entry and returns its sequence.
func (s *Service) Append(ctx context.Context, e *ledger.Entry) (int64, error) {
	if e == nil {
		return 0, apperror.NewValidation("ledger entry is required")
	}
	e.SourceModule = SourceModule

	err := s.engine.Run(ctx, "ledger.append", nil, func(ctx context.Context, uow *posting.UnitOfWork) error {
		planned := uow.AppendEntry(e)
		uow.Save(func(ctx context.Context) error {
			uow.Audit(audit(planned.Sequence, "append", map[string]any{
				"status": planned.Status,
				"total":  planned.TotalDebit.String(),
			}))
			uow.Emit(posting.Event{
				AggregateType: "ledger_entry",
				EventType:     EventEntryAppended,
				Payload:       planned,
			})
			return nil
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return e.Sequence, nil
}

// Post moves a draft entry to posted.
func (s *Service) Post(ctx context.Context, sequence int64) (*ledger.Entry, error) {
	err := s.engine.Run(ctx, "ledger.post", []string{entryKey(sequence)}, func(ctx context.Context, uow *posting.UnitOfWork) error {
		if err := s.ensureManual(ctx, sequence, ledger.StatusPosted); err != nil {
			return err
		}
		uow.PostEntry(sequence)
		uow.Audit(audit(sequence, "post", nil))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, sequence)
}

// Approve moves a posted entry to approved.
func (s *Service) Approve(ctx context.Context, sequence int64) (*ledger.Entry, error) {
	err := s.engine.Run(ctx, "ledger.approve", []string{entryKey(sequence)}, func(ctx context.Context, uow *posting.UnitOfWork) error {
		if err := s.ensureManual(ctx, sequence, ledger.StatusApproved); err != nil {
			return err
		}
		uow.ApproveEntry(sequence)
		uow.Audit(audit(sequence, "approve", nil))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, sequence)
}

// Reverse appends the mirror of a posted or approved manual entry and returns its sequence.
func (s *Service) Reverse(ctx context.Context, sequence int64, date time.Time, reason string) (int64, error) {
	if date.IsZero() {
		date = time.Now().UTC()
	}

	var reversal *posting.Reversal
	err := s.engine.Run(ctx, "ledger.reverse", []string{entryKey(sequence)}, func(ctx context.Context, uow *posting.UnitOfWork) error {
		if err := s.ensureManual(ctx, sequence, ledger.StatusReversed); err != nil {
			return err
		}
		reversal = uow.ReverseEntry(sequence, date, reason)
		uow.Save(func(ctx context.Context) error {
			uow.Audit(audit(sequence, "reverse", map[string]any{
				"reversedBy": reversal.Sequence,
				"reason":     reason,
			}))
			uow.Emit(posting.Event{
				AggregateType: "ledger_entry",
				EventType:     EventEntryReversed,
				Payload: map[string]any{
					"sequence":   sequence,
					"reversedBy": reversal.Sequence,
					"reason":     reason,
				},
			})
			return nil
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reversal.Sequence, nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, sequence int64) (*ledger.Entry, error) {
	return s.engine.Ledger().Get(ctx, sequence)
}

// List returns entries in sequence order.
func (s *Service) List(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Entry, error) {
	return s.engine.Ledger().List(ctx, filter)
}
