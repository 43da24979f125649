package ledger

import (
	"context"
	"fmt"
	"time"

	"ledgercore/internal/core/apperror"
	appctx "ledgercore/internal/core/context"
	"ledgercore/pkg/logger"
)

// DefaultSequenceBase is the first sequence handed out by an empty ledger.
const DefaultSequenceBase int64 = 1000

// Store is the common sink for every financial effect.
//
// Store methods must run inside a transaction whose caller holds the
// ledger sequence lock (see posting.Engine); Store itself does no locking.
type Store struct {
	repo     Repository
	accounts AccountLookup
	base     int64
}

// NewStore creates a ledger store. A non-positive base selects DefaultSequenceBase.
func NewStore(repo Repository, accounts AccountLookup, base int64) *Store {
	if base <= 0 {
		base = DefaultSequenceBase
	}
	return &Store{repo: repo, accounts: accounts, base: base}
}

// Validate checks the balance invariant on an entry without storing it.
func Validate(e *Entry) error {
	if len(e.Lines) == 0 {
		return apperror.NewValidation("ledger entry requires at least one line").
			WithDetail("field", "lines")
	}
	if e.Date.IsZero() {
		return apperror.NewValidation("ledger entry date is required").
			WithDetail("field", "date")
	}

	for i, l := range e.Lines {
		if l.AccountCode == "" {
			return apperror.NewValidation("account code is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return apperror.NewUnbalancedEntry(fmt.Sprintf("line %d has a negative amount", i+1),
				l.Debit.String(), l.Credit.String())
		}
		if !l.Debit.IsZero() && !l.Credit.IsZero() {
			return apperror.NewUnbalancedEntry(fmt.Sprintf("line %d carries both debit and credit", i+1),
				l.Debit.String(), l.Credit.String())
		}
	}

	debit, credit := e.LineTotals()
	if !debit.Equal(e.TotalDebit) || !credit.Equal(e.TotalCredit) {
		return apperror.NewUnbalancedEntry("declared totals differ from line sums",
			e.TotalDebit.String(), e.TotalCredit.String()).
			WithDetail("line_debit", debit.String()).
			WithDetail("line_credit", credit.String())
	}
	if !e.TotalDebit.Equal(e.TotalCredit) {
		return apperror.NewUnbalancedEntry("total debit differs from total credit",
			e.TotalDebit.String(), e.TotalCredit.String())
	}
	return nil
}

// validatePostable checks the extra conditions for a posted entry.
func validatePostable(e *Entry) error {
	if len(e.Lines) < 2 {
		return apperror.NewUnbalancedEntry("posted entry requires at least two lines",
			e.TotalDebit.String(), e.TotalCredit.String())
	}
	for i, l := range e.Lines {
		if l.IsPlaceholder() {
			return apperror.NewUnbalancedEntry(fmt.Sprintf("line %d is a zero placeholder", i+1),
				e.TotalDebit.String(), e.TotalCredit.String())
		}
	}
	return nil
}

// Append validates e, assigns the next sequence and stores it.
// e.Sequence, e.CreatedAt, e.CreatedBy and account names are filled in place.
func (s *Store) Append(ctx context.Context, e *Entry) (int64, error) {
	if e.Status == "" {
		e.Status = StatusDraft
	}
	switch e.Status {
	case StatusDraft:
	case StatusPosted:
		if err := validatePostable(e); err != nil {
			return 0, err
		}
	default:
		return 0, apperror.NewInvalidLedgerState(0, "new", string(e.Status))
	}
	if err := Validate(e); err != nil {
		return 0, err
	}

	if err := s.resolveAccountNames(ctx, e); err != nil {
		return 0, err
	}

	last, err := s.repo.MaxSequence(ctx)
	if err != nil {
		return 0, fmt.Errorf("read max sequence: %w", err)
	}

	e.Sequence = max(last+1, s.base)
	e.CreatedAt = time.Now().UTC()
	e.CreatedBy = appctx.GetActorID(ctx)

	if err := s.repo.Insert(ctx, e); err != nil {
		return 0, fmt.Errorf("insert ledger entry %d: %w", e.Sequence, err)
	}

	logger.Debug(ctx, "ledger entry appended",
		"sequence", e.Sequence,
		"source_module", e.SourceModule,
		"total", e.TotalDebit.String(),
	)
	return e.Sequence, nil
}

func (s *Store) resolveAccountNames(ctx context.Context, e *Entry) error {
	if s.accounts == nil {
		return nil
	}
	for i := range e.Lines {
		if e.Lines[i].AccountName != "" {
			continue
		}
		name, err := s.accounts.AccountName(ctx, e.Lines[i].AccountCode)
		if err != nil {
			return fmt.Errorf("resolve account %s: %w", e.Lines[i].AccountCode, err)
		}
		e.Lines[i].AccountName = name
	}
	return nil
}

// Post moves a draft entry to posted.
func (s *Store) Post(ctx context.Context, sequence int64) error {
	e, err := s.repo.Get(ctx, sequence)
	if err != nil {
		return err
	}
	if e.Status != StatusDraft {
		return apperror.NewInvalidLedgerState(sequence, string(e.Status), string(StatusPosted))
	}
	if err := validatePostable(e); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, sequence, StatusDraft, StatusPosted, nil)
}

// Approve moves a posted entry to approved.
func (s *Store) Approve(ctx context.Context, sequence int64) error {
	e, err := s.repo.Get(ctx, sequence)
	if err != nil {
		return err
	}
	if e.Status != StatusPosted {
		return apperror.NewInvalidLedgerState(sequence, string(e.Status), string(StatusApproved))
	}
	return s.repo.UpdateStatus(ctx, sequence, StatusPosted, StatusApproved, nil)
}

// Reverse appends the mirror of a posted or approved entry and marks the
// original reversed. It returns the mirror's sequence.
func (s *Store) Reverse(ctx context.Context, sequence int64, date time.Time, reason string) (int64, error) {
	original, err := s.repo.Get(ctx, sequence)
	if err != nil {
		return 0, err
	}
	if !original.IsReversible() {
		return 0, apperror.NewInvalidLedgerState(sequence, string(original.Status), string(StatusReversed))
	}

	mirror := original.Mirror(date, reason)
	mirrorSeq, err := s.Append(ctx, mirror)
	if err != nil {
		return 0, fmt.Errorf("append reversal of %d: %w", sequence, err)
	}

	if err := s.repo.UpdateStatus(ctx, sequence, original.Status, StatusReversed, &mirrorSeq); err != nil {
		return 0, fmt.Errorf("mark %d reversed: %w", sequence, err)
	}

	logger.Info(ctx, "ledger entry reversed", "sequence", sequence, "reversal", mirrorSeq)
	return mirrorSeq, nil
}

// Get returns one entry.
func (s *Store) Get(ctx context.Context, sequence int64) (*Entry, error) {
	return s.repo.Get(ctx, sequence)
}

// List returns entries matching filter in sequence order.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}
