// Package ledger provides the double-entry ledger: balanced entries with
// monotonic, never-reused sequence numbers and append-only reversal.
package ledger

import (
	"fmt"
	"time"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

// Status is the lifecycle state of a ledger entry.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPosted   Status = "posted"
	StatusApproved Status = "approved"
	StatusReversed Status = "reversed"
)

// Line is one debit-or-credit row. Exactly one side is non-zero,
// except for zero/zero placeholder lines on draft entries.
type Line struct {
	AccountCode  string      `db:"account_code" json:"accountCode"`
	AccountName  string      `db:"account_name" json:"accountName,omitempty"`
	SubLedgerRef string      `db:"sub_ledger_ref" json:"subLedgerRef,omitempty"`
	Description  string      `db:"description" json:"description,omitempty"`
	Debit        types.Money `db:"debit" json:"debit"`
	Credit       types.Money `db:"credit" json:"credit"`
}

// IsPlaceholder reports whether the line carries no amount.
func (l Line) IsPlaceholder() bool {
	return l.Debit.IsZero() && l.Credit.IsZero()
}

// Entry is one balanced double-entry record.
// Once stored only Status and ReversedBy ever change.
type Entry struct {
	Sequence       int64                 `db:"sequence" json:"sequence"`
	DocumentNumber string                `db:"document_number" json:"documentNumber,omitempty"`
	Date           time.Time             `db:"date" json:"date"`
	Description    string                `db:"description" json:"description"`
	Status         Status                `db:"status" json:"status"`
	Lines          entity.JSONList[Line] `db:"lines" json:"lines"`

	TotalDebit  types.Money `db:"total_debit" json:"totalDebit"`
	TotalCredit types.Money `db:"total_credit" json:"totalCredit"`

	// SourceModule tags the originating module (settlement, inventory, manual)
	SourceModule     string `db:"source_module" json:"sourceModule"`
	SourceDocumentID *id.ID `db:"source_document_id" json:"sourceDocumentId,omitempty"`

	ReversalOf *int64 `db:"reversal_of" json:"reversalOf,omitempty"`
	ReversedBy *int64 `db:"reversed_by" json:"reversedBy,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
}

// NewEntry creates an empty posted entry for a module-generated record.
func NewEntry(date time.Time, description, sourceModule string) *Entry {
	return &Entry{
		Date:         date,
		Description:  description,
		Status:       StatusPosted,
		SourceModule: sourceModule,
		TotalDebit:   types.Zero(),
		TotalCredit:  types.Zero(),
	}
}

// Debit appends a debit line and updates the declared total.
func (e *Entry) Debit(accountCode string, amount types.Money, description string) *Entry {
	e.Lines = append(e.Lines, Line{
		AccountCode: accountCode,
		Description: description,
		Debit:       amount,
		Credit:      types.Zero(),
	})
	e.TotalDebit = e.TotalDebit.Add(amount)
	return e
}

// Credit appends a credit line and updates the declared total.
func (e *Entry) Credit(accountCode string, amount types.Money, description string) *Entry {
	e.Lines = append(e.Lines, Line{
		AccountCode: accountCode,
		Description: description,
		Debit:       types.Zero(),
		Credit:      amount,
	})
	e.TotalCredit = e.TotalCredit.Add(amount)
	return e
}

// Signed appends a debit line for a positive amount and a credit line for a negative one.
func (e *Entry) Signed(accountCode string, amount types.Money, description string) *Entry {
	if amount.IsNegative() {
		return e.Credit(accountCode, amount.Neg(), description)
	}
	return e.Debit(accountCode, amount, description)
}

// LineTotals sums the lines, independent of the declared totals.
func (e *Entry) LineTotals() (debit, credit types.Money) {
	debit, credit = types.Zero(), types.Zero()
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// IsReversible reports whether a mirror entry may be generated.
func (e *Entry) IsReversible() bool {
	return e.Status == StatusPosted || e.Status == StatusApproved
}

// Mirror returns a new entry with every debit and credit swapped,
// referencing e as the reversed original.
func (e *Entry) Mirror(date time.Time, reason string) *Entry {
	description := fmt.Sprintf("Reversal of #%d", e.Sequence)
	if reason != "" {
		description += ": " + reason
	}

	seq := e.Sequence
	m := &Entry{
		DocumentNumber:   e.DocumentNumber,
		Date:             date,
		Description:      description,
		Status:           StatusPosted,
		Lines:            make(entity.JSONList[Line], len(e.Lines)),
		TotalDebit:       e.TotalCredit,
		TotalCredit:      e.TotalDebit,
		SourceModule:     e.SourceModule,
		SourceDocumentID: e.SourceDocumentID,
		ReversalOf:       &seq,
	}
	for i, l := range e.Lines {
		l.Debit, l.Credit = l.Credit, l.Debit
		m.Lines[i] = l
	}
	return m
}
