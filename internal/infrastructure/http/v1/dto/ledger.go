package dto

import (
	"time"

	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/ledger"
)

// LedgerLineRequest is one line of a manual entry. Exactly one side should be set.
type LedgerLineRequest struct {
	AccountCode  string       `json:"accountCode" binding:"required"`
	SubLedgerRef string       `json:"subLedgerRef"`
	Description  string       `json:"description"`
	Debit        *types.Money `json:"debit"`
	Credit       *types.Money `json:"credit"`
}

// CreateLedgerEntryRequest creates a manual ledger entry.
type CreateLedgerEntryRequest struct {
	DocumentNumber string              `json:"documentNumber"`
	Date           time.Time           `json:"date"`
	Description    string              `json:"description"`
	Draft          bool                `json:"draft"`
	Lines          []LedgerLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntry builds the entry; totals are derived from the lines.
func (r CreateLedgerEntryRequest) ToEntry() *ledger.Entry {
	e := ledger.NewEntry(dateOrNow(r.Date), r.Description, "")
	e.DocumentNumber = r.DocumentNumber
	if r.Draft {
		e.Status = ledger.StatusDraft
	}
	for _, l := range r.Lines {
		line := ledger.Line{
			AccountCode:  l.AccountCode,
			SubLedgerRef: l.SubLedgerRef,
			Description:  l.Description,
			Debit:        types.Zero(),
			Credit:       types.Zero(),
		}
		if l.Debit != nil {
			line.Debit = *l.Debit
		}
		if l.Credit != nil {
			line.Credit = *l.Credit
		}
		e.Lines = append(e.Lines, line)
		e.TotalDebit = e.TotalDebit.Add(line.Debit)
		e.TotalCredit = e.TotalCredit.Add(line.Credit)
	}
	return e
}

// ReverseLedgerEntryRequest reverses a posted or approved entry.
type ReverseLedgerEntryRequest struct {
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}

// SequenceResponse returns the sequence assigned by an append or reversal.
type SequenceResponse struct {
	Sequence int64 `json:"sequence"`
}

// LedgerListQuery filters ledger entries.
type LedgerListQuery struct {
	SourceModule     string     `form:"sourceModule"`
	SourceDocumentID string     `form:"sourceDocumentId"`
	Status           string     `form:"status" binding:"omitempty,oneof=draft posted approved reversed"`
	DateFrom         *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo           *time.Time `form:"dateTo" time_format:"2006-01-02"`
	Limit            int        `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset           int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts to the ledger filter. An unparsable document id is an error.
func (q LedgerListQuery) ToFilter() (ledger.ListFilter, error) {
	f := ledger.ListFilter{
		SourceModule: q.SourceModule,
		DateFrom:     q.DateFrom,
		DateTo:       q.DateTo,
		Limit:        q.Limit,
		Offset:       q.Offset,
	}
	if q.Status != "" {
		s := ledger.Status(q.Status)
		f.Status = &s
	}
	if q.SourceDocumentID != "" {
		docID, err := id.Parse(q.SourceDocumentID)
		if err != nil {
			return f, err
		}
		f.SourceDocumentID = &docID
	}
	return f, nil
}
