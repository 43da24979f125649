package entity

import (
	"context"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
)

// Document is the base type for business events that post to registers
// and to the ledger: goods receipts, shipments, stock counts, payments.
type Document struct {
	BaseDocument

	// Number is the document number (assigned by the numerator when empty)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Posted indicates that the document's movements have been recorded
	Posted bool `db:"posted" json:"posted"`

	// PostedAt is when posting happened
	PostedAt *time.Time `db:"posted_at" json:"postedAt,omitempty"`

	// LedgerSequence references the ledger entry created on posting, if any
	LedgerSequence *int64 `db:"ledger_sequence" json:"ledgerSequence,omitempty"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document dated today.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if id.IsNil(d.ID) {
		return apperror.NewValidation("document id is required").
			WithDetail("field", "id")
	}
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// CanPost rejects documents that were already posted.
func (d *Document) CanPost(documentType string) error {
	if d.Posted {
		return apperror.NewDocumentPosted(documentType, d.ID.String())
	}
	return nil
}

// MarkPosted sets the posted flag and links the ledger entry, if any.
func (d *Document) MarkPosted(ledgerSequence *int64) {
	now := time.Now().UTC()
	d.Posted = true
	d.PostedAt = &now
	d.LedgerSequence = ledgerSequence
	d.Touch()
}
