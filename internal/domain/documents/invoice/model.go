// Package invoice provides sales and purchase invoices.
// Paid amount and status are owned by the settlement allocator.
package invoice

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

// Kind distinguishes receivables from payables.
type Kind string

const (
	KindSales    Kind = "sales"
	KindPurchase Kind = "purchase"
)

// Status is derived from paid vs total.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusUnpaid        Status = "unpaid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
)

// DocumentType is the recorder type for invoices.
const DocumentType = "Invoice"

// Line is read-only after issuance.
type Line struct {
	Description string         `json:"description"`
	ItemID      *id.ID         `json:"itemId,omitempty"`
	Quantity    types.Quantity `json:"quantity"`
	UnitPrice   types.Money    `json:"unitPrice"`
	Amount      types.Money    `json:"amount"`
}

// Invoice is a sales or purchase invoice.
type Invoice struct {
	entity.Document

	Kind    Kind  `db:"kind" json:"kind"`
	PartyID id.ID `db:"party_id" json:"partyId"`

	Total      types.Money `db:"total" json:"total"`
	PaidAmount types.Money `db:"paid_amount" json:"paidAmount"`

	Status Status `db:"status" json:"status"`

	// BaseStatus is the pre-payment status (draft or unpaid) restored
	// when the paid amount returns to zero.
	BaseStatus Status `db:"base_status" json:"baseStatus"`

	Lines entity.JSONList[Line] `db:"lines" json:"lines"`
}

// NewInvoice creates a draft invoice.
func NewInvoice(kind Kind, partyID id.ID) *Invoice {
	return &Invoice{
		Document:   entity.NewDocument(),
		Kind:       kind,
		PartyID:    partyID,
		Total:      types.Zero(),
		PaidAmount: types.Zero(),
		Status:     StatusDraft,
		BaseStatus: StatusDraft,
	}
}

// AddLine appends a line and adds its amount to the total.
func (inv *Invoice) AddLine(description string, qty types.Quantity, unitPrice types.Money) {
	amount := qty.Value(unitPrice)
	inv.Lines = append(inv.Lines, Line{
		Description: description,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		Amount:      amount,
	})
	inv.Total = inv.Total.Add(amount)
}

// Remaining returns total minus paid.
func (inv *Invoice) Remaining() types.Money {
	return inv.Total.Sub(inv.PaidAmount)
}

// RecomputeStatus derives status from paid vs total. eps only widens the
// fully-paid threshold; any positive paid amount is at least partially paid.
func (inv *Invoice) RecomputeStatus(eps types.Money) {
	switch {
	case inv.PaidAmount.GreaterThanOrEqual(inv.Total.Sub(eps)) && inv.Total.IsPositive():
		inv.Status = StatusPaid
	case inv.PaidAmount.IsPositive():
		inv.Status = StatusPartiallyPaid
	default:
		inv.Status = inv.BaseStatus
	}
}

// Issue moves a draft invoice to unpaid. Issuing is idempotent.
func (inv *Invoice) Issue(eps types.Money) {
	if inv.BaseStatus == StatusUnpaid {
		return
	}
	inv.BaseStatus = StatusUnpaid
	inv.MarkPosted(nil)
	inv.RecomputeStatus(eps)
}

// Validate implements entity.Validatable.
func (inv *Invoice) Validate(ctx context.Context) error {
	if err := inv.Document.Validate(ctx); err != nil {
		return err
	}
	switch inv.Kind {
	case KindSales, KindPurchase:
	default:
		return apperror.NewValidation("unknown invoice kind").
			WithDetail("field", "kind").
			WithDetail("value", string(inv.Kind))
	}
	if id.IsNil(inv.PartyID) {
		return apperror.NewValidation("party is required").
			WithDetail("field", "partyId")
	}
	if !inv.Total.IsPositive() {
		return apperror.NewValidation("invoice total must be positive").
			WithDetail("field", "total")
	}
	if inv.PaidAmount.IsNegative() {
		return apperror.NewValidation("paid amount cannot be negative").
			WithDetail("field", "paidAmount")
	}
	return nil
}
