// Package payment provides customer receipts and supplier disbursements
// with their invoice allocations.
package payment

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

// Kind is the cash direction.
type Kind string

const (
	KindReceipt      Kind = "receipt"
	KindDisbursement Kind = "disbursement"
)

// Status of a payment. Deleted payments keep their row (soft delete).
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// DocumentType is the recorder type for payments.
const DocumentType = "Payment"

// Allocation applies part of a payment to one invoice.
type Allocation struct {
	InvoiceID id.ID       `json:"invoiceId"`
	Amount    types.Money `json:"amount"`
}

// Payment is a receipt or disbursement.
type Payment struct {
	entity.Document

	Kind    Kind  `db:"kind" json:"kind"`
	PartyID id.ID `db:"party_id" json:"partyId"`

	Amount types.Money `db:"amount" json:"amount"`

	// CashAccount is the bank/cash ledger account. Empty means no ledger effect.
	CashAccount string `db:"cash_account" json:"cashAccount,omitempty"`

	Allocations entity.JSONList[Allocation] `db:"allocations" json:"allocations"`

	Status Status `db:"status" json:"status"`
}

// NewPayment creates an active payment.
func NewPayment(kind Kind, partyID id.ID, amount types.Money) *Payment {
	return &Payment{
		Document: entity.NewDocument(),
		Kind:     kind,
		PartyID:  partyID,
		Amount:   amount,
		Status:   StatusActive,
	}
}

// Allocate appends an allocation.
func (p *Payment) Allocate(invoiceID id.ID, amount types.Money) *Payment {
	p.Allocations = append(p.Allocations, Allocation{InvoiceID: invoiceID, Amount: amount})
	return p
}

// AllocatedTotal sums every allocation.
func (p *Payment) AllocatedTotal() types.Money {
	total := types.Zero()
	for _, a := range p.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// Aggregated merges allocations to the same invoice, keeping first-seen order.
func (p *Payment) Aggregated() []Allocation {
	index := make(map[id.ID]int, len(p.Allocations))
	out := make([]Allocation, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		if i, ok := index[a.InvoiceID]; ok {
			out[i].Amount = out[i].Amount.Add(a.Amount)
			continue
		}
		index[a.InvoiceID] = len(out)
		out = append(out, a)
	}
	return out
}

// InvoiceIDs returns the distinct allocated invoice ids.
func (p *Payment) InvoiceIDs() []id.ID {
	ids := make([]id.ID, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		ids = append(ids, a.InvoiceID)
	}
	return id.Unique(ids...)
}

// IsActive reports whether the allocations currently count against invoices.
func (p *Payment) IsActive() bool {
	return p.Status == StatusActive
}

// Validate implements entity.Validatable.
func (p *Payment) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}
	switch p.Kind {
	case KindReceipt, KindDisbursement:
	default:
		return apperror.NewValidation("unknown payment kind").
			WithDetail("field", "kind").
			WithDetail("value", string(p.Kind))
	}
	if !p.Amount.IsPositive() {
		return apperror.NewValidation("payment amount must be positive").
			WithDetail("field", "amount")
	}
	for i, a := range p.Allocations {
		if id.IsNil(a.InvoiceID) {
			return apperror.NewValidation("allocation invoice is required").
				WithDetail("field", "allocations").
				WithDetail("lineNo", i+1)
		}
		if !a.Amount.IsPositive() {
			return apperror.NewValidation("allocation amount must be positive").
				WithDetail("field", "allocations").
				WithDetail("lineNo", i+1)
		}
	}
	if p.AllocatedTotal().GreaterThan(p.Amount) {
		return apperror.NewValidation("allocations exceed payment amount").
			WithDetail("field", "allocations").
			WithDetail("allocated", p.AllocatedTotal().String()).
			WithDetail("amount", p.Amount.String())
	}
	return nil
}
