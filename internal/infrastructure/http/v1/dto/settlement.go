package dto

import (
	"time"

	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/documents/invoice"
	"ledgercore/internal/domain/documents/payment"
)

// InvoiceLineRequest is one invoice line.
type InvoiceLineRequest struct {
	Description string         `json:"description" binding:"required"`
	ItemID      *id.ID         `json:"itemId"`
	Quantity    types.Quantity `json:"quantity"`
	UnitPrice   types.Money    `json:"unitPrice"`
}

// CreateInvoiceRequest creates a draft invoice.
type CreateInvoiceRequest struct {
	Kind    string               `json:"kind" binding:"required,oneof=sales purchase"`
	PartyID id.ID                `json:"partyId" binding:"required"`
	Number  string               `json:"number"`
	Date    time.Time            `json:"date"`
	Comment string               `json:"comment"`
	Issue   bool                 `json:"issue"`
	Lines   []InvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity builds the invoice; the total is the sum of line amounts.
func (r CreateInvoiceRequest) ToEntity() *invoice.Invoice {
	inv := invoice.NewInvoice(invoice.Kind(r.Kind), r.PartyID)
	inv.Number = r.Number
	inv.Date = dateOrNow(r.Date)
	inv.Comment = r.Comment
	for _, l := range r.Lines {
		inv.AddLine(l.Description, l.Quantity, l.UnitPrice)
		inv.Lines[len(inv.Lines)-1].ItemID = l.ItemID
	}
	return inv
}

// AllocationRequest applies part of a payment to one invoice.
type AllocationRequest struct {
	InvoiceID id.ID       `json:"invoiceId" binding:"required"`
	Amount    types.Money `json:"amount"`
}

// ApplyPaymentRequest records a receipt or disbursement and its allocations.
// Supplying ID re-applies a previously deleted payment.
type ApplyPaymentRequest struct {
	ID          *id.ID              `json:"id"`
	Kind        string              `json:"kind" binding:"required,oneof=receipt disbursement"`
	PartyID     id.ID               `json:"partyId" binding:"required"`
	Number      string              `json:"number"`
	Date        time.Time           `json:"date"`
	Amount      types.Money         `json:"amount"`
	CashAccount string              `json:"cashAccount"`
	Comment     string              `json:"comment"`
	Allocations []AllocationRequest `json:"allocations" binding:"dive"`
}

// ToEntity builds the payment.
func (r ApplyPaymentRequest) ToEntity() *payment.Payment {
	p := payment.NewPayment(payment.Kind(r.Kind), r.PartyID, r.Amount)
	if r.ID != nil {
		p.ID = *r.ID
	}
	p.Number = r.Number
	p.Date = dateOrNow(r.Date)
	p.CashAccount = r.CashAccount
	p.Comment = r.Comment
	for _, a := range r.Allocations {
		p.Allocations = append(p.Allocations, payment.Allocation{
			InvoiceID: a.InvoiceID,
			Amount:    a.Amount,
		})
	}
	return p
}
