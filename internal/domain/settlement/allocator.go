// Package settlement applies receipts and disbursements against open
// invoices and reverses them exactly when a payment is deleted.
package settlement

import (
	"context"
	"fmt"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/lock"
	"ledgercore/internal/core/numerator"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/documents"
	"ledgercore/internal/domain/documents/invoice"
	"ledgercore/internal/domain/documents/payment"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/domain/posting"
	"ledgercore/pkg/logger"
)

// SourceModule tags ledger entries written by the allocator.
const SourceModule = "settlement"

// DefaultTolerance is the paid-vs-total comparison epsilon.
var DefaultTolerance = types.MustMoney("0.01")

// Config holds allocator settings.
type Config struct {
	// Tolerance absorbs rounding when comparing paid and total amounts.
	Tolerance types.Money

	// ReceivableAccount is credited by receipts.
	ReceivableAccount string

	// PayableAccount is debited by disbursements.
	PayableAccount string

	// Number series per document type.
	ReceiptNumbers      numerator.Config
	DisbursementNumbers numerator.Config
	SalesNumbers        numerator.Config
	PurchaseNumbers     numerator.Config
}

// DefaultConfig returns the standard chart codes and number series.
func DefaultConfig() Config {
	return Config{
		Tolerance:           DefaultTolerance,
		ReceivableAccount:   "1200",
		PayableAccount:      "2100",
		ReceiptNumbers:      numerator.DefaultConfig("RCP"),
		DisbursementNumbers: numerator.DefaultConfig("PAY"),
		SalesNumbers:        numerator.DefaultConfig("INV"),
		PurchaseNumbers:     numerator.DefaultConfig("BILL"),
	}
}

// Allocator owns invoice paid amounts and statuses.
type Allocator struct {
	engine   *posting.Engine
	invoices invoice.Repository
	payments payment.Repository
	numbers  numerator.Generator
	cfg      Config
}

// NewAllocator creates a settlement allocator.
func NewAllocator(engine *posting.Engine, invoices invoice.Repository, payments payment.Repository, numbers numerator.Generator, cfg Config) *Allocator {
	if cfg.Tolerance.IsZero() {
		cfg.Tolerance = DefaultTolerance
	}
	return &Allocator{
		engine:   engine,
		invoices: invoices,
		payments: payments,
		numbers:  numbers,
		cfg:      cfg,
	}
}

// CreateInvoice stores a new draft invoice and numbers it.
func (a *Allocator) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	if err := inv.Validate(ctx); err != nil {
		return err
	}
	series := a.cfg.SalesNumbers
	if inv.Kind == invoice.KindPurchase {
		series = a.cfg.PurchaseNumbers
	}

	return a.engine.Run(ctx, "invoice.create", []string{lock.InvoiceKey(inv.ID.String())},
		func(ctx context.Context, uow *posting.UnitOfWork) error {
			if err := numerator.Assign(ctx, a.numbers, series, &inv.Number, inv.Date); err != nil {
				return err
			}
			uow.Save(func(ctx context.Context) error {
				return a.invoices.Create(ctx, inv)
			})
			uow.Emit(invoiceEvent(inv, "invoice.created"))
			return nil
		})
}

// IssueInvoice moves a draft invoice to unpaid. Its status then falls back
// to unpaid, not draft, when payments are removed.
func (a *Allocator) IssueInvoice(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	var out *invoice.Invoice
	err := a.engine.Run(ctx, "invoice.issue", []string{lock.InvoiceKey(invoiceID.String())},
		func(ctx context.Context, uow *posting.UnitOfWork) error {
			inv, err := a.invoices.GetByID(ctx, invoiceID)
			if err != nil {
				return err
			}
			inv.Issue(a.cfg.Tolerance)
			uow.Save(func(ctx context.Context) error {
				return a.invoices.Update(ctx, inv)
			})
			uow.Emit(invoiceEvent(inv, "invoice.issued"))
			out = inv
			return nil
		})
	return out, err
}

// ApplyPayment applies every allocation of p to its invoice.
//
// Unknown invoices fail with ALLOCATION_TARGET_NOT_FOUND and allocations
// above an invoice's remaining balance fail with OVER_ALLOCATION; in both
// cases nothing is applied. Re-applying a deleted payment id reactivates it.
func (a *Allocator) ApplyPayment(ctx context.Context, p *payment.Payment) error {
	if p.Status == "" {
		p.Status = payment.StatusActive
	}
	if err := p.Validate(ctx); err != nil {
		return err
	}

	keys := []string{lock.PaymentKey(p.ID.String())}
	for _, invID := range p.InvoiceIDs() {
		keys = append(keys, lock.InvoiceKey(invID.String()))
	}

	return a.engine.Run(ctx, "payment.apply", keys, func(ctx context.Context, uow *posting.UnitOfWork) error {
		existing, err := a.payments.GetByID(ctx, p.ID)
		switch {
		case err == nil && existing.IsActive():
			return apperror.NewDocumentPosted(payment.DocumentType, p.ID.String())
		case err == nil:
			p.Version = existing.Version
			p.CreatedAt = existing.CreatedAt
			if p.Number == "" {
				p.Number = existing.Number
			}
		case apperror.IsNotFound(err):
			existing = nil
		default:
			return err
		}

		for _, alloc := range p.Aggregated() {
			inv, err := a.loadTarget(ctx, p, alloc.InvoiceID)
			if err != nil {
				return err
			}
			remaining := inv.Remaining()
			if alloc.Amount.GreaterThan(remaining.Add(a.cfg.Tolerance)) {
				return apperror.NewOverAllocation(inv.ID.String(), alloc.Amount.String(), remaining.String()).
					WithDetail("payment_id", p.ID.String())
			}
			inv.PaidAmount = inv.PaidAmount.Add(alloc.Amount)
			inv.RecomputeStatus(a.cfg.Tolerance)
			a.saveInvoice(uow, inv, alloc.Amount)
		}

		series := a.cfg.ReceiptNumbers
		if p.Kind == payment.KindDisbursement {
			series = a.cfg.DisbursementNumbers
		}
		if err := numerator.Assign(ctx, a.numbers, series, &p.Number, p.Date); err != nil {
			return err
		}

		var entry *ledger.Entry
		if p.CashAccount != "" {
			entry = uow.AppendEntry(a.paymentEntry(p))
		}

		p.Status = payment.StatusActive
		p.Undelete()
		uow.Save(func(ctx context.Context) error {
			var seq *int64
			if entry != nil {
				seq = &entry.Sequence
			}
			p.MarkPosted(seq)
			if existing == nil {
				return a.payments.Create(ctx, p)
			}
			return a.payments.Update(ctx, p)
		})
		uow.Audit(posting.AuditRecord{
			EntityType: payment.DocumentType,
			EntityID:   p.ID,
			Action:     "apply",
			Changes: map[string]any{
				"amount":      p.Amount.String(),
				"allocations": len(p.Allocations),
			},
		})
		uow.Emit(posting.Event{
			AggregateType: payment.DocumentType,
			AggregateID:   p.ID,
			EventType:     "payment.applied",
			Payload: map[string]any{
				"number":      p.Number,
				"kind":        p.Kind,
				"amount":      p.Amount.String(),
				"invoice_ids": p.InvoiceIDs(),
			},
		})
		return nil
	})
}

// DeletePayment subtracts every allocation of the payment, flooring paid
// amounts at zero, reverses its ledger entry and soft-deletes it.
func (a *Allocator) DeletePayment(ctx context.Context, paymentID id.ID) error {
	// The allocations are immutable once applied, so the lock set read here
	// stays valid inside the transaction.
	p, err := a.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	keys := []string{lock.PaymentKey(paymentID.String())}
	for _, invID := range p.InvoiceIDs() {
		keys = append(keys, lock.InvoiceKey(invID.String()))
	}

	return a.engine.Run(ctx, "payment.delete", keys, func(ctx context.Context, uow *posting.UnitOfWork) error {
		p, err := a.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if !p.IsActive() {
			return apperror.NewConflict("payment is already deleted").
				WithDetail("payment_id", paymentID.String())
		}

		for _, alloc := range p.Aggregated() {
			inv, err := a.loadTarget(ctx, p, alloc.InvoiceID)
			if err != nil {
				return err
			}
			paid := inv.PaidAmount.Sub(alloc.Amount)
			if paid.IsNegative() {
				logger.Warn(ctx, "paid amount floored at zero",
					"invoice_id", inv.ID,
					"paid", inv.PaidAmount.String(),
					"subtracted", alloc.Amount.String(),
				)
				paid = types.Zero()
			}
			inv.PaidAmount = paid
			inv.RecomputeStatus(a.cfg.Tolerance)
			a.saveInvoice(uow, inv, alloc.Amount.Neg())
		}

		if p.LedgerSequence != nil {
			uow.ReverseEntry(*p.LedgerSequence, time.Now().UTC(), "payment "+p.Number+" deleted")
		}

		p.Status = payment.StatusDeleted
		p.MarkDeleted()
		p.Posted = false
		p.Touch()
		uow.Save(func(ctx context.Context) error {
			return a.payments.Update(ctx, p)
		})
		uow.Audit(posting.AuditRecord{
			EntityType: payment.DocumentType,
			EntityID:   p.ID,
			Action:     "delete",
			Changes:    map[string]any{"amount": p.Amount.String()},
		})
		uow.Emit(posting.Event{
			AggregateType: payment.DocumentType,
			AggregateID:   p.ID,
			EventType:     "payment.deleted",
			Payload:       map[string]any{"number": p.Number, "invoice_ids": p.InvoiceIDs()},
		})
		return nil
	})
}

func (a *Allocator) loadTarget(ctx context.Context, p *payment.Payment, invoiceID id.ID) (*invoice.Invoice, error) {
	inv, err := a.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewAllocationTargetNotFound(p.ID.String(), invoiceID.String())
		}
		return nil, fmt.Errorf("load invoice %s: %w", invoiceID, err)
	}
	if want := targetKind(p.Kind); inv.Kind != want {
		return nil, apperror.NewValidation(fmt.Sprintf("a %s cannot settle a %s invoice", p.Kind, inv.Kind)).
			WithDetail("invoice_id", invoiceID.String())
	}
	if inv.PartyID != p.PartyID {
		return nil, apperror.NewValidation("payment party differs from invoice party").
			WithDetail("invoice_id", invoiceID.String()).
			WithDetail("payment_party_id", p.PartyID.String()).
			WithDetail("invoice_party_id", inv.PartyID.String())
	}
	return inv, nil
}

func (a *Allocator) saveInvoice(uow *posting.UnitOfWork, inv *invoice.Invoice, delta types.Money) {
	inv.Touch()
	uow.Save(func(ctx context.Context) error {
		return a.invoices.Update(ctx, inv)
	})
	uow.Audit(posting.AuditRecord{
		EntityType: invoice.DocumentType,
		EntityID:   inv.ID,
		Action:     "settle",
		Changes: map[string]any{
			"delta":       delta.String(),
			"paid_amount": inv.PaidAmount.String(),
			"status":      inv.Status,
		},
	})
}

func (a *Allocator) paymentEntry(p *payment.Payment) *ledger.Entry {
	docID := p.ID
	e := ledger.NewEntry(p.Date, fmt.Sprintf("%s %s", p.Kind, p.Number), SourceModule)
	e.DocumentNumber = p.Number
	e.SourceDocumentID = &docID

	ref := p.PartyID.String()
	if p.Kind == payment.KindReceipt {
		e.Debit(p.CashAccount, p.Amount, "cash received")
		e.Credit(a.cfg.ReceivableAccount, p.Amount, "customer settlement")
		e.Lines[1].SubLedgerRef = ref
	} else {
		e.Debit(a.cfg.PayableAccount, p.Amount, "supplier settlement")
		e.Credit(p.CashAccount, p.Amount, "cash paid")
		e.Lines[0].SubLedgerRef = ref
	}
	return e
}

func targetKind(k payment.Kind) invoice.Kind {
	if k == payment.KindDisbursement {
		return invoice.KindPurchase
	}
	return invoice.KindSales
}

func invoiceEvent(inv *invoice.Invoice, eventType string) posting.Event {
	return posting.Event{
		AggregateType: invoice.DocumentType,
		AggregateID:   inv.ID,
		EventType:     eventType,
		Payload: map[string]any{
			"number": inv.Number,
			"kind":   inv.Kind,
			"total":  inv.Total.String(),
			"status": inv.Status,
		},
	}
}

// --- Read side ---

// GetInvoice returns one invoice.
func (a *Allocator) GetInvoice(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return a.invoices.GetByID(ctx, invoiceID)
}

// ListInvoices returns invoices matching filter.
func (a *Allocator) ListInvoices(ctx context.Context, filter documents.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	return a.invoices.List(ctx, filter)
}

// GetPayment returns one payment, deleted ones included.
func (a *Allocator) GetPayment(ctx context.Context, paymentID id.ID) (*payment.Payment, error) {
	return a.payments.GetByID(ctx, paymentID)
}

// ListPayments returns payments matching filter.
func (a *Allocator) ListPayments(ctx context.Context, filter documents.ListFilter) (domain.ListResult[*payment.Payment], error) {
	return a.payments.List(ctx, filter)
}
