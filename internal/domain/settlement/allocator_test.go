package settlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/documents/invoice"
	"ledgercore/internal/domain/documents/payment"
	"ledgercore/internal/domain/journal"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/domain/posting"
	"ledgercore/internal/domain/registers/stock"
	"ledgercore/internal/domain/settlement"
	"ledgercore/internal/infrastructure/storage/memory"
)

type fixture struct {
	backend   *memory.Backend
	engine    *posting.Engine
	allocator *settlement.Allocator
	customer  id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := memory.New()
	engine := posting.NewEngine(posting.Config{
		TxManager: b.TxManager,
		Stock:     stock.NewService(b.Items, b.Movements),
		Ledger:    ledger.NewStore(b.Ledger, nil, 0),
		Outbox:    b.Outbox,
		Audit:     b.Audit,
	})
	return &fixture{
		backend:   b,
		engine:    engine,
		allocator: settlement.NewAllocator(engine, b.Invoices, b.Payments, b.Numerator, settlement.DefaultConfig()),
		customer:  id.New(),
	}
}

func (f *fixture) invoice(t *testing.T, total string) *invoice.Invoice {
	t.Helper()
	inv := invoice.NewInvoice(invoice.KindSales, f.customer)
	inv.AddLine("services", types.NewQuantity(1), types.MustMoney(total))
	require.NoError(t, f.allocator.CreateInvoice(context.Background(), inv))
	_, err := f.allocator.IssueInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	return inv
}

func (f *fixture) receipt(amount string, allocs ...payment.Allocation) *payment.Payment {
	p := payment.NewPayment(payment.KindReceipt, f.customer, types.MustMoney(amount))
	p.CashAccount = "1010"
	for _, a := range allocs {
		p.Allocate(a.InvoiceID, a.Amount)
	}
	return p
}

func alloc(inv *invoice.Invoice, amount string) payment.Allocation {
	return payment.Allocation{InvoiceID: inv.ID, Amount: types.MustMoney(amount)}
}

func (f *fixture) reload(t *testing.T, inv *invoice.Invoice) *invoice.Invoice {
	t.Helper()
	got, err := f.allocator.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	return got
}

func TestApplyPayment_PartialThenFull(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "23980000")

	require.NoError(t, f.allocator.ApplyPayment(ctx, f.receipt("22000000", alloc(inv, "22000000"))))
	got := f.reload(t, inv)
	assert.Equal(t, invoice.StatusPartiallyPaid, got.Status)
	assert.True(t, got.Remaining().Equal(types.MustMoney("1980000")), got.Remaining().String())

	require.NoError(t, f.allocator.ApplyPayment(ctx, f.receipt("1980000", alloc(inv, "1980000"))))
	got = f.reload(t, inv)
	assert.Equal(t, invoice.StatusPaid, got.Status)
	assert.True(t, got.Remaining().IsZero())
}

func TestApplyPayment_WritesBalancedEntryAndNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "100")

	p := f.receipt("100", alloc(inv, "100"))
	require.NoError(t, f.allocator.ApplyPayment(ctx, p))
	assert.Regexp(t, `^RCP-\d{4}-00001$`, p.Number)
	require.NotNil(t, p.LedgerSequence)

	e, err := f.backend.Ledger.Get(ctx, *p.LedgerSequence)
	require.NoError(t, err)
	assert.Equal(t, settlement.SourceModule, e.SourceModule)
	assert.Equal(t, "1010", e.Lines[0].AccountCode)
	assert.Equal(t, "1200", e.Lines[1].AccountCode)
	assert.True(t, e.TotalDebit.Equal(e.TotalCredit))
}

func TestApplyPayment_WithinToleranceIsPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "100.00")

	require.NoError(t, f.allocator.ApplyPayment(ctx, f.receipt("99.995", alloc(inv, "99.995"))))
	assert.Equal(t, invoice.StatusPaid, f.reload(t, inv).Status)
}

func TestApplyPayment_UnknownInvoiceAppliesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "100")

	p := f.receipt("150", alloc(inv, "50"), payment.Allocation{InvoiceID: id.New(), Amount: types.MustMoney("100")})
	err := f.allocator.ApplyPayment(ctx, p)
	assert.True(t, apperror.HasCode(err, apperror.CodeAllocationTargetNotFound), "got %v", err)

	got := f.reload(t, inv)
	assert.True(t, got.PaidAmount.IsZero())
	assert.Equal(t, invoice.StatusUnpaid, got.Status)

	_, err = f.allocator.GetPayment(ctx, p.ID)
	assert.True(t, apperror.IsNotFound(err))
	last, err := f.backend.Ledger.MaxSequence(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestApplyPayment_OverAllocation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "100")

	// Two allocations to the same invoice are aggregated before the check.
	p := f.receipt("120", alloc(inv, "60"), alloc(inv, "60"))
	err := f.allocator.ApplyPayment(ctx, p)
	assert.True(t, apperror.HasCode(err, apperror.CodeOverAllocation), "got %v", err)
	assert.True(t, f.reload(t, inv).PaidAmount.IsZero())
}

func TestApplyPayment_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "100")

	err := f.allocator.ApplyPayment(ctx, f.receipt("10", alloc(inv, "20")))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	err = f.allocator.ApplyPayment(ctx, f.receipt("10", alloc(inv, "-1")))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	disbursement := payment.NewPayment(payment.KindDisbursement, f.customer, types.MustMoney("10"))
	disbursement.Allocate(inv.ID, types.MustMoney("10"))
	err = f.allocator.ApplyPayment(ctx, disbursement)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "a disbursement cannot settle a sales invoice")
}

func TestApplyPayment_ActivePaymentTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "100")

	p := f.receipt("10", alloc(inv, "10"))
	require.NoError(t, f.allocator.ApplyPayment(ctx, p))
	err := f.allocator.ApplyPayment(ctx, p)
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentPosted))
	assert.True(t, f.reload(t, inv).PaidAmount.Equal(types.MustMoney("10")))
}

func TestDeletePayment_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.invoice(t, "1000")
	b := f.invoice(t, "500")

	require.NoError(t, f.allocator.ApplyPayment(ctx, f.receipt("300", alloc(a, "300"))))
	p := f.receipt("700", alloc(a, "200"), alloc(b, "500"))
	require.NoError(t, f.allocator.ApplyPayment(ctx, p))

	beforeA, beforeB := f.reload(t, a), f.reload(t, b)
	assert.Equal(t, invoice.StatusPartiallyPaid, beforeA.Status)
	assert.Equal(t, invoice.StatusPaid, beforeB.Status)

	require.NoError(t, f.allocator.DeletePayment(ctx, p.ID))
	afterA, afterB := f.reload(t, a), f.reload(t, b)
	assert.True(t, afterA.PaidAmount.Equal(types.MustMoney("300")))
	assert.True(t, afterB.PaidAmount.IsZero())
	assert.Equal(t, invoice.StatusUnpaid, afterB.Status, "falls back to the issued status")

	deleted, err := f.allocator.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusDeleted, deleted.Status)

	original, err := f.backend.Ledger.Get(ctx, *deleted.LedgerSequence)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, original.Status)

	require.NoError(t, f.allocator.ApplyPayment(ctx, p))
	againA, againB := f.reload(t, a), f.reload(t, b)
	assert.True(t, againA.PaidAmount.Equal(beforeA.PaidAmount))
	assert.Equal(t, beforeA.Status, againA.Status)
	assert.True(t, againB.PaidAmount.Equal(beforeB.PaidAmount))
	assert.Equal(t, beforeB.Status, againB.Status)

	err = f.allocator.DeletePayment(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestDeletePayment_Twice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "100")

	p := f.receipt("40", alloc(inv, "40"))
	require.NoError(t, f.allocator.ApplyPayment(ctx, p))
	require.NoError(t, f.allocator.DeletePayment(ctx, p.ID))

	err := f.allocator.DeletePayment(ctx, p.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
	assert.True(t, f.reload(t, inv).PaidAmount.IsZero())
}

func TestDeletePayment_AfterRejectedManualReversal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "100")

	p := f.receipt("100", alloc(inv, "100"))
	require.NoError(t, f.allocator.ApplyPayment(ctx, p))

	_, err := journal.NewService(f.engine).Reverse(ctx, *p.LedgerSequence, time.Now(), "by hand")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLedgerState))

	require.NoError(t, f.allocator.DeletePayment(ctx, p.ID))
	got := f.reload(t, inv)
	assert.True(t, got.PaidAmount.IsZero())
	assert.Equal(t, invoice.StatusUnpaid, got.Status)

	e, err := f.backend.Ledger.Get(ctx, *p.LedgerSequence)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, e.Status)
}

func TestApplyPayment_PartyMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "100")

	p := payment.NewPayment(payment.KindReceipt, id.New(), types.MustMoney("50"))
	p.CashAccount = "1010"
	p.Allocate(inv.ID, types.MustMoney("50"))

	err := f.allocator.ApplyPayment(ctx, p)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "%v", err)
	assert.True(t, f.reload(t, inv).PaidAmount.IsZero())
}

func TestApplyPayment_TinyAmountIsPartiallyPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "100")

	require.NoError(t, f.allocator.ApplyPayment(ctx, f.receipt("0.005", alloc(inv, "0.005"))))
	assert.Equal(t, invoice.StatusPartiallyPaid, f.reload(t, inv).Status)
}

func TestDraftInvoiceFallsBackToDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := invoice.NewInvoice(invoice.KindSales, f.customer)
	inv.AddLine("goods", types.NewQuantity(2), types.MustMoney("50"))
	require.NoError(t, f.allocator.CreateInvoice(ctx, inv))

	p := f.receipt("10", alloc(inv, "10"))
	require.NoError(t, f.allocator.ApplyPayment(ctx, p))
	assert.Equal(t, invoice.StatusPartiallyPaid, f.reload(t, inv).Status)

	require.NoError(t, f.allocator.DeletePayment(ctx, p.ID))
	assert.Equal(t, invoice.StatusDraft, f.reload(t, inv).Status)
}

func TestPaidAmountEqualsActiveAllocations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := f.invoice(t, "1000")

	var payments []*payment.Payment
	for _, amount := range []string{"100", "250", "75.5", "300"} {
		p := f.receipt(amount, alloc(inv, amount))
		require.NoError(t, f.allocator.ApplyPayment(ctx, p))
		payments = append(payments, p)
	}
	require.NoError(t, f.allocator.DeletePayment(ctx, payments[1].ID))
	require.NoError(t, f.allocator.DeletePayment(ctx, payments[3].ID))

	active := types.Zero()
	for _, p := range payments {
		got, err := f.allocator.GetPayment(ctx, p.ID)
		require.NoError(t, err)
		if got.IsActive() {
			active = active.Add(got.AllocatedTotal())
		}
	}
	assert.True(t, f.reload(t, inv).PaidAmount.Equal(active))
	assert.True(t, active.Equal(types.MustMoney("175.5")))
}
