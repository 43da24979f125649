package production_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/bom"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/internal/domain/documents/production_order"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/domain/posting"
	"ledgercore/internal/domain/production"
	"ledgercore/internal/domain/registers/stock"
	"ledgercore/internal/infrastructure/storage/memory"
)

type fixture struct {
	backend     *memory.Backend
	accumulator *production.Accumulator
	product     *item.Item
	component   *item.Item
	bom         *bom.BOM
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	b := memory.New()
	engine := posting.NewEngine(posting.Config{
		TxManager: b.TxManager,
		Stock:     stock.NewService(b.Items, b.Movements),
		Ledger:    ledger.NewStore(b.Ledger, nil, 0),
	})

	component := item.NewItem("FRAME", "Frame", item.KindRawMaterial, types.MustMoney("550000"))
	product := item.NewItem("BIKE", "Bike", item.KindFinished, types.MustMoney("900000"))
	require.NoError(t, b.Items.Create(ctx, component))
	require.NoError(t, b.Items.Create(ctx, product))

	recipe := bom.NewBOM("BIKE-BOM", "Bike", product.ID).AddLine(component.ID, types.NewQuantity(1))
	require.NoError(t, b.BOMs.Create(ctx, recipe))

	return &fixture{
		backend:     b,
		accumulator: production.NewAccumulator(engine, b.ProductionOrders, b.Items, b.BOMs, b.Numerator),
		product:     product,
		component:   component,
		bom:         recipe,
	}
}

func (f *fixture) create(t *testing.T, qty int64, rates *production_order.Rates) *production_order.Order {
	t.Helper()
	order, err := f.accumulator.CreateOrder(context.Background(), production.CreateOrderRequest{
		TargetItemID: f.product.ID,
		Quantity:     types.NewQuantity(qty),
		Rates:        rates,
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrder_StandardMaterial(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, 50, nil)

	assert.True(t, order.StandardCost.Material.Equal(types.MustMoney("27500000")), order.StandardCost.Material.String())
	assert.True(t, order.StandardCost.Labor.IsZero())
	assert.True(t, order.StandardCost.Overhead.IsZero())
	assert.Equal(t, production_order.StatusCreated, order.Status)
	assert.Equal(t, f.bom.ID, order.BOMID)
	assert.Regexp(t, `^MO-`, order.Number)
}

func TestCreateOrder_WithRates(t *testing.T) {
	f := newFixture(t)
	order := f.create(t, 10, &production_order.Rates{
		LaborPerUnit:    types.MustMoney("1000"),
		OverheadPerUnit: types.MustMoney("250"),
	})

	assert.True(t, order.StandardCost.Labor.Equal(types.MustMoney("10000")))
	assert.True(t, order.StandardCost.Overhead.Equal(types.MustMoney("2500")))
	assert.True(t, order.StandardCost.Total().Equal(types.MustMoney("5512500")))
}

func TestCreateOrder_RejectsForeignBOM(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other := item.NewItem("TRIKE", "Trike", item.KindFinished, types.Zero())
	require.NoError(t, f.backend.Items.Create(ctx, other))

	bomID := f.bom.ID
	_, err := f.accumulator.CreateOrder(ctx, production.CreateOrderRequest{
		TargetItemID: other.ID,
		Quantity:     types.NewQuantity(1),
		BOMID:        &bomID,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.accumulator.CreateOrder(ctx, production.CreateOrderRequest{
		TargetItemID: other.ID,
		Quantity:     types.NewQuantity(1),
	})
	assert.True(t, apperror.IsNotFound(err), "no BOM for the item")
}

func TestLifecycle_AccumulatesActualCost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.create(t, 50, &production_order.Rates{
		LaborPerUnit:    types.MustMoney("1000"),
		OverheadPerUnit: types.MustMoney("100"),
	})

	_, err := f.accumulator.Release(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.accumulator.IssueMaterial(ctx, order.ID, types.MustMoney("20000000"))
	require.NoError(t, err)
	_, err = f.accumulator.IssueMaterial(ctx, order.ID, types.MustMoney("8000000"))
	require.NoError(t, err)

	confirmed, err := f.accumulator.ConfirmProduction(ctx, order.ID, types.NewQuantity(48), types.MustMoney("52000"))
	require.NoError(t, err)

	assert.Equal(t, production_order.StatusConfirmed, confirmed.Status)
	assert.True(t, confirmed.ActualCost.Material.Equal(types.MustMoney("28000000")))
	assert.True(t, confirmed.ActualCost.Labor.Equal(types.MustMoney("52000")))
	assert.True(t, confirmed.ActualCost.Overhead.Equal(types.MustMoney("4800")))

	variance := production.Variance(confirmed)
	assert.True(t, variance.Material.Equal(types.MustMoney("500000")))
	assert.True(t, variance.Labor.Equal(types.MustMoney("2000")))
	assert.True(t, variance.Overhead.Equal(types.MustMoney("-200")))

	product, err := f.backend.Items.GetByID(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(48), product.Stock)

	moves, err := f.backend.Movements.GetMovementsByRecorder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, production_order.DocumentType, moves[0].RecorderType)
}

func TestConfirmOnCreatedOrderFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.create(t, 5, nil)

	_, err := f.accumulator.ConfirmProduction(ctx, order.ID, types.NewQuantity(5), types.MustMoney("100"))
	require.True(t, apperror.HasCode(err, apperror.CodeInvalidOrderState), "got %v", err)

	stored, err := f.accumulator.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, production_order.StatusCreated, stored.Status)
	assert.True(t, stored.ActualCost.Labor.IsZero())
	assert.Equal(t, order.Version, stored.Version)

	product, err := f.backend.Items.GetByID(ctx, f.product.ID)
	require.NoError(t, err)
	assert.True(t, product.Stock.IsZero())
}

func TestNoSkipOrRepeatTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := f.create(t, 5, nil)

	_, err := f.accumulator.IssueMaterial(ctx, order.ID, types.MustMoney("1"))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOrderState))

	_, err = f.accumulator.Release(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.accumulator.Release(ctx, order.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOrderState))

	_, err = f.accumulator.ConfirmProduction(ctx, order.ID, types.NewQuantity(5), types.Zero())
	require.NoError(t, err)
	_, err = f.accumulator.ConfirmProduction(ctx, order.ID, types.NewQuantity(5), types.Zero())
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOrderState))

	_, err = f.accumulator.Release(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}
