package mrp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/bom"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/internal/domain/mrp"
	"ledgercore/internal/infrastructure/storage/memory"
)

type fixture struct {
	backend  *memory.Backend
	product  *item.Item
	x        *item.Item
	assembly *item.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	b := memory.New()

	product := item.NewItem("P", "Product", item.KindFinished, types.Zero())
	x := item.NewItem("X", "Component X", item.KindRawMaterial, types.MustMoney("5"))
	assembly := item.NewItem("SUB", "Sub-assembly", item.KindSemiFinished, types.MustMoney("50"))
	for _, it := range []*item.Item{product, x, assembly} {
		require.NoError(t, b.Items.Create(ctx, it))
	}
	require.NoError(t, b.Items.SetStock(ctx, x.ID, types.NewQuantity(5)))
	require.NoError(t, b.Items.SetStock(ctx, assembly.ID, types.NewQuantity(100)))

	recipe := bom.NewBOM("P-BOM", "Product", product.ID).
		AddLine(x.ID, types.NewQuantity(2)).
		AddLine(assembly.ID, types.NewQuantity(1))
	require.NoError(t, b.BOMs.Create(ctx, recipe))

	return &fixture{backend: b, product: product, x: x, assembly: assembly}
}

func TestRun_Shortfall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	calc := mrp.NewCalculator(f.backend.Items, f.backend.BOMs, nil)
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	shortfalls, err := calc.Run(ctx, []mrp.Demand{{ItemID: f.product.ID, Quantity: types.NewQuantity(10), DueDate: due}})
	require.NoError(t, err)
	require.Len(t, shortfalls, 1, "the sub-assembly is covered by stock")

	s := shortfalls[0]
	assert.Equal(t, f.x.ID, s.ItemID)
	assert.Equal(t, types.NewQuantity(20), s.Required)
	assert.Equal(t, types.NewQuantity(15), s.Quantity)
	assert.Equal(t, mrp.SuggestPurchase, s.SuggestedType)
	assert.Equal(t, due, s.DueDate)

	conv := mrp.Convert(s)
	require.NotNil(t, conv.Purchase)
	assert.Nil(t, conv.Production)
	assert.Equal(t, types.NewQuantity(15), conv.Purchase.Quantity)
	assert.Equal(t, due, conv.Purchase.NeedBy)
}

func TestRun_RepeatedComponentIsSummed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	kit := item.NewItem("KIT", "Kit", item.KindFinished, types.Zero())
	require.NoError(t, f.backend.Items.Create(ctx, kit))
	require.NoError(t, f.backend.BOMs.Create(ctx, bom.NewBOM("KIT-BOM", "Kit", kit.ID).
		AddLine(f.x.ID, types.NewQuantity(1)).
		AddLine(f.x.ID, types.NewQuantity(1))))

	calc := mrp.NewCalculator(f.backend.Items, f.backend.BOMs, nil)
	shortfalls, err := calc.Run(ctx, []mrp.Demand{{ItemID: kit.ID, Quantity: types.NewQuantity(10)}})
	require.NoError(t, err)

	require.Len(t, shortfalls, 1)
	assert.Equal(t, f.x.ID, shortfalls[0].ItemID)
	assert.Equal(t, types.NewQuantity(20), shortfalls[0].Required)
	assert.Equal(t, types.NewQuantity(15), shortfalls[0].Quantity)
}

func TestRun_SemiFinishedSuggestsProduction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	calc := mrp.NewCalculator(f.backend.Items, f.backend.BOMs, nil)

	shortfalls, err := calc.Run(ctx, []mrp.Demand{{ItemID: f.product.ID, Quantity: types.NewQuantity(120)}})
	require.NoError(t, err)
	require.Len(t, shortfalls, 2)

	sub := shortfalls[1]
	assert.Equal(t, f.assembly.ID, sub.ItemID)
	assert.Equal(t, types.NewQuantity(20), sub.Quantity)
	assert.Equal(t, mrp.SuggestProduction, sub.SuggestedType)

	conv := mrp.Convert(sub)
	require.NotNil(t, conv.Production)
	assert.Equal(t, f.assembly.ID, conv.Production.TargetItemID)
}

func TestRun_SkipsItemsWithoutBOM(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	calc := mrp.NewCalculator(f.backend.Items, f.backend.BOMs, nil)

	shortfalls, err := calc.Run(ctx, []mrp.Demand{{ItemID: f.x.ID, Quantity: types.NewQuantity(1000)}})
	require.NoError(t, err)
	assert.Empty(t, shortfalls)

	_, err = calc.Run(ctx, []mrp.Demand{{ItemID: f.product.ID}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRule_Custom(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rule, err := mrp.NewRule(`item.kind == "raw_material" || item.standard_cost < 100.0`)
	require.NoError(t, err)
	calc := mrp.NewCalculator(f.backend.Items, f.backend.BOMs, rule)

	shortfalls, err := calc.Run(ctx, []mrp.Demand{{ItemID: f.product.ID, Quantity: types.NewQuantity(120)}})
	require.NoError(t, err)
	require.Len(t, shortfalls, 2)
	assert.Equal(t, mrp.SuggestPurchase, shortfalls[1].SuggestedType)
}

func TestRule_Invalid(t *testing.T) {
	_, err := mrp.NewRule(`item.kind ==`)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = mrp.NewRule(`item.code`)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	assert.Equal(t, mrp.DefaultPurchaseRule, mrp.MustRule("").String())
}
