package production_order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

func TestOrder_StateMachine(t *testing.T) {
	o := NewOrder(id.New(), types.NewQuantity(50), id.New())

	err := o.Confirm(types.NewQuantity(50), types.NewMoney(100))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOrderState))
	assert.Equal(t, StatusCreated, o.Status)
	assert.True(t, o.ActualCost.Labor.IsZero())

	err = o.IssueMaterial(types.NewMoney(5))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOrderState))

	require.NoError(t, o.Release())
	assert.True(t, apperror.HasCode(o.Release(), apperror.CodeInvalidOrderState))

	require.NoError(t, o.IssueMaterial(types.NewMoney(1000)))
	require.NoError(t, o.IssueMaterial(types.NewMoney(500)))
	assert.True(t, o.ActualCost.Material.Equal(types.NewMoney(1500)))

	require.NoError(t, o.Confirm(types.NewQuantity(48), types.NewMoney(700)))
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, types.NewQuantity(48), o.ProducedQuantity)

	assert.True(t, apperror.HasCode(o.Confirm(types.NewQuantity(1), types.Zero()), apperror.CodeInvalidOrderState))
}

func TestOrder_OverheadAndVariance(t *testing.T) {
	o := NewOrder(id.New(), types.NewQuantity(10), id.New())
	o.Rates = &Rates{LaborPerUnit: types.NewMoney(20), OverheadPerUnit: types.NewMoney(5)}
	o.StandardCost = Cost{Material: types.NewMoney(1000), Labor: types.NewMoney(200), Overhead: types.NewMoney(50)}

	require.NoError(t, o.Release())
	require.NoError(t, o.IssueMaterial(types.NewMoney(1100)))
	require.NoError(t, o.Confirm(types.NewQuantity(10), types.NewMoney(180)))

	assert.True(t, o.ActualCost.Overhead.Equal(types.NewMoney(50)))

	v := o.Variance()
	assert.True(t, v.Material.Equal(types.NewMoney(100)))
	assert.True(t, v.Labor.Equal(types.NewMoney(-20)))
	assert.True(t, v.Overhead.IsZero())
}
