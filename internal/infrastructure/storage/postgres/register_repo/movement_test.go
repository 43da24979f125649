package register_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/registers/stock"
)

func TestMovementRepo_HistoryQuery(t *testing.T) {
	repo := NewMovementRepo(nil)
	itemID := id.New()
	out := entity.MovementOut
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	sql, args, err := repo.historyQuery(itemID, stock.MovementFilter{Kind: &out, FromDate: &from, Limit: 10}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT line_id, recorder_id, recorder_type, period, item_id, kind, delta, created_at "+
			"FROM reg_inventory_movements WHERE item_id = $1 AND kind = $2 AND period >= $3 "+
			"ORDER BY period ASC, created_at ASC, line_id ASC LIMIT 10",
		sql)
	assert.Equal(t, []any{itemID.String(), "out", from}, args)
}

func TestMovementRepo_InsertQueryFallback(t *testing.T) {
	repo := NewMovementRepo(nil)
	now := time.Now().UTC()
	itemID := id.New()
	movements := []entity.InventoryMovement{
		entity.NewInventoryMovement(id.New(), "GoodsReceipt", now, itemID, types.NewQuantity(10)),
		entity.NewInventoryMovement(id.New(), "GoodsIssue", now, itemID, types.NewQuantity(-3)),
	}

	sql, args, err := repo.insertQuery(movements).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO reg_inventory_movements (line_id,recorder_id,recorder_type,period,item_id,kind,delta,created_at) "+
			"VALUES ($1,$2,$3,$4,$5,$6,$7,$8),($9,$10,$11,$12,$13,$14,$15,$16)",
		sql)
	require.Len(t, args, 16)
	assert.Equal(t, "in", args[5])
	assert.Equal(t, int64(100000), args[6])
	assert.Equal(t, "out", args[13])
	assert.Equal(t, int64(-30000), args[14])
}
