// Package register_repo provides the PostgreSQL inventory movement register.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/registers/stock"
	"ledgercore/internal/infrastructure/storage/postgres"
)

const movementsTable = "reg_inventory_movements"

var movementColumns = []string{
	"line_id", "recorder_id", "recorder_type", "period",
	"item_id", "kind", "delta", "created_at",
}

// MovementRepo implements stock.Repository. Rows are append-only.
type MovementRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ stock.Repository = (*MovementRepo)(nil)

// NewMovementRepo creates a new movement register repository.
func NewMovementRepo(txManager *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func movementRow(m entity.InventoryMovement) []any {
	return []any{
		m.LineID, m.RecorderID, m.RecorderType, m.Period,
		m.ItemID, string(m.Kind), m.Delta.Int64Scaled(), m.CreatedAt,
	}
}

func (r *MovementRepo) insertQuery(movements []entity.InventoryMovement) squirrel.InsertBuilder {
	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(movementRow(m)...)
	}
	return q
}

// CreateMovements batch inserts movements, over COPY when inside a transaction.
func (r *MovementRepo) CreateMovements(ctx context.Context, movements []entity.InventoryMovement) error {
	if len(movements) == 0 {
		return nil
	}

	if r.txManager.GetTx(ctx) != nil {
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, movementRow(m))
		}
		inserter := postgres.NewBatchInserter(r.txManager)
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return r.mapInsertErr(err, "copy movements")
		}
		return nil
	}

	sql, args, err := r.insertQuery(movements).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.mapInsertErr(err, "insert movements")
	}
	return nil
}

func (r *MovementRepo) mapInsertErr(err error, op string) error {
	if postgres.IsForeignKeyViolation(err) {
		return apperror.NewValidation("movement references an unknown item").WithCause(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// GetMovementsByRecorder retrieves movements for a document in creation order.
func (r *MovementRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.InventoryMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("created_at", "line_id")
	return r.selectMovements(ctx, q)
}

func (r *MovementRepo) historyQuery(itemID id.ID, filter stock.MovementFilter) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"item_id": itemID})

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": string(*filter.Kind)})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"period": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"period": *filter.ToDate})
	}

	q = q.OrderBy("period ASC", "created_at ASC", "line_id ASC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

// GetMovementHistory returns movement history for an item, oldest first.
func (r *MovementRepo) GetMovementHistory(ctx context.Context, itemID id.ID, filter stock.MovementFilter) ([]entity.InventoryMovement, error) {
	return r.selectMovements(ctx, r.historyQuery(itemID, filter))
}

func (r *MovementRepo) selectMovements(ctx context.Context, q squirrel.SelectBuilder) ([]entity.InventoryMovement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.InventoryMovement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}
