// Package ledger_repo provides the PostgreSQL ledger entry store.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/infrastructure/storage/postgres"
)

const entriesTable = "ledger_entries"

// LedgerRepo implements ledger.Repository. Rows are never deleted and only
// status and reversed_by change after insert.
type LedgerRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

var _ ledger.Repository = (*LedgerRepo)(nil)

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager:  txManager,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		selectCols: postgres.ExtractDBColumns[*ledger.Entry](),
	}
}

func (r *LedgerRepo) insertQuery(entry *ledger.Entry) squirrel.InsertBuilder {
	data := postgres.StructToMap(entry)
	return r.builder.Insert(entriesTable).
		SetMap(postgres.SelectColumns(data, r.selectCols))
}

// Insert stores a new entry under its pre-assigned sequence.
func (r *LedgerRepo) Insert(ctx context.Context, entry *ledger.Entry) error {
	sql, args, err := r.insertQuery(entry).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewConflict("ledger sequence already used").
				WithDetail("sequence", entry.Sequence).
				WithCause(err)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Get returns one entry by sequence.
func (r *LedgerRepo) Get(ctx context.Context, sequence int64) (*ledger.Entry, error) {
	sql, args, err := r.builder.Select(r.selectCols...).
		From(entriesTable).
		Where(squirrel.Eq{"sequence": sequence}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	entry := &ledger.Entry{}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), entry, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ledger entry", sequence)
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return entry, nil
}

// statusQuery moves sequence from one status to another. The reversal
// back-reference is only written when reversedBy is set.
func (r *LedgerRepo) statusQuery(sequence int64, from, to ledger.Status, reversedBy *int64) squirrel.UpdateBuilder {
	q := r.builder.Update(entriesTable).
		Set("status", to)
	if reversedBy != nil {
		q = q.Set("reversed_by", *reversedBy)
	}
	return q.Where(squirrel.Eq{"sequence": sequence}).
		Where(squirrel.Eq{"status": from})
}

// UpdateStatus changes status from the expected one. A row that moved on
// concurrently fails with InvalidLedgerState.
func (r *LedgerRepo) UpdateStatus(ctx context.Context, sequence int64, from, to ledger.Status, reversedBy *int64) error {
	sql, args, err := r.statusQuery(sequence, from, to, reversedBy).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewInvalidLedgerState(sequence, string(from), string(to))
	}
	return nil
}

// MaxSequence returns the highest stored sequence, 0 for an empty ledger.
func (r *LedgerRepo) MaxSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := r.txManager.GetQuerier(ctx).
		QueryRow(ctx, "SELECT COALESCE(MAX(sequence), 0) FROM "+entriesTable).
		Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max ledger sequence: %w", err)
	}
	return seq, nil
}

func (r *LedgerRepo) listQuery(filter ledger.ListFilter) squirrel.SelectBuilder {
	q := r.builder.Select(r.selectCols...).From(entriesTable)

	if filter.SourceModule != "" {
		q = q.Where(squirrel.Eq{"source_module": filter.SourceModule})
	}
	if filter.SourceDocumentID != nil {
		q = q.Where(squirrel.Eq{"source_document_id": *filter.SourceDocumentID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	q = q.OrderBy("sequence ASC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

// List returns entries matching filter in sequence order.
func (r *LedgerRepo) List(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Entry, error) {
	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []*ledger.Entry
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}
