package ledger_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/ledger"
)

func TestLedgerRepo_InsertQuery(t *testing.T) {
	repo := NewLedgerRepo(nil)
	entry := ledger.NewEntry(time.Now().UTC(), "Invoice INV-1", "settlement").
		Debit("1200", types.MustMoney("100"), "").
		Credit("4000", types.MustMoney("100"), "")
	entry.Sequence = 7

	sql, args, err := repo.insertQuery(entry).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "INSERT INTO ledger_entries (created_at,created_by,date,description,document_number,lines,")
	assert.Len(t, args, len(repo.selectCols))
}

func TestLedgerRepo_StatusQuery(t *testing.T) {
	repo := NewLedgerRepo(nil)

	t.Run("reversal sets back-reference", func(t *testing.T) {
		reversedBy := int64(9)
		sql, args, err := repo.statusQuery(4, ledger.StatusPosted, ledger.StatusReversed, &reversedBy).ToSql()
		require.NoError(t, err)

		assert.Equal(t, "UPDATE ledger_entries SET status = $1, reversed_by = $2 WHERE sequence = $3 AND status = $4", sql)
		assert.Equal(t, []any{ledger.StatusReversed, int64(9), int64(4), ledger.StatusPosted}, args)
	})

	t.Run("approval leaves back-reference untouched", func(t *testing.T) {
		sql, args, err := repo.statusQuery(4, ledger.StatusPosted, ledger.StatusApproved, nil).ToSql()
		require.NoError(t, err)

		assert.Equal(t, "UPDATE ledger_entries SET status = $1 WHERE sequence = $2 AND status = $3", sql)
		assert.Equal(t, []any{ledger.StatusApproved, int64(4), ledger.StatusPosted}, args)
	})
}

func TestLedgerRepo_ListQuery(t *testing.T) {
	repo := NewLedgerRepo(nil)
	docID := id.New()
	status := ledger.StatusPosted

	sql, args, err := repo.listQuery(ledger.ListFilter{
		SourceModule:     "inventory",
		SourceDocumentID: &docID,
		Status:           &status,
		Limit:            20,
		Offset:           40,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM ledger_entries WHERE source_module = $1 AND source_document_id = $2 AND status = $3 ORDER BY sequence ASC LIMIT 20 OFFSET 40")
	assert.Equal(t, []any{"inventory", docID.String(), ledger.StatusPosted}, args)
}
