// Package account provides the chart of accounts used to label ledger lines.
package account

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
)

// Kind is the account class.
type Kind string

const (
	KindAsset     Kind = "asset"
	KindLiability Kind = "liability"
	KindEquity    Kind = "equity"
	KindRevenue   Kind = "revenue"
	KindExpense   Kind = "expense"
)

// Account is one chart-of-accounts entry. Code is the ledger account code.
type Account struct {
	entity.Catalog

	Kind Kind `db:"kind" json:"kind"`
}

// NewAccount creates an account.
func NewAccount(code, name string, kind Kind) *Account {
	return &Account{Catalog: entity.NewCatalog(code, name), Kind: kind}
}

// Validate implements entity.Validatable.
func (a *Account) Validate(ctx context.Context) error {
	if err := a.Catalog.Validate(ctx); err != nil {
		return err
	}
	switch a.Kind {
	case KindAsset, KindLiability, KindEquity, KindRevenue, KindExpense:
		return nil
	}
	return apperror.NewValidation("unknown account kind").
		WithDetail("field", "kind").
		WithDetail("value", string(a.Kind))
}
