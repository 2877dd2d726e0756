package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TransactionFromContext returns the transaction carried by ctx, if any
func TransactionFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// ContextWithTransaction attaches tx to ctx so store methods join it
func ContextWithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// getDBFromContext prefers the transaction in ctx over the shared handle
func getDBFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := TransactionFromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}

// Transaction runs fn in a transaction; a transaction already in ctx is reused
func (s *store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if TransactionFromContext(ctx) != nil {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ContextWithTransaction(ctx, tx))
	})
}
