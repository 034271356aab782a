package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func New(ctx context.Context) Context { return Context{Ctx: ctx} }

// DB returns the transaction if one is set, else base, bound to Ctx.
func (c Context) DB(base *gorm.DB) *gorm.DB {
	db := base
	if c.Tx != nil {
		db = c.Tx
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return db.WithContext(ctx)
}
