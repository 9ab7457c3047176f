// Package store defines the composite Store interface for all Cascade persistence.
//
// Each subsystem defines its own store interface and the aggregate Store
// composes them all, so a backend implements one type and every service gets
// the slice of it that it needs.
package store

import (
	"context"

	"github.com/xraph/cascade/dispatch"
	"github.com/xraph/cascade/dlq"
	"github.com/xraph/cascade/ledger"
	"github.com/xraph/cascade/rule"
)

// Store is the aggregate persistence interface.
type Store interface {
	rule.Store
	ledger.Store
	dispatch.Store
	dlq.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
