package kvstore

import (
	"context"
	"errors"
)

// Logical keys the engine persists its ledgers under. The stored value is a
// plain JSON document (an array of the ledger's entities), no binary framing.
const (
	KeyOrders      = "orders"
	KeyCommissions = "commissions"
	KeySettlements = "settlements"
)

// ErrNotFound is returned by Load when no value exists for the key yet.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the durable key-value persistence collaborator. Implementations
// must survive process restarts so the ledgers can be rehydrated at boot.
type Store interface {
	Load(ctx context.Context, key string, dest any) error
	Save(ctx context.Context, key string, value any) error
}
