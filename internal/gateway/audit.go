// Package gateway holds the external collaborators invoked after a
// successful ledger mutation: the audit trail and stakeholder
// notifications. Both run only after the mutating transaction commits, so
// a failed mutation never produces a misleading audit entry or
// notification.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/feral-file/ff-ip-ledger/internal/store"
	"github.com/feral-file/ff-ip-ledger/internal/store/schema"
)

// AuditEvent is one successful ledger mutation with its before/after
// snapshots
type AuditEvent struct {
	Action    schema.AuditAction
	AssetID   string
	Before    interface{}
	After     interface{}
	ActorID   string
	Timestamp time.Time
}

// Audit records ledger mutations for legal defensibility
//
//go:generate mockgen -source=audit.go -destination=../mocks/audit.go -package=mocks -mock_names=Audit=MockAudit
type Audit interface {
	// Record appends one audit entry
	Record(ctx context.Context, event AuditEvent) error
}

type storeAudit struct {
	store store.Store
}

// NewStoreAudit creates an audit gateway backed by the ledger store's
// append-only audit_log table
func NewStoreAudit(s store.Store) Audit {
	return &storeAudit{store: s}
}

// Record appends one audit entry with JSON before/after snapshots
func (a *storeAudit) Record(ctx context.Context, event AuditEvent) error {
	before, err := json.Marshal(event.Before)
	if err != nil {
		return fmt.Errorf("failed to marshal audit before snapshot: %w", err)
	}
	after, err := json.Marshal(event.After)
	if err != nil {
		return fmt.Errorf("failed to marshal audit after snapshot: %w", err)
	}

	entry := schema.AuditLog{
		ID:         ulid.MustNew(ulid.Timestamp(event.Timestamp), ulid.DefaultEntropy()).String(),
		Action:     event.Action,
		EntityType: schema.AuditEntityTypeOwnership,
		AssetID:    event.AssetID,
		Before:     before,
		After:      after,
		ActorID:    event.ActorID,
		Timestamp:  event.Timestamp,
	}

	return a.store.CreateAuditEntry(ctx, &entry)
}
