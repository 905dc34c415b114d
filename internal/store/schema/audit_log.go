package schema

import (
	"time"

	"gorm.io/datatypes"
)

// AuditAction identifies the ledger mutation an audit entry records
type AuditAction string

const (
	AuditActionSetOwnership      AuditAction = "set_ownership"
	AuditActionTransferOwnership AuditAction = "transfer_ownership"
	AuditActionFlagDispute       AuditAction = "flag_dispute"
	AuditActionResolveDispute    AuditAction = "resolve_dispute"
	AuditActionUpdateProvenance  AuditAction = "update_provenance"
)

// AuditEntityTypeOwnership is the entity type for ownership audit entries
const AuditEntityTypeOwnership = "ip_ownership"

// AuditLog represents the audit_log table - append-only record of every
// successful ledger mutation with before/after snapshots for legal
// defensibility. Entries are written after the mutating transaction
// commits, so a failed mutation never produces an audit entry.
type AuditLog struct {
	// ID is a ULID, sortable by creation time
	ID string `gorm:"column:id;primaryKey;type:text"`
	// Action identifies the mutation
	Action AuditAction `gorm:"column:action;not null;type:text"`
	// EntityType identifies the audited entity kind
	EntityType string `gorm:"column:entity_type;not null;type:text"`
	// AssetID is the asset the mutation applied to
	AssetID string `gorm:"column:asset_id;not null;type:uuid"`
	// Before is the JSON snapshot of the affected records prior to the mutation
	Before datatypes.JSON `gorm:"column:before;type:jsonb"`
	// After is the JSON snapshot of the affected records after the mutation
	After datatypes.JSON `gorm:"column:after;type:jsonb"`
	// ActorID is the caller the mutation is attributed to
	ActorID string `gorm:"column:actor_id;not null;type:text"`
	// Timestamp is when the mutation committed
	Timestamp time.Time `gorm:"column:timestamp;not null;type:timestamptz"`
	// CreatedAt is the timestamp when this entry was written
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_log"
}
