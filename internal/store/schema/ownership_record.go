package schema

import (
	"time"

	"github.com/feral-file/ff-ip-ledger/internal/domain"
)

// OwnershipRecord represents the ownership_records table - one fractional,
// time-bounded share of an IP asset held by a creator.
//
// Rows are append-only: a record is never deleted, and share_bps,
// creator_id, asset_id and start_date are never changed in place. Ending a
// record means setting end_date; the sole sanctioned in-place share change
// is the dispute MODIFY correction.
type OwnershipRecord struct {
	// ID is an opaque unique identifier (UUID)
	ID string `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	// AssetID references the owned IP asset
	AssetID string `gorm:"column:asset_id;not null;type:uuid" json:"asset_id"`
	// CreatorID references the owning creator
	CreatorID string `gorm:"column:creator_id;not null;type:uuid" json:"creator_id"`
	// ShareBps is the creator's share in basis points, in [1, 10000]
	ShareBps int32 `gorm:"column:share_bps;not null" json:"share_bps"`
	// OwnershipType classifies the share's lineage (metadata only)
	OwnershipType domain.OwnershipType `gorm:"column:ownership_type;not null;type:text" json:"ownership_type"`
	// StartDate is the instant from which this record is active (inclusive)
	StartDate time.Time `gorm:"column:start_date;not null;type:timestamptz" json:"start_date"`
	// EndDate is the instant at which the record ceased to be active;
	// coverage is [start_date, end_date). NULL means active indefinitely.
	EndDate *time.Time `gorm:"column:end_date;type:timestamptz" json:"end_date"`

	// Provenance metadata, opaque to the ledger
	ContractReference *string `gorm:"column:contract_reference;type:text" json:"contract_reference,omitempty"`
	LegalDocURL       *string `gorm:"column:legal_doc_url;type:text" json:"legal_doc_url,omitempty"`
	Notes             *string `gorm:"column:notes;type:text" json:"notes,omitempty"`

	// Dispute lifecycle fields (clean -> disputed -> resolved)
	Disputed        bool       `gorm:"column:disputed;not null;default:false" json:"disputed"`
	DisputedAt      *time.Time `gorm:"column:disputed_at;type:timestamptz" json:"disputed_at,omitempty"`
	DisputeReason   *string    `gorm:"column:dispute_reason;type:text" json:"dispute_reason,omitempty"`
	DisputedBy      *string    `gorm:"column:disputed_by;type:uuid" json:"disputed_by,omitempty"`
	ResolvedAt      *time.Time `gorm:"column:resolved_at;type:timestamptz" json:"resolved_at,omitempty"`
	ResolvedBy      *string    `gorm:"column:resolved_by;type:uuid" json:"resolved_by,omitempty"`
	ResolutionNotes *string    `gorm:"column:resolution_notes;type:text" json:"resolution_notes,omitempty"`

	// Audit fields
	CreatedBy string    `gorm:"column:created_by;not null;type:uuid" json:"created_by"`
	UpdatedBy string    `gorm:"column:updated_by;not null;type:uuid" json:"updated_by"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz" json:"updated_at"`
}

// TableName specifies the table name for the OwnershipRecord model
func (OwnershipRecord) TableName() string {
	return "ownership_records"
}

// Active reports whether the record is active now (no end date)
func (r *OwnershipRecord) Active() bool {
	return r.EndDate == nil
}

// ActiveAt reports whether the record was active at the given instant.
// Coverage is half-open: a record ended at t is no longer active at t, so
// the instant of a handoff belongs to the replacing record set.
func (r *OwnershipRecord) ActiveAt(at time.Time) bool {
	if r.StartDate.After(at) {
		return false
	}
	return r.EndDate == nil || at.Before(*r.EndDate)
}

// DisputeState derives the record's position in the dispute lifecycle
func (r *OwnershipRecord) DisputeState() domain.DisputeState {
	switch {
	case r.Disputed:
		return domain.DisputeStateDisputed
	case r.ResolvedAt != nil:
		return domain.DisputeStateResolved
	default:
		return domain.DisputeStateClean
	}
}
