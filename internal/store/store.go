package store

import (
	"context"
	"time"

	"github.com/feral-file/ff-ip-ledger/internal/domain"
	"github.com/feral-file/ff-ip-ledger/internal/store/schema"
)

// SetOwnershipInput carries one full ownership assignment for an asset.
// The caller supplies the commit timestamp so transaction scope and time
// are explicit, testable parameters.
type SetOwnershipInput struct {
	AssetID string
	Splits  []domain.Split
	// Type is the lineage recorded on the new records
	Type domain.OwnershipType
	// Provenance metadata applied to every record of this assignment
	ContractReference *string
	LegalDocURL       *string
	Notes             *string
	ActorID           string
	Now               time.Time
}

// TransferOwnershipInput moves share from one creator to another
type TransferOwnershipInput struct {
	AssetID       string
	FromCreatorID string
	ToCreatorID   string
	ShareBps      int32
	ActorID       string
	Now           time.Time
}

// FlagDisputeInput opens a dispute on an ownership record
type FlagDisputeInput struct {
	RecordID string
	Reason   string
	ActorID  string
	Now      time.Time
}

// ResolveDisputeInput closes a dispute with one of CONFIRM/MODIFY/REMOVE
type ResolveDisputeInput struct {
	RecordID        string
	Action          domain.DisputeAction
	ResolutionNotes string
	// Correction is required for MODIFY and forbidden otherwise
	Correction *domain.DisputeCorrection
	ActorID    string
	Now        time.Time
}

// UpdateProvenanceInput edits the only mutable metadata of a record
type UpdateProvenanceInput struct {
	RecordID string
	Patch    domain.ProvenancePatch
	ActorID  string
	Now      time.Time
}

// DisputeQueryFilter narrows the dispute queue query
type DisputeQueryFilter struct {
	AssetID         string
	CreatorID       string
	IncludeResolved bool
}

// OwnershipChange is the before/after snapshot of an asset's active set
// across a mutation, used for audit entries and API responses
type OwnershipChange struct {
	Before []schema.OwnershipRecord
	After  []schema.OwnershipRecord
}

// TransferResult describes the records produced by a transfer
type TransferResult struct {
	OwnershipChange
	// FromRecord is the donor's remainder record, nil on a full transfer
	FromRecord *schema.OwnershipRecord
	// ToRecord is the recipient's new active record
	ToRecord *schema.OwnershipRecord
}

// RecordChange is the before/after snapshot of one record across a
// dispute mutation
type RecordChange struct {
	Before schema.OwnershipRecord
	Record schema.OwnershipRecord
}

// Store defines the interface for ledger database operations.
// Reads return (nil, nil) when the subject does not exist; mutating
// methods map missing subjects to the domain error taxonomy.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// AssetExists checks the asset directory for the given ID
	AssetExists(ctx context.Context, assetID string) (bool, error)
	// MissingCreators returns the subset of IDs absent from the creator directory
	MissingCreators(ctx context.Context, creatorIDs []string) ([]string, error)
	// ListAdmins returns all creators holding the admin role
	ListAdmins(ctx context.Context) ([]schema.Creator, error)

	// GetActiveRecords returns the asset's records with no end date
	GetActiveRecords(ctx context.Context, assetID string) ([]schema.OwnershipRecord, error)
	// GetRecordsAt returns the asset's records active at the given instant
	GetRecordsAt(ctx context.Context, assetID string, at time.Time) ([]schema.OwnershipRecord, error)
	// GetOwnershipHistory returns every record for the asset ordered by start date
	GetOwnershipHistory(ctx context.Context, assetID string) ([]schema.OwnershipRecord, error)
	// GetRecordByID retrieves one ownership record
	GetRecordByID(ctx context.Context, recordID string) (*schema.OwnershipRecord, error)
	// GetDisputedRecords returns records with an open (or, optionally, resolved) dispute
	GetDisputedRecords(ctx context.Context, filter DisputeQueryFilter) ([]schema.OwnershipRecord, error)

	// SetOwnership atomically replaces the asset's active set with the given split
	SetOwnership(ctx context.Context, input SetOwnershipInput) (*OwnershipChange, error)
	// TransferOwnership atomically moves share between two creators
	TransferOwnership(ctx context.Context, input TransferOwnershipInput) (*TransferResult, error)
	// FlagDispute marks a record disputed
	FlagDispute(ctx context.Context, input FlagDisputeInput) (*RecordChange, error)
	// ResolveDispute closes a record's dispute, applying the chosen action
	ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*RecordChange, error)
	// UpdateRecordProvenance edits contract reference, legal doc URL and notes
	UpdateRecordProvenance(ctx context.Context, input UpdateProvenanceInput) (*RecordChange, error)

	// CreateAuditEntry appends one audit log entry
	CreateAuditEntry(ctx context.Context, entry *schema.AuditLog) error
}
