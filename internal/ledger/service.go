// Package ledger orchestrates ownership assignment, transfer and query
// operations, calling the pure invariant checks before committing and the
// audit/notification gateways after.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-ip-ledger/internal/adapter"
	"github.com/feral-file/ff-ip-ledger/internal/cache"
	"github.com/feral-file/ff-ip-ledger/internal/domain"
	"github.com/feral-file/ff-ip-ledger/internal/gateway"
	"github.com/feral-file/ff-ip-ledger/internal/logger"
	"github.com/feral-file/ff-ip-ledger/internal/ownership"
	"github.com/feral-file/ff-ip-ledger/internal/store"
	"github.com/feral-file/ff-ip-ledger/internal/store/schema"
)

// OwnerShare is one line of an asset's ownership summary
type OwnerShare struct {
	CreatorID  string  `json:"creator_id"`
	ShareBps   int32   `json:"share_bps"`
	Percentage float64 `json:"percentage"`
}

// OwnershipSummary is the convenience projection of an asset's active set.
// TotalBps is below 10000 while a dispute removal awaits a follow-up
// assignment.
type OwnershipSummary struct {
	Owners   []OwnerShare `json:"owners"`
	TotalBps int64        `json:"total_bps"`
}

// SetOwnershipParams carries the optional provenance metadata of an
// assignment
type SetOwnershipParams struct {
	Type              domain.OwnershipType
	ContractReference *string
	LegalDocURL       *string
	Notes             *string
}

// Service is the ownership ledger's public surface
//
//go:generate mockgen -source=service.go -destination=../mocks/ledger_service.go -package=mocks -mock_names=Service=MockLedgerService
type Service interface {
	// SetAssetOwnership atomically replaces the asset's active split
	SetAssetOwnership(ctx context.Context, assetID string, splits []domain.Split, params SetOwnershipParams, actor domain.Actor) ([]schema.OwnershipRecord, error)
	// TransferOwnership moves share between two creators of the asset
	TransferOwnership(ctx context.Context, assetID, fromCreatorID, toCreatorID string, shareBps int32, actor domain.Actor) (*store.TransferResult, error)
	// GetAssetOwners returns the records active at the given instant (nil = now)
	GetAssetOwners(ctx context.Context, assetID string, at *time.Time) ([]schema.OwnershipRecord, error)
	// GetOwnershipHistory returns the asset's full chronological record set
	GetOwnershipHistory(ctx context.Context, assetID string) ([]schema.OwnershipRecord, error)
	// GetAssetOwnershipSummary projects the current active set
	GetAssetOwnershipSummary(ctx context.Context, assetID string) (*OwnershipSummary, error)
	// ValidateOwnershipSplit dry-runs split validation without touching storage
	ValidateOwnershipSplit(splits []domain.Split) error
	// UpdateRecordProvenance edits a record's contract reference, legal doc
	// URL or notes; every other field is immutable outside dispute correction
	UpdateRecordProvenance(ctx context.Context, recordID string, patch domain.ProvenancePatch, actor domain.Actor) (*schema.OwnershipRecord, error)
}

type service struct {
	store    store.Store
	cache    cache.OwnersCache
	audit    gateway.Audit
	notifier gateway.Notifier
	clock    adapter.Clock
}

// NewService creates the ledger service with explicit collaborators
func NewService(s store.Store, c cache.OwnersCache, a gateway.Audit, n gateway.Notifier, clock adapter.Clock) Service {
	return &service{store: s, cache: c, audit: a, notifier: n, clock: clock}
}

// SetAssetOwnership validates the split, resolves every creator against
// the directory, and commits the replacement atomically: either all rows
// commit or none do.
func (s *service) SetAssetOwnership(ctx context.Context, assetID string, splits []domain.Split, params SetOwnershipParams, actor domain.Actor) ([]schema.OwnershipRecord, error) {
	if err := ownership.ValidateSplit(splits); err != nil {
		return nil, err
	}
	if params.Type != "" && !params.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown ownership type %q", domain.ErrInvalidRequest, params.Type)
	}

	creatorIDs := make([]string, len(splits))
	for i, split := range splits {
		creatorIDs[i] = split.CreatorID
	}
	if err := s.requireCreators(ctx, creatorIDs); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	change, err := s.store.SetOwnership(ctx, store.SetOwnershipInput{
		AssetID:           assetID,
		Splits:            splits,
		Type:              params.Type,
		ContractReference: params.ContractReference,
		LegalDocURL:       params.LegalDocURL,
		Notes:             params.Notes,
		ActorID:           actor.ID,
		Now:               now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, assetID); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, gateway.AuditEvent{
		Action:    schema.AuditActionSetOwnership,
		AssetID:   assetID,
		Before:    change.Before,
		After:     change.After,
		ActorID:   actor.ID,
		Timestamp: now,
	})

	return change.After, nil
}

// TransferOwnership moves share from one creator to another. The asset's
// active total is unchanged by construction, so only the donor's balance
// is checked (inside the transaction, under the asset lock).
func (s *service) TransferOwnership(ctx context.Context, assetID, fromCreatorID, toCreatorID string, shareBps int32, actor domain.Actor) (*store.TransferResult, error) {
	if shareBps <= 0 {
		return nil, fmt.Errorf("%w: transfer share must be positive, got %d bps", domain.ErrInvalidRequest, shareBps)
	}
	if fromCreatorID == toCreatorID {
		return nil, fmt.Errorf("%w: transfer donor and recipient are the same creator", domain.ErrInvalidRequest)
	}
	if err := s.requireCreators(ctx, []string{fromCreatorID, toCreatorID}); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result, err := s.store.TransferOwnership(ctx, store.TransferOwnershipInput{
		AssetID:       assetID,
		FromCreatorID: fromCreatorID,
		ToCreatorID:   toCreatorID,
		ShareBps:      shareBps,
		ActorID:       actor.ID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, assetID); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, gateway.AuditEvent{
		Action:    schema.AuditActionTransferOwnership,
		AssetID:   assetID,
		Before:    result.Before,
		After:     result.After,
		ActorID:   actor.ID,
		Timestamp: now,
	})

	recipients := []gateway.Recipient{
		{UserID: fromCreatorID, Role: "creator"},
		{UserID: toCreatorID, Role: "creator"},
	}
	if err := s.notifier.Notify(ctx, recipients, gateway.TemplateOwnershipMoved, gateway.PriorityNormal, map[string]interface{}{
		"asset_id":        assetID,
		"from_creator_id": fromCreatorID,
		"to_creator_id":   toCreatorID,
		"share_bps":       shareBps,
	}); err != nil {
		logger.WarnCtx(ctx, "Transfer notification failed", zap.String("asset_id", assetID), zap.Error(err))
	}

	return result, nil
}

// GetAssetOwners returns the records active at the given instant. The
// current set is served from the owners cache when possible; time-travel
// queries always hit the store.
func (s *service) GetAssetOwners(ctx context.Context, assetID string, at *time.Time) ([]schema.OwnershipRecord, error) {
	if err := s.requireAsset(ctx, assetID); err != nil {
		return nil, err
	}

	if at != nil {
		return s.store.GetRecordsAt(ctx, assetID, *at)
	}

	if records, ok := s.cache.Get(ctx, assetID); ok {
		return records, nil
	}

	records, err := s.store.GetActiveRecords(ctx, assetID)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, assetID, records)
	return records, nil
}

// GetOwnershipHistory returns every record for the asset, including ended
// and disputed/resolved ones, ordered by start date
func (s *service) GetOwnershipHistory(ctx context.Context, assetID string) ([]schema.OwnershipRecord, error) {
	if err := s.requireAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return s.store.GetOwnershipHistory(ctx, assetID)
}

// GetAssetOwnershipSummary projects the current active set into
// per-creator shares and percentages
func (s *service) GetAssetOwnershipSummary(ctx context.Context, assetID string) (*OwnershipSummary, error) {
	records, err := s.GetAssetOwners(ctx, assetID, nil)
	if err != nil {
		return nil, err
	}

	summary := &OwnershipSummary{Owners: make([]OwnerShare, 0, len(records))}
	for _, record := range records {
		summary.Owners = append(summary.Owners, OwnerShare{
			CreatorID:  record.CreatorID,
			ShareBps:   record.ShareBps,
			Percentage: float64(record.ShareBps) / 100,
		})
		summary.TotalBps += int64(record.ShareBps)
	}
	return summary, nil
}

// ValidateOwnershipSplit dry-runs split validation for client-side
// pre-checks
func (s *service) ValidateOwnershipSplit(splits []domain.Split) error {
	return ownership.ValidateSplit(splits)
}

// UpdateRecordProvenance edits the only mutable metadata of a record. The
// actor must be an admin or the record's creator; an unauthorized caller
// gets a generic denial that does not reveal whether the record exists.
func (s *service) UpdateRecordProvenance(ctx context.Context, recordID string, patch domain.ProvenancePatch, actor domain.Actor) (*schema.OwnershipRecord, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no editable field in patch", domain.ErrInvalidRequest)
	}

	record, err := s.store.GetRecordByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		if actor.Admin {
			return nil, domain.ErrRecordNotFound
		}
		return nil, domain.ErrNotAuthorized
	}
	if !actor.Admin && actor.ID != record.CreatorID {
		return nil, domain.ErrNotAuthorized
	}

	now := s.clock.Now()
	change, err := s.store.UpdateRecordProvenance(ctx, store.UpdateProvenanceInput{
		RecordID: recordID,
		Patch:    patch,
		ActorID:  actor.ID,
		Now:      now,
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, gateway.AuditEvent{
		Action:    schema.AuditActionUpdateProvenance,
		AssetID:   change.Record.AssetID,
		Before:    change.Before,
		After:     change.Record,
		ActorID:   actor.ID,
		Timestamp: now,
	})

	return &change.Record, nil
}

func (s *service) requireAsset(ctx context.Context, assetID string) error {
	exists, err := s.store.AssetExists(ctx, assetID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrAssetNotFound, assetID)
	}
	return nil
}

func (s *service) requireCreators(ctx context.Context, creatorIDs []string) error {
	missing, err := s.store.MissingCreators(ctx, creatorIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrCreatorNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// recordAudit appends an audit entry for a committed mutation. The
// mutation already succeeded, so a failing audit write is logged rather
// than surfaced.
func (s *service) recordAudit(ctx context.Context, event gateway.AuditEvent) {
	if err := s.audit.Record(ctx, event); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("asset_id", event.AssetID),
			zap.String("action", string(event.Action)))
	}
}
