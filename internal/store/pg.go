package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-ip-ledger/internal/domain"
	"github.com/feral-file/ff-ip-ledger/internal/ownership"
	"github.com/feral-file/ff-ip-ledger/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a
// GORM database connection, applying defaults for zero values:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// AssetExists checks the asset directory for the given ID
func (s *pgStore) AssetExists(ctx context.Context, assetID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.Asset{}).
		Where("id = ?", assetID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check asset: %w", err)
	}
	return count > 0, nil
}

// MissingCreators returns the subset of IDs absent from the creator directory
func (s *pgStore) MissingCreators(ctx context.Context, creatorIDs []string) ([]string, error) {
	if len(creatorIDs) == 0 {
		return nil, nil
	}

	var found []string
	err := s.db.WithContext(ctx).
		Model(&schema.Creator{}).
		Where("id IN ?", creatorIDs).
		Pluck("id", &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check creators: %w", err)
	}

	foundSet := make(map[string]struct{}, len(found))
	for _, id := range found {
		foundSet[id] = struct{}{}
	}

	var missing []string
	for _, id := range creatorIDs {
		if _, ok := foundSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// ListAdmins returns all creators holding the admin role
func (s *pgStore) ListAdmins(ctx context.Context) ([]schema.Creator, error) {
	var admins []schema.Creator
	err := s.db.WithContext(ctx).
		Where("admin = ?", true).
		Order("id ASC").
		Find(&admins).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

// GetActiveRecords returns the asset's records with no end date
func (s *pgStore) GetActiveRecords(ctx context.Context, assetID string) ([]schema.OwnershipRecord, error) {
	return activeRecords(s.db.WithContext(ctx), assetID)
}

// GetRecordsAt returns the asset's records active at the given instant.
// An instant before the asset's first record yields an empty list.
func (s *pgStore) GetRecordsAt(ctx context.Context, assetID string, at time.Time) ([]schema.OwnershipRecord, error) {
	var records []schema.OwnershipRecord
	err := s.db.WithContext(ctx).
		Where("asset_id = ? AND start_date <= ? AND (end_date IS NULL OR end_date > ?)", assetID, at, at).
		Order("start_date ASC, created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get records at %s: %w", at.Format(time.RFC3339), err)
	}
	return records, nil
}

// GetOwnershipHistory returns every record for the asset, including ended
// and disputed/resolved ones, in chronological order
func (s *pgStore) GetOwnershipHistory(ctx context.Context, assetID string) ([]schema.OwnershipRecord, error) {
	var records []schema.OwnershipRecord
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("start_date ASC, created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get ownership history: %w", err)
	}
	return records, nil
}

// GetRecordByID retrieves one ownership record, (nil, nil) when missing
func (s *pgStore) GetRecordByID(ctx context.Context, recordID string) (*schema.OwnershipRecord, error) {
	var record schema.OwnershipRecord
	err := s.db.WithContext(ctx).Where("id = ?", recordID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ownership record: %w", err)
	}
	return &record, nil
}

// GetDisputedRecords returns records with an open (or, optionally,
// resolved) dispute, most recently disputed first
func (s *pgStore) GetDisputedRecords(ctx context.Context, filter DisputeQueryFilter) ([]schema.OwnershipRecord, error) {
	query := s.db.WithContext(ctx).Model(&schema.OwnershipRecord{})

	if filter.IncludeResolved {
		query = query.Where("disputed = ? OR resolved_at IS NOT NULL", true)
	} else {
		query = query.Where("disputed = ?", true)
	}
	if filter.AssetID != "" {
		query = query.Where("asset_id = ?", filter.AssetID)
	}
	if filter.CreatorID != "" {
		query = query.Where("creator_id = ?", filter.CreatorID)
	}

	var records []schema.OwnershipRecord
	if err := query.Order("disputed_at DESC NULLS LAST, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get disputed records: %w", err)
	}
	return records, nil
}

// SetOwnership atomically replaces the asset's active set with the given
// split: every active record is ended at input.Now and one new record per
// split entry starts at input.Now. Either all rows commit or none do.
func (s *pgStore) SetOwnership(ctx context.Context, input SetOwnershipInput) (*OwnershipChange, error) {
	var change *OwnershipChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockAsset(tx, input.AssetID); err != nil {
			return err
		}

		before, err := activeRecords(tx, input.AssetID)
		if err != nil {
			return err
		}

		if err := endActiveRecords(tx, input.AssetID, input.ActorID, input.Now); err != nil {
			return err
		}

		ownershipType := input.Type
		if ownershipType == "" {
			ownershipType = domain.OwnershipTypePrimary
		}

		after := make([]schema.OwnershipRecord, 0, len(input.Splits))
		for _, split := range input.Splits {
			record := schema.OwnershipRecord{
				ID:                uuid.NewString(),
				AssetID:           input.AssetID,
				CreatorID:         split.CreatorID,
				ShareBps:          split.ShareBps,
				OwnershipType:     ownershipType,
				StartDate:         input.Now,
				ContractReference: input.ContractReference,
				LegalDocURL:       input.LegalDocURL,
				Notes:             input.Notes,
				CreatedBy:         input.ActorID,
				UpdatedBy:         input.ActorID,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to create ownership record: %w", err)
			}
			after = append(after, record)
		}

		change = &OwnershipChange{Before: before, After: after}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// TransferOwnership atomically moves share from one creator to another.
// The donor's active record is ended; a remainder record is created unless
// the donor exits fully; the recipient's prior active record (if any) is
// ended and replaced by one carrying the combined share, so each creator
// keeps at most one active record per asset. The asset's active total is
// unchanged by construction.
func (s *pgStore) TransferOwnership(ctx context.Context, input TransferOwnershipInput) (*TransferResult, error) {
	var result *TransferResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockAsset(tx, input.AssetID); err != nil {
			return err
		}

		before, err := activeRecords(tx, input.AssetID)
		if err != nil {
			return err
		}

		var donor, recipient *schema.OwnershipRecord
		for i := range before {
			switch before[i].CreatorID {
			case input.FromCreatorID:
				donor = &before[i]
			case input.ToCreatorID:
				recipient = &before[i]
			}
		}

		if donor == nil {
			return fmt.Errorf("%w: creator %s holds no active share of asset %s",
				domain.ErrInsufficientOwnership, input.FromCreatorID, input.AssetID)
		}
		if donor.ShareBps < input.ShareBps {
			return fmt.Errorf("%w: creator %s holds %d bps, cannot transfer %d",
				domain.ErrInsufficientOwnership, input.FromCreatorID, donor.ShareBps, input.ShareBps)
		}

		if err := endRecord(tx, donor.ID, input.ActorID, input.Now); err != nil {
			return err
		}

		result = &TransferResult{}

		remainder := donor.ShareBps - input.ShareBps
		if remainder > 0 {
			fromRecord := schema.OwnershipRecord{
				ID:                uuid.NewString(),
				AssetID:           input.AssetID,
				CreatorID:         input.FromCreatorID,
				ShareBps:          remainder,
				OwnershipType:     donor.OwnershipType,
				StartDate:         input.Now,
				ContractReference: donor.ContractReference,
				LegalDocURL:       donor.LegalDocURL,
				Notes:             donor.Notes,
				CreatedBy:         input.ActorID,
				UpdatedBy:         input.ActorID,
			}
			if err := tx.Create(&fromRecord).Error; err != nil {
				return fmt.Errorf("failed to create remainder record: %w", err)
			}
			result.FromRecord = &fromRecord
		}

		toShare := input.ShareBps
		if recipient != nil {
			toShare += recipient.ShareBps
			if err := endRecord(tx, recipient.ID, input.ActorID, input.Now); err != nil {
				return err
			}
		}

		toRecord := schema.OwnershipRecord{
			ID:            uuid.NewString(),
			AssetID:       input.AssetID,
			CreatorID:     input.ToCreatorID,
			ShareBps:      toShare,
			OwnershipType: domain.OwnershipTypeTransferred,
			StartDate:     input.Now,
			CreatedBy:     input.ActorID,
			UpdatedBy:     input.ActorID,
		}
		if err := tx.Create(&toRecord).Error; err != nil {
			return fmt.Errorf("failed to create recipient record: %w", err)
		}
		result.ToRecord = &toRecord

		after, err := activeRecords(tx, input.AssetID)
		if err != nil {
			return err
		}
		result.Before = before
		result.After = after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FlagDispute marks a record disputed. A record whose dispute was already
// resolved can never be disputed again; a record with an open dispute
// cannot be re-flagged.
func (s *pgStore) FlagDispute(ctx context.Context, input FlagDisputeInput) (*RecordChange, error) {
	var change *RecordChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := lockRecord(tx, input.RecordID)
		if err != nil {
			return err
		}

		switch record.DisputeState() {
		case domain.DisputeStateDisputed:
			return domain.ErrAlreadyDisputed
		case domain.DisputeStateResolved:
			return domain.ErrDisputeResolved
		}

		before := *record

		record.Disputed = true
		record.DisputedAt = &input.Now
		record.DisputeReason = &input.Reason
		record.DisputedBy = &input.ActorID
		record.UpdatedBy = input.ActorID
		record.UpdatedAt = input.Now

		if err := tx.Model(record).Updates(map[string]interface{}{
			"disputed":       true,
			"disputed_at":    input.Now,
			"dispute_reason": input.Reason,
			"disputed_by":    input.ActorID,
			"updated_by":     input.ActorID,
			"updated_at":     input.Now,
		}).Error; err != nil {
			return fmt.Errorf("failed to flag dispute: %w", err)
		}

		change = &RecordChange{Before: before, Record: *record}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// ResolveDispute closes a record's open dispute.
//
// CONFIRM keeps the record untouched; MODIFY is the single sanctioned
// in-place share mutation and is re-validated against both the current and
// the temporal invariant before committing; REMOVE ends the record at
// input.Now without redistributing the vacated share.
func (s *pgStore) ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*RecordChange, error) {
	var change *RecordChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// resolve the asset without locking the record, then take locks in
		// the same asset-first order as every other mutation
		var probe schema.OwnershipRecord
		if err := tx.Where("id = ?", input.RecordID).First(&probe).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRecordNotFound
			}
			return fmt.Errorf("failed to get ownership record: %w", err)
		}
		if err := lockAsset(tx, probe.AssetID); err != nil {
			return err
		}
		record, err := lockRecord(tx, input.RecordID)
		if err != nil {
			return err
		}

		if record.DisputeState() != domain.DisputeStateDisputed {
			return domain.ErrNotDisputed
		}

		before := *record

		updates := map[string]interface{}{
			"disputed":         false,
			"resolved_at":      input.Now,
			"resolved_by":      input.ActorID,
			"resolution_notes": input.ResolutionNotes,
			"updated_by":       input.ActorID,
			"updated_at":       input.Now,
		}

		switch input.Action {
		case domain.DisputeActionConfirm:
			// no share change

		case domain.DisputeActionModify:
			if input.Correction == nil {
				return fmt.Errorf("%w: modify resolution requires a correction", domain.ErrInvalidSplit)
			}
			if err := validateCorrection(tx, record, input.Correction.ShareBps); err != nil {
				return err
			}
			updates["share_bps"] = input.Correction.ShareBps
			record.ShareBps = input.Correction.ShareBps

		case domain.DisputeActionRemove:
			// vacates the share; the asset stays under full coverage until
			// a follow-up assignment
			if record.EndDate == nil {
				updates["end_date"] = input.Now
				endDate := input.Now
				record.EndDate = &endDate
			}

		default:
			return fmt.Errorf("unknown dispute action %q", input.Action)
		}

		if err := tx.Model(record).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to resolve dispute: %w", err)
		}

		record.Disputed = false
		record.ResolvedAt = &input.Now
		record.ResolvedBy = &input.ActorID
		record.ResolutionNotes = &input.ResolutionNotes
		record.UpdatedBy = input.ActorID
		record.UpdatedAt = input.Now

		change = &RecordChange{Before: before, Record: *record}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// UpdateRecordProvenance edits contract reference, legal doc URL and notes
// on an existing record. These are the only fields mutable outside the
// dispute-correction path.
func (s *pgStore) UpdateRecordProvenance(ctx context.Context, input UpdateProvenanceInput) (*RecordChange, error) {
	var change *RecordChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := lockRecord(tx, input.RecordID)
		if err != nil {
			return err
		}

		before := *record

		updates := map[string]interface{}{
			"updated_by": input.ActorID,
			"updated_at": input.Now,
		}
		if input.Patch.ContractReference != nil {
			updates["contract_reference"] = *input.Patch.ContractReference
			record.ContractReference = input.Patch.ContractReference
		}
		if input.Patch.LegalDocURL != nil {
			updates["legal_doc_url"] = *input.Patch.LegalDocURL
			record.LegalDocURL = input.Patch.LegalDocURL
		}
		if input.Patch.Notes != nil {
			updates["notes"] = *input.Patch.Notes
			record.Notes = input.Patch.Notes
		}

		if err := tx.Model(record).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update provenance metadata: %w", err)
		}

		record.UpdatedBy = input.ActorID
		record.UpdatedAt = input.Now

		change = &RecordChange{Before: before, Record: *record}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// CreateAuditEntry appends one audit log entry
func (s *pgStore) CreateAuditEntry(ctx context.Context, entry *schema.AuditLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// lockAsset takes a row-level lock on the asset, serializing all ownership
// mutations scoped to it. Mutations on different assets proceed in
// parallel with no cross-asset coordination.
func lockAsset(tx *gorm.DB, assetID string) error {
	var asset schema.Asset
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", assetID).
		First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrAssetNotFound
		}
		return fmt.Errorf("failed to lock asset: %w", err)
	}
	return nil
}

// lockRecord loads one ownership record under a row-level lock
func lockRecord(tx *gorm.DB, recordID string) (*schema.OwnershipRecord, error) {
	var record schema.OwnershipRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", recordID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to lock ownership record: %w", err)
	}
	return &record, nil
}

func activeRecords(db *gorm.DB, assetID string) ([]schema.OwnershipRecord, error) {
	var records []schema.OwnershipRecord
	err := db.
		Where("asset_id = ? AND end_date IS NULL", assetID).
		Order("start_date ASC, created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active records: %w", err)
	}
	return records, nil
}

func endActiveRecords(tx *gorm.DB, assetID, actorID string, now time.Time) error {
	err := tx.Model(&schema.OwnershipRecord{}).
		Where("asset_id = ? AND end_date IS NULL", assetID).
		Updates(map[string]interface{}{
			"end_date":   now,
			"updated_by": actorID,
			"updated_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to end active records: %w", err)
	}
	return nil
}

func endRecord(tx *gorm.DB, recordID, actorID string, now time.Time) error {
	err := tx.Model(&schema.OwnershipRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"end_date":   now,
			"updated_by": actorID,
			"updated_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to end ownership record: %w", err)
	}
	return nil
}

// validateCorrection re-checks both ledger invariants with the corrected
// share substituted for the record's current one, holding every other
// record for the asset fixed.
func validateCorrection(tx *gorm.DB, record *schema.OwnershipRecord, newShare int32) error {
	if newShare <= 0 || newShare > domain.TotalShareBps {
		return fmt.Errorf("%w: corrected share must be in [1, %d], got %d",
			domain.ErrInvalidSplit, domain.TotalShareBps, newShare)
	}

	var all []schema.OwnershipRecord
	if err := tx.Where("asset_id = ?", record.AssetID).Find(&all).Error; err != nil {
		return fmt.Errorf("failed to load asset records: %w", err)
	}

	// current invariant: if the record is active, the substituted active
	// set must still sum to exactly 10000 bps
	if record.EndDate == nil {
		splits := make([]domain.Split, 0, len(all))
		for _, r := range all {
			if r.EndDate != nil {
				continue
			}
			share := r.ShareBps
			if r.ID == record.ID {
				share = newShare
			}
			splits = append(splits, domain.Split{CreatorID: r.CreatorID, ShareBps: share})
		}
		if err := ownership.ValidateSplit(splits); err != nil {
			return err
		}
	}

	// temporal invariant: no historical segment may exceed 10000 bps with
	// the corrected share in place
	candidate := []ownership.Interval{{
		RecordID: record.ID,
		ShareBps: newShare,
		Start:    record.StartDate,
		End:      record.EndDate,
	}}
	existing := make([]ownership.Interval, 0, len(all))
	for _, r := range all {
		if r.ID == record.ID {
			continue
		}
		existing = append(existing, ownership.Interval{
			RecordID: r.ID,
			ShareBps: r.ShareBps,
			Start:    r.StartDate,
			End:      r.EndDate,
		})
	}
	return ownership.ValidateTemporal(candidate, existing)
}
