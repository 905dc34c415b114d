package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/feral-file/ff-ip-ledger/internal/domain"
	"github.com/feral-file/ff-ip-ledger/internal/store/schema"
)

// initTestDB prepares an isolated database handle and store for one test
type initTestDB func(t *testing.T) (*gorm.DB, Store)

// RunStoreTests runs the full store test suite against a Store
// implementation. Each test gets a fresh database via initFn.
func RunStoreTests(t *testing.T, initFn initTestDB) {
	t.Run("Directory", func(t *testing.T) { testDirectory(t, initFn) })
	t.Run("SetOwnership", func(t *testing.T) { testSetOwnership(t, initFn) })
	t.Run("TransferOwnership", func(t *testing.T) { testTransferOwnership(t, initFn) })
	t.Run("TimeTravel", func(t *testing.T) { testTimeTravel(t, initFn) })
	t.Run("FlagDispute", func(t *testing.T) { testFlagDispute(t, initFn) })
	t.Run("ResolveDispute", func(t *testing.T) { testResolveDispute(t, initFn) })
	t.Run("GetDisputedRecords", func(t *testing.T) { testGetDisputedRecords(t, initFn) })
	t.Run("UpdateProvenance", func(t *testing.T) { testUpdateProvenance(t, initFn) })
	t.Run("AuditLog", func(t *testing.T) { testAuditLog(t, initFn) })
}

var baseTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func seedAsset(t *testing.T, db *gorm.DB) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Create(&schema.Asset{ID: id, Title: "asset " + id[:8]}).Error)
	return id
}

func seedCreator(t *testing.T, db *gorm.DB, admin bool) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Create(&schema.Creator{ID: id, DisplayName: "creator " + id[:8], Admin: admin}).Error)
	return id
}

func sharesByCreator(records []schema.OwnershipRecord) map[string]int32 {
	shares := make(map[string]int32, len(records))
	for _, r := range records {
		shares[r.CreatorID] += r.ShareBps
	}
	return shares
}

func totalBps(records []schema.OwnershipRecord) int32 {
	var total int32
	for _, r := range records {
		total += r.ShareBps
	}
	return total
}

func strPtr(s string) *string {
	return &s
}

func testDirectory(t *testing.T, initFn initTestDB) {
	ctx := context.Background()
	db, s := initFn(t)

	assetID := seedAsset(t, db)
	adminID := seedCreator(t, db, true)
	creatorID := seedCreator(t, db, false)

	exists, err := s.AssetExists(ctx, assetID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.AssetExists(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, exists)

	unknown := uuid.NewString()
	missing, err := s.MissingCreators(ctx, []string{creatorID, unknown, adminID})
	require.NoError(t, err)
	assert.Equal(t, []string{unknown}, missing)

	missing, err = s.MissingCreators(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, missing)

	admins, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, adminID, admins[0].ID)
	assert.True(t, admins[0].Admin)
}

func testSetOwnership(t *testing.T, initFn initTestDB) {
	ctx := context.Background()

	t.Run("InitialAssignment", func(t *testing.T) {
		db, s := initFn(t)
		assetID := seedAsset(t, db)
		alice := seedCreator(t, db, false)
		bob := seedCreator(t, db, false)

		change, err := s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: assetID,
			Splits: []domain.Split{
				{CreatorID: alice, ShareBps: 6000},
				{CreatorID: bob, ShareBps: 4000},
			},
			ContractReference: strPtr("contract-001"),
			ActorID:           alice,
			Now:               baseTime,
		})
		require.NoError(t, err)
		assert.Empty(t, change.Before)
		require.Len(t, change.After, 2)
		assert.EqualValues(t, 10000, totalBps(change.After))

		for _, r := range change.After {
			assert.Equal(t, domain.OwnershipTypePrimary, r.OwnershipType)
			assert.True(t, r.StartDate.Equal(baseTime))
			assert.Nil(t, r.EndDate)
			require.NotNil(t, r.ContractReference)
			assert.Equal(t, "contract-001", *r.ContractReference)
		}

		shares := sharesByCreator(change.After)
		assert.EqualValues(t, 6000, shares[alice])
		assert.EqualValues(t, 4000, shares[bob])
	})

	t.Run("ReplacementEndsActiveSet", func(t *testing.T) {
		db, s := initFn(t)
		assetID := seedAsset(t, db)
		alice := seedCreator(t, db, false)
		bob := seedCreator(t, db, false)
		charlie := seedCreator(t, db, false)

		_, err := s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: assetID,
			Splits: []domain.Split{
				{CreatorID: alice, ShareBps: 6000},
				{CreatorID: bob, ShareBps: 4000},
			},
			ActorID: alice,
			Now:     baseTime,
		})
		require.NoError(t, err)

		handoff := baseTime.Add(time.Hour)
		change, err := s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: assetID,
			Splits:  []domain.Split{{CreatorID: charlie, ShareBps: 10000}},
			Type:    domain.OwnershipTypeDerivative,
			ActorID: charlie,
			Now:     handoff,
		})
		require.NoError(t, err)
		require.Len(t, change.Before, 2)
		require.Len(t, change.After, 1)
		assert.Equal(t, domain.OwnershipTypeDerivative, change.After[0].OwnershipType)

		active, err := s.GetActiveRecords(ctx, assetID)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, charlie, active[0].CreatorID)

		// prior records are ended, never deleted
		history, err := s.GetOwnershipHistory(ctx, assetID)
		require.NoError(t, err)
		require.Len(t, history, 3)
		for _, r := range history {
			if r.CreatorID == charlie {
				assert.Nil(t, r.EndDate)
				continue
			}
			require.NotNil(t, r.EndDate)
			assert.True(t, r.EndDate.Equal(handoff))
		}
	})

	t.Run("UnknownAsset", func(t *testing.T) {
		db, s := initFn(t)
		alice := seedCreator(t, db, false)

		_, err := s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: uuid.NewString(),
			Splits:  []domain.Split{{CreatorID: alice, ShareBps: 10000}},
			ActorID: alice,
			Now:     baseTime,
		})
		assert.ErrorIs(t, err, domain.ErrAssetNotFound)
	})
}

func testTransferOwnership(t *testing.T, initFn initTestDB) {
	ctx := context.Background()

	setup := func(t *testing.T) (*gorm.DB, Store, string, string, string) {
		db, s := initFn(t)
		assetID := seedAsset(t, db)
		alice := seedCreator(t, db, false)
		bob := seedCreator(t, db, false)

		_, err := s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: assetID,
			Splits: []domain.Split{
				{CreatorID: alice, ShareBps: 6000},
				{CreatorID: bob, ShareBps: 4000},
			},
			ContractReference: strPtr("contract-001"),
			ActorID:           alice,
			Now:               baseTime,
		})
		require.NoError(t, err)
		return db, s, assetID, alice, bob
	}

	t.Run("PartialTransfer", func(t *testing.T) {
		db, s, assetID, alice, _ := setup(t)
		carol := seedCreator(t, db, false)

		transferAt := baseTime.Add(time.Hour)
		result, err := s.TransferOwnership(ctx, TransferOwnershipInput{
			AssetID:       assetID,
			FromCreatorID: alice,
			ToCreatorID:   carol,
			ShareBps:      2500,
			ActorID:       alice,
			Now:           transferAt,
		})
		require.NoError(t, err)

		// donor remainder keeps lineage and provenance
		require.NotNil(t, result.FromRecord)
		assert.EqualValues(t, 3500, result.FromRecord.ShareBps)
		assert.Equal(t, domain.OwnershipTypePrimary, result.FromRecord.OwnershipType)
		require.NotNil(t, result.FromRecord.ContractReference)
		assert.Equal(t, "contract-001", *result.FromRecord.ContractReference)

		// recipient record carries the transferred lineage, no provenance
		require.NotNil(t, result.ToRecord)
		assert.EqualValues(t, 2500, result.ToRecord.ShareBps)
		assert.Equal(t, domain.OwnershipTypeTransferred, result.ToRecord.OwnershipType)
		assert.Nil(t, result.ToRecord.ContractReference)

		require.Len(t, result.After, 3)
		assert.EqualValues(t, 10000, totalBps(result.After))
	})

	t.Run("FullExit", func(t *testing.T) {
		db, s, assetID, alice, _ := setup(t)
		carol := seedCreator(t, db, false)

		result, err := s.TransferOwnership(ctx, TransferOwnershipInput{
			AssetID:       assetID,
			FromCreatorID: alice,
			ToCreatorID:   carol,
			ShareBps:      6000,
			ActorID:       alice,
			Now:           baseTime.Add(time.Hour),
		})
		require.NoError(t, err)
		assert.Nil(t, result.FromRecord)
		require.NotNil(t, result.ToRecord)
		assert.EqualValues(t, 6000, result.ToRecord.ShareBps)

		shares := sharesByCreator(result.After)
		assert.NotContains(t, shares, alice)
		assert.EqualValues(t, 10000, totalBps(result.After))
	})

	t.Run("MergeIntoExistingHolder", func(t *testing.T) {
		_, s, assetID, alice, bob := setup(t)

		result, err := s.TransferOwnership(ctx, TransferOwnershipInput{
			AssetID:       assetID,
			FromCreatorID: alice,
			ToCreatorID:   bob,
			ShareBps:      1000,
			ActorID:       alice,
			Now:           baseTime.Add(time.Hour),
		})
		require.NoError(t, err)

		// bob holds one combined active record
		require.NotNil(t, result.ToRecord)
		assert.EqualValues(t, 5000, result.ToRecord.ShareBps)
		assert.Equal(t, domain.OwnershipTypeTransferred, result.ToRecord.OwnershipType)

		require.Len(t, result.After, 2)
		shares := sharesByCreator(result.After)
		assert.EqualValues(t, 5000, shares[alice])
		assert.EqualValues(t, 5000, shares[bob])
	})

	t.Run("InsufficientShare", func(t *testing.T) {
		db, s, assetID, alice, _ := setup(t)
		carol := seedCreator(t, db, false)

		_, err := s.TransferOwnership(ctx, TransferOwnershipInput{
			AssetID:       assetID,
			FromCreatorID: alice,
			ToCreatorID:   carol,
			ShareBps:      7000,
			ActorID:       alice,
			Now:           baseTime.Add(time.Hour),
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientOwnership)
	})

	t.Run("DonorHoldsNothing", func(t *testing.T) {
		db, s, assetID, _, bob := setup(t)
		outsider := seedCreator(t, db, false)

		_, err := s.TransferOwnership(ctx, TransferOwnershipInput{
			AssetID:       assetID,
			FromCreatorID: outsider,
			ToCreatorID:   bob,
			ShareBps:      100,
			ActorID:       outsider,
			Now:           baseTime.Add(time.Hour),
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientOwnership)
	})
}

func testTimeTravel(t *testing.T, initFn initTestDB) {
	ctx := context.Background()
	db, s := initFn(t)

	assetID := seedAsset(t, db)
	alice := seedCreator(t, db, false)
	bob := seedCreator(t, db, false)

	_, err := s.SetOwnership(ctx, SetOwnershipInput{
		AssetID: assetID,
		Splits:  []domain.Split{{CreatorID: alice, ShareBps: 10000}},
		ActorID: alice,
		Now:     baseTime,
	})
	require.NoError(t, err)

	handoff := baseTime.Add(time.Hour)
	_, err = s.SetOwnership(ctx, SetOwnershipInput{
		AssetID: assetID,
		Splits:  []domain.Split{{CreatorID: bob, ShareBps: 10000}},
		ActorID: bob,
		Now:     handoff,
	})
	require.NoError(t, err)

	// before the first record: no owners
	records, err := s.GetRecordsAt(ctx, assetID, baseTime.Add(-time.Second))
	require.NoError(t, err)
	assert.Empty(t, records)

	// start instant is inclusive
	records, err = s.GetRecordsAt(ctx, assetID, baseTime)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, alice, records[0].CreatorID)

	records, err = s.GetRecordsAt(ctx, assetID, baseTime.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, alice, records[0].CreatorID)

	// the handoff instant belongs to the replacing set, never both
	records, err = s.GetRecordsAt(ctx, assetID, handoff)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, bob, records[0].CreatorID)
	assert.EqualValues(t, 10000, totalBps(records))

	// an asset with no records is an empty result, not an error
	records, err = s.GetRecordsAt(ctx, uuid.NewString(), baseTime)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func testFlagDispute(t *testing.T, initFn initTestDB) {
	ctx := context.Background()
	db, s := initFn(t)

	assetID := seedAsset(t, db)
	alice := seedCreator(t, db, false)
	bob := seedCreator(t, db, false)
	admin := seedCreator(t, db, true)

	change, err := s.SetOwnership(ctx, SetOwnershipInput{
		AssetID: assetID,
		Splits: []domain.Split{
			{CreatorID: alice, ShareBps: 6000},
			{CreatorID: bob, ShareBps: 4000},
		},
		ActorID: alice,
		Now:     baseTime,
	})
	require.NoError(t, err)
	recordID := change.After[0].ID

	flagAt := baseTime.Add(time.Hour)
	flagged, err := s.FlagDispute(ctx, FlagDisputeInput{
		RecordID: recordID,
		Reason:   "share does not match signed agreement",
		ActorID:  bob,
		Now:      flagAt,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStateClean, flagged.Before.DisputeState())
	assert.True(t, flagged.Record.Disputed)
	require.NotNil(t, flagged.Record.DisputeReason)
	assert.Equal(t, "share does not match signed agreement", *flagged.Record.DisputeReason)
	require.NotNil(t, flagged.Record.DisputedBy)
	assert.Equal(t, bob, *flagged.Record.DisputedBy)

	stored, err := s.GetRecordByID(ctx, recordID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.DisputeStateDisputed, stored.DisputeState())

	// a disputed record cannot be re-flagged
	_, err = s.FlagDispute(ctx, FlagDisputeInput{
		RecordID: recordID,
		Reason:   "second complaint",
		ActorID:  alice,
		Now:      flagAt.Add(time.Minute),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyDisputed)

	resolveAt := flagAt.Add(time.Hour)
	resolved, err := s.ResolveDispute(ctx, ResolveDisputeInput{
		RecordID:        recordID,
		Action:          domain.DisputeActionConfirm,
		ResolutionNotes: "agreement verified",
		ActorID:         admin,
		Now:             resolveAt,
	})
	require.NoError(t, err)
	assert.False(t, resolved.Record.Disputed)
	assert.Equal(t, domain.DisputeStateResolved, resolved.Record.DisputeState())
	require.NotNil(t, resolved.Record.ResolvedBy)
	assert.Equal(t, admin, *resolved.Record.ResolvedBy)

	// resolved is terminal: no second dispute, no second resolution
	_, err = s.FlagDispute(ctx, FlagDisputeInput{
		RecordID: recordID,
		Reason:   "reopening",
		ActorID:  bob,
		Now:      resolveAt.Add(time.Minute),
	})
	assert.ErrorIs(t, err, domain.ErrDisputeResolved)

	_, err = s.ResolveDispute(ctx, ResolveDisputeInput{
		RecordID: recordID,
		Action:   domain.DisputeActionConfirm,
		ActorID:  admin,
		Now:      resolveAt.Add(time.Minute),
	})
	assert.ErrorIs(t, err, domain.ErrNotDisputed)

	_, err = s.FlagDispute(ctx, FlagDisputeInput{
		RecordID: uuid.NewString(),
		Reason:   "no such record",
		ActorID:  bob,
		Now:      flagAt,
	})
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func testResolveDispute(t *testing.T, initFn initTestDB) {
	ctx := context.Background()

	t.Run("ConfirmKeepsShare", func(t *testing.T) {
		db, s := initFn(t)
		assetID := seedAsset(t, db)
		alice := seedCreator(t, db, false)
		admin := seedCreator(t, db, true)

		change, err := s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: assetID,
			Splits:  []domain.Split{{CreatorID: alice, ShareBps: 10000}},
			ActorID: alice,
			Now:     baseTime,
		})
		require.NoError(t, err)
		recordID := change.After[0].ID

		_, err = s.FlagDispute(ctx, FlagDisputeInput{
			RecordID: recordID, Reason: "contested", ActorID: alice, Now: baseTime.Add(time.Hour),
		})
		require.NoError(t, err)

		resolved, err := s.ResolveDispute(ctx, ResolveDisputeInput{
			RecordID:        recordID,
			Action:          domain.DisputeActionConfirm,
			ResolutionNotes: "holds up",
			ActorID:         admin,
			Now:             baseTime.Add(2 * time.Hour),
		})
		require.NoError(t, err)
		assert.EqualValues(t, 10000, resolved.Record.ShareBps)
		assert.Nil(t, resolved.Record.EndDate)
	})

	t.Run("ModifyActiveRecordMustKeepFullCoverage", func(t *testing.T) {
		db, s := initFn(t)
		assetID := seedAsset(t, db)
		alice := seedCreator(t, db, false)
		bob := seedCreator(t, db, false)
		admin := seedCreator(t, db, true)

		change, err := s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: assetID,
			Splits: []domain.Split{
				{CreatorID: alice, ShareBps: 6000},
				{CreatorID: bob, ShareBps: 4000},
			},
			ActorID: alice,
			Now:     baseTime,
		})
		require.NoError(t, err)

		var aliceRecord schema.OwnershipRecord
		for _, r := range change.After {
			if r.CreatorID == alice {
				aliceRecord = r
			}
		}

		_, err = s.FlagDispute(ctx, FlagDisputeInput{
			RecordID: aliceRecord.ID, Reason: "overstated", ActorID: bob, Now: baseTime.Add(time.Hour),
		})
		require.NoError(t, err)

		// correcting an active record cannot break the sum
		_, err = s.ResolveDispute(ctx, ResolveDisputeInput{
			RecordID:   aliceRecord.ID,
			Action:     domain.DisputeActionModify,
			Correction: &domain.DisputeCorrection{ShareBps: 5000},
			ActorID:    admin,
			Now:        baseTime.Add(2 * time.Hour),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidSplit)

		// the record stays disputed after a failed resolution
		stored, err := s.GetRecordByID(ctx, aliceRecord.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DisputeStateDisputed, stored.DisputeState())
	})

	t.Run("ModifyEndedRecord", func(t *testing.T) {
		db, s := initFn(t)
		assetID := seedAsset(t, db)
		alice := seedCreator(t, db, false)
		bob := seedCreator(t, db, false)
		admin := seedCreator(t, db, true)

		change, err := s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: assetID,
			Splits:  []domain.Split{{CreatorID: alice, ShareBps: 10000}},
			ActorID: alice,
			Now:     baseTime,
		})
		require.NoError(t, err)
		endedID := change.After[0].ID

		_, err = s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: assetID,
			Splits:  []domain.Split{{CreatorID: bob, ShareBps: 10000}},
			ActorID: bob,
			Now:     baseTime.Add(time.Hour),
		})
		require.NoError(t, err)

		_, err = s.FlagDispute(ctx, FlagDisputeInput{
			RecordID: endedID, Reason: "historical share wrong", ActorID: bob, Now: baseTime.Add(2 * time.Hour),
		})
		require.NoError(t, err)

		resolved, err := s.ResolveDispute(ctx, ResolveDisputeInput{
			RecordID:        endedID,
			Action:          domain.DisputeActionModify,
			Correction:      &domain.DisputeCorrection{ShareBps: 7000},
			ResolutionNotes: "corrected per contract",
			ActorID:         admin,
			Now:             baseTime.Add(3 * time.Hour),
		})
		require.NoError(t, err)
		assert.EqualValues(t, 7000, resolved.Record.ShareBps)

		// the correction shows in time-travel reads of the ended period
		records, err := s.GetRecordsAt(ctx, assetID, baseTime.Add(30*time.Minute))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.EqualValues(t, 7000, records[0].ShareBps)
	})

	t.Run("ModifyRequiresCorrection", func(t *testing.T) {
		db, s := initFn(t)
		assetID := seedAsset(t, db)
		alice := seedCreator(t, db, false)
		admin := seedCreator(t, db, true)

		change, err := s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: assetID,
			Splits:  []domain.Split{{CreatorID: alice, ShareBps: 10000}},
			ActorID: alice,
			Now:     baseTime,
		})
		require.NoError(t, err)
		recordID := change.After[0].ID

		_, err = s.FlagDispute(ctx, FlagDisputeInput{
			RecordID: recordID, Reason: "contested", ActorID: alice, Now: baseTime.Add(time.Hour),
		})
		require.NoError(t, err)

		_, err = s.ResolveDispute(ctx, ResolveDisputeInput{
			RecordID: recordID,
			Action:   domain.DisputeActionModify,
			ActorID:  admin,
			Now:      baseTime.Add(2 * time.Hour),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidSplit)
	})

	t.Run("RemoveVacatesShare", func(t *testing.T) {
		db, s := initFn(t)
		assetID := seedAsset(t, db)
		alice := seedCreator(t, db, false)
		bob := seedCreator(t, db, false)
		admin := seedCreator(t, db, true)

		change, err := s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: assetID,
			Splits: []domain.Split{
				{CreatorID: alice, ShareBps: 6000},
				{CreatorID: bob, ShareBps: 4000},
			},
			ActorID: alice,
			Now:     baseTime,
		})
		require.NoError(t, err)

		var bobRecord schema.OwnershipRecord
		for _, r := range change.After {
			if r.CreatorID == bob {
				bobRecord = r
			}
		}

		_, err = s.FlagDispute(ctx, FlagDisputeInput{
			RecordID: bobRecord.ID, Reason: "fraudulent claim", ActorID: alice, Now: baseTime.Add(time.Hour),
		})
		require.NoError(t, err)

		removeAt := baseTime.Add(2 * time.Hour)
		resolved, err := s.ResolveDispute(ctx, ResolveDisputeInput{
			RecordID:        bobRecord.ID,
			Action:          domain.DisputeActionRemove,
			ResolutionNotes: "claim rejected",
			ActorID:         admin,
			Now:             removeAt,
		})
		require.NoError(t, err)
		require.NotNil(t, resolved.Record.EndDate)
		assert.True(t, resolved.Record.EndDate.Equal(removeAt))

		// the vacated share is not redistributed
		active, err := s.GetActiveRecords(ctx, assetID)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, alice, active[0].CreatorID)
		assert.EqualValues(t, 6000, totalBps(active))

		// a follow-up assignment restores full coverage
		_, err = s.SetOwnership(ctx, SetOwnershipInput{
			AssetID: assetID,
			Splits:  []domain.Split{{CreatorID: alice, ShareBps: 10000}},
			ActorID: admin,
			Now:     removeAt.Add(time.Hour),
		})
		require.NoError(t, err)

		active, err = s.GetActiveRecords(ctx, assetID)
		require.NoError(t, err)
		assert.EqualValues(t, 10000, totalBps(active))
	})

	t.Run("UnknownRecord", func(t *testing.T) {
		_, s := initFn(t)
		_, err := s.ResolveDispute(ctx, ResolveDisputeInput{
			RecordID: uuid.NewString(),
			Action:   domain.DisputeActionConfirm,
			ActorID:  uuid.NewString(),
			Now:      baseTime,
		})
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})
}

func testGetDisputedRecords(t *testing.T, initFn initTestDB) {
	ctx := context.Background()
	db, s := initFn(t)

	assetA := seedAsset(t, db)
	assetB := seedAsset(t, db)
	alice := seedCreator(t, db, false)
	bob := seedCreator(t, db, false)
	admin := seedCreator(t, db, true)

	changeA, err := s.SetOwnership(ctx, SetOwnershipInput{
		AssetID: assetA,
		Splits:  []domain.Split{{CreatorID: alice, ShareBps: 10000}},
		ActorID: alice,
		Now:     baseTime,
	})
	require.NoError(t, err)
	changeB, err := s.SetOwnership(ctx, SetOwnershipInput{
		AssetID: assetB,
		Splits:  []domain.Split{{CreatorID: bob, ShareBps: 10000}},
		ActorID: bob,
		Now:     baseTime,
	})
	require.NoError(t, err)

	recordA := changeA.After[0].ID
	recordB := changeB.After[0].ID

	_, err = s.FlagDispute(ctx, FlagDisputeInput{
		RecordID: recordA, Reason: "first", ActorID: bob, Now: baseTime.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = s.FlagDispute(ctx, FlagDisputeInput{
		RecordID: recordB, Reason: "second", ActorID: alice, Now: baseTime.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	// newest dispute first
	disputed, err := s.GetDisputedRecords(ctx, DisputeQueryFilter{})
	require.NoError(t, err)
	require.Len(t, disputed, 2)
	assert.Equal(t, recordB, disputed[0].ID)
	assert.Equal(t, recordA, disputed[1].ID)

	disputed, err = s.GetDisputedRecords(ctx, DisputeQueryFilter{AssetID: assetA})
	require.NoError(t, err)
	require.Len(t, disputed, 1)
	assert.Equal(t, recordA, disputed[0].ID)

	disputed, err = s.GetDisputedRecords(ctx, DisputeQueryFilter{CreatorID: bob})
	require.NoError(t, err)
	require.Len(t, disputed, 1)
	assert.Equal(t, recordB, disputed[0].ID)

	_, err = s.ResolveDispute(ctx, ResolveDisputeInput{
		RecordID:        recordA,
		Action:          domain.DisputeActionConfirm,
		ResolutionNotes: "fine",
		ActorID:         admin,
		Now:             baseTime.Add(3 * time.Hour),
	})
	require.NoError(t, err)

	// resolved disputes leave the default queue
	disputed, err = s.GetDisputedRecords(ctx, DisputeQueryFilter{})
	require.NoError(t, err)
	require.Len(t, disputed, 1)
	assert.Equal(t, recordB, disputed[0].ID)

	disputed, err = s.GetDisputedRecords(ctx, DisputeQueryFilter{IncludeResolved: true})
	require.NoError(t, err)
	assert.Len(t, disputed, 2)
}

func testUpdateProvenance(t *testing.T, initFn initTestDB) {
	ctx := context.Background()
	db, s := initFn(t)

	assetID := seedAsset(t, db)
	alice := seedCreator(t, db, false)

	change, err := s.SetOwnership(ctx, SetOwnershipInput{
		AssetID:           assetID,
		Splits:            []domain.Split{{CreatorID: alice, ShareBps: 10000}},
		ContractReference: strPtr("contract-001"),
		ActorID:           alice,
		Now:               baseTime,
	})
	require.NoError(t, err)
	recordID := change.After[0].ID

	updated, err := s.UpdateRecordProvenance(ctx, UpdateProvenanceInput{
		RecordID: recordID,
		Patch: domain.ProvenancePatch{
			ContractReference: strPtr("contract-002"),
			Notes:             strPtr("superseded agreement"),
		},
		ActorID: alice,
		Now:     baseTime.Add(time.Hour),
	})
	require.NoError(t, err)

	require.NotNil(t, updated.Before.ContractReference)
	assert.Equal(t, "contract-001", *updated.Before.ContractReference)
	require.NotNil(t, updated.Record.ContractReference)
	assert.Equal(t, "contract-002", *updated.Record.ContractReference)
	require.NotNil(t, updated.Record.Notes)
	assert.Equal(t, "superseded agreement", *updated.Record.Notes)
	// untouched field stays as it was
	assert.Nil(t, updated.Record.LegalDocURL)
	// share and validity are not reachable through this path
	assert.EqualValues(t, 10000, updated.Record.ShareBps)
	assert.Nil(t, updated.Record.EndDate)

	_, err = s.UpdateRecordProvenance(ctx, UpdateProvenanceInput{
		RecordID: uuid.NewString(),
		Patch:    domain.ProvenancePatch{Notes: strPtr("nothing here")},
		ActorID:  alice,
		Now:      baseTime,
	})
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func testAuditLog(t *testing.T, initFn initTestDB) {
	ctx := context.Background()
	db, s := initFn(t)

	assetID := seedAsset(t, db)
	ts := baseTime.Add(time.Hour)

	entry := &schema.AuditLog{
		ID:         ulid.MustNew(ulid.Timestamp(ts), ulid.DefaultEntropy()).String(),
		Action:     schema.AuditActionSetOwnership,
		EntityType: schema.AuditEntityTypeOwnership,
		AssetID:    assetID,
		Before:     datatypes.JSON([]byte(`[]`)),
		After:      datatypes.JSON([]byte(`[{"share_bps":10000}]`)),
		ActorID:    "service",
		Timestamp:  ts,
	}
	require.NoError(t, s.CreateAuditEntry(ctx, entry))

	var stored schema.AuditLog
	require.NoError(t, db.Where("id = ?", entry.ID).First(&stored).Error)
	assert.Equal(t, schema.AuditActionSetOwnership, stored.Action)
	assert.Equal(t, assetID, stored.AssetID)
	assert.Equal(t, "service", stored.ActorID)
	assert.True(t, stored.Timestamp.Equal(ts))
	assert.JSONEq(t, `[{"share_bps":10000}]`, string(stored.After))
}
