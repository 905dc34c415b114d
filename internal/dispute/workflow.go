// Package dispute implements the dispute lifecycle on ownership records:
// flagging by a creator or admin, admin-only resolution, and the dispute
// queue. A record moves clean -> disputed -> resolved; resolved is
// terminal.
package dispute

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-ip-ledger/internal/adapter"
	"github.com/feral-file/ff-ip-ledger/internal/cache"
	"github.com/feral-file/ff-ip-ledger/internal/domain"
	"github.com/feral-file/ff-ip-ledger/internal/gateway"
	"github.com/feral-file/ff-ip-ledger/internal/logger"
	"github.com/feral-file/ff-ip-ledger/internal/store"
	"github.com/feral-file/ff-ip-ledger/internal/store/schema"
)

// FlagRequest opens a dispute on an ownership record
type FlagRequest struct {
	RecordID string
	Reason   string
	// SupportingDocuments are forwarded to stakeholders, not persisted
	SupportingDocuments []string
}

// ResolveRequest closes a dispute with one of CONFIRM/MODIFY/REMOVE
type ResolveRequest struct {
	RecordID        string
	Action          domain.DisputeAction
	ResolutionNotes string
	// Correction is required for MODIFY and forbidden otherwise
	Correction *domain.DisputeCorrection
}

// Workflow is the dispute lifecycle surface
//
//go:generate mockgen -source=workflow.go -destination=../mocks/dispute_workflow.go -package=mocks -mock_names=Workflow=MockDisputeWorkflow
type Workflow interface {
	// Flag marks a record disputed. Allowed for admins and the record's
	// own creator.
	Flag(ctx context.Context, req FlagRequest, actor domain.Actor) (*schema.OwnershipRecord, error)
	// Resolve closes a dispute. Admin only.
	Resolve(ctx context.Context, req ResolveRequest, actor domain.Actor) (*schema.OwnershipRecord, error)
	// ListDisputed returns the dispute queue. Admin only.
	ListDisputed(ctx context.Context, filter store.DisputeQueryFilter, actor domain.Actor) ([]schema.OwnershipRecord, error)
}

type workflow struct {
	store    store.Store
	cache    cache.OwnersCache
	audit    gateway.Audit
	notifier gateway.Notifier
	clock    adapter.Clock
}

// NewWorkflow creates the dispute workflow with explicit collaborators
func NewWorkflow(s store.Store, c cache.OwnersCache, a gateway.Audit, n gateway.Notifier, clock adapter.Clock) Workflow {
	return &workflow{store: s, cache: c, audit: a, notifier: n, clock: clock}
}

// Flag marks a record disputed. A disputed record stays active and keeps
// counting toward the asset's total; the flag is a signal, not a freeze.
// Unauthorized callers get a generic denial that does not reveal whether
// the record exists.
func (w *workflow) Flag(ctx context.Context, req FlagRequest, actor domain.Actor) (*schema.OwnershipRecord, error) {
	if req.Reason == "" {
		return nil, fmt.Errorf("%w: dispute reason is required", domain.ErrInvalidRequest)
	}

	record, err := w.store.GetRecordByID(ctx, req.RecordID)
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

	now := w.clock.Now()
	change, err := w.store.FlagDispute(ctx, store.FlagDisputeInput{
		RecordID: req.RecordID,
		Reason:   req.Reason,
		ActorID:  actor.ID,
		Now:      now,
	})
	if err != nil {
		return nil, err
	}

	w.recordAudit(ctx, gateway.AuditEvent{
		Action:    schema.AuditActionFlagDispute,
		AssetID:   change.Record.AssetID,
		Before:    change.Before,
		After:     change.Record,
		ActorID:   actor.ID,
		Timestamp: now,
	})

	payload := map[string]interface{}{
		"record_id":  change.Record.ID,
		"asset_id":   change.Record.AssetID,
		"creator_id": change.Record.CreatorID,
		"reason":     req.Reason,
	}
	if len(req.SupportingDocuments) > 0 {
		payload["supporting_documents"] = req.SupportingDocuments
	}
	w.notifyStakeholders(ctx, &change.Record, gateway.TemplateDisputeFlagged, payload)

	return &change.Record, nil
}

// Resolve closes a dispute with the chosen action. CONFIRM keeps the
// record as-is, MODIFY applies a corrected share after re-checking both
// ownership invariants, REMOVE ends the record without redistributing its
// share. Resolution is terminal.
func (w *workflow) Resolve(ctx context.Context, req ResolveRequest, actor domain.Actor) (*schema.OwnershipRecord, error) {
	if !actor.Admin {
		return nil, domain.ErrNotAuthorized
	}
	if !req.Action.Valid() {
		return nil, fmt.Errorf("%w: unknown resolution action %q", domain.ErrInvalidRequest, req.Action)
	}
	if req.Action == domain.DisputeActionModify && req.Correction == nil {
		return nil, fmt.Errorf("%w: MODIFY resolution requires a correction", domain.ErrInvalidRequest)
	}
	if req.Action != domain.DisputeActionModify && req.Correction != nil {
		return nil, fmt.Errorf("%w: correction is only valid with MODIFY", domain.ErrInvalidRequest)
	}

	now := w.clock.Now()
	change, err := w.store.ResolveDispute(ctx, store.ResolveDisputeInput{
		RecordID:        req.RecordID,
		Action:          req.Action,
		ResolutionNotes: req.ResolutionNotes,
		Correction:      req.Correction,
		ActorID:         actor.ID,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}

	// MODIFY and REMOVE change the asset's active set
	if req.Action != domain.DisputeActionConfirm {
		if err := w.cache.Invalidate(ctx, change.Record.AssetID); err != nil {
			return nil, err
		}
	}

	w.recordAudit(ctx, gateway.AuditEvent{
		Action:    schema.AuditActionResolveDispute,
		AssetID:   change.Record.AssetID,
		Before:    change.Before,
		After:     change.Record,
		ActorID:   actor.ID,
		Timestamp: now,
	})

	payload := map[string]interface{}{
		"record_id":  change.Record.ID,
		"asset_id":   change.Record.AssetID,
		"creator_id": change.Record.CreatorID,
		"action":     string(req.Action),
	}
	if req.ResolutionNotes != "" {
		payload["resolution_notes"] = req.ResolutionNotes
	}
	if req.Action == domain.DisputeActionRemove {
		if total, err := w.activeTotal(ctx, change.Record.AssetID); err == nil {
			payload["remaining_total_bps"] = total
		}
	}
	w.notifyStakeholders(ctx, &change.Record, gateway.TemplateDisputeResolved, payload)

	return &change.Record, nil
}

// ListDisputed returns the dispute queue, open disputes first
func (w *workflow) ListDisputed(ctx context.Context, filter store.DisputeQueryFilter, actor domain.Actor) ([]schema.OwnershipRecord, error) {
	if !actor.Admin {
		return nil, domain.ErrNotAuthorized
	}
	return w.store.GetDisputedRecords(ctx, filter)
}

// notifyStakeholders delivers a high-priority notification to the
// disputed record's creator, the asset's co-owners and every admin.
// Delivery failures are logged; the dispute state change already
// committed.
func (w *workflow) notifyStakeholders(ctx context.Context, record *schema.OwnershipRecord, template gateway.NotificationTemplate, payload map[string]interface{}) {
	recipients := []gateway.Recipient{{UserID: record.CreatorID, Role: "creator"}}
	seen := map[string]bool{record.CreatorID: true}

	coOwners, err := w.store.GetActiveRecords(ctx, record.AssetID)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to list co-owners for dispute notification",
			zap.String("asset_id", record.AssetID), zap.Error(err))
	}
	for _, owner := range coOwners {
		if seen[owner.CreatorID] {
			continue
		}
		seen[owner.CreatorID] = true
		recipients = append(recipients, gateway.Recipient{UserID: owner.CreatorID, Role: "co_owner"})
	}

	admins, err := w.store.ListAdmins(ctx)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to list admins for dispute notification", zap.Error(err))
	}
	for _, admin := range admins {
		if seen[admin.ID] {
			continue
		}
		seen[admin.ID] = true
		recipients = append(recipients, gateway.Recipient{UserID: admin.ID, Role: "admin"})
	}

	if err := w.notifier.Notify(ctx, recipients, template, gateway.PriorityHigh, payload); err != nil {
		logger.WarnCtx(ctx, "Dispute notification failed",
			zap.String("record_id", record.ID), zap.Error(err))
	}
}

func (w *workflow) activeTotal(ctx context.Context, assetID string) (int64, error) {
	records, err := w.store.GetActiveRecords(ctx, assetID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, record := range records {
		total += int64(record.ShareBps)
	}
	return total, nil
}

func (w *workflow) recordAudit(ctx context.Context, event gateway.AuditEvent) {
	if err := w.audit.Record(ctx, event); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("asset_id", event.AssetID),
			zap.String("action", string(event.Action)))
	}
}
