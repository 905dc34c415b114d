package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-ip-ledger/internal/api/middleware"
	"github.com/feral-file/ff-ip-ledger/internal/api/rest/dto"
	"github.com/feral-file/ff-ip-ledger/internal/dispute"
	"github.com/feral-file/ff-ip-ledger/internal/domain"
	"github.com/feral-file/ff-ip-ledger/internal/ledger"
	"github.com/feral-file/ff-ip-ledger/internal/store"
	"github.com/feral-file/ff-ip-ledger/internal/store/schema"
)

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// SetOwnership replaces an asset's active ownership split
	// POST /api/v1/assets/:id/ownership
	SetOwnership(c *gin.Context)

	// TransferOwnership moves share between two creators
	// POST /api/v1/assets/:id/ownership/transfer
	TransferOwnership(c *gin.Context)

	// GetOwners returns the owner set active now or at ?at=<RFC3339>
	// GET /api/v1/assets/:id/owners
	GetOwners(c *gin.Context)

	// GetHistory returns the asset's full ownership history
	// GET /api/v1/assets/:id/ownership/history
	GetHistory(c *gin.Context)

	// GetSummary returns the per-creator share projection of the active set
	// GET /api/v1/assets/:id/ownership/summary
	GetSummary(c *gin.Context)

	// ValidateSplit dry-runs split validation
	// POST /api/v1/ownership/validate
	ValidateSplit(c *gin.Context)

	// FlagDispute opens a dispute on an ownership record
	// POST /api/v1/ownership/:id/dispute
	FlagDispute(c *gin.Context)

	// ResolveDispute closes a dispute (admin only)
	// POST /api/v1/ownership/:id/dispute/resolve
	ResolveDispute(c *gin.Context)

	// ListDisputes returns the dispute queue (admin only)
	// GET /api/v1/disputes?asset_id=<id>&creator_id=<id>&include_resolved=<bool>
	ListDisputes(c *gin.Context)

	// UpdateProvenance edits a record's provenance metadata
	// PATCH /api/v1/ownership/:id/provenance
	UpdateProvenance(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	ledger   ledger.Service
	disputes dispute.Workflow
}

// NewHandler creates a new REST API handler
func NewHandler(ledgerService ledger.Service, disputeWorkflow dispute.Workflow) Handler {
	return &handler{
		ledger:   ledgerService,
		disputes: disputeWorkflow,
	}
}

// provenanceFields are the only keys a provenance patch may carry
var provenanceFields = map[string]bool{
	"contract_reference": true,
	"legal_doc_url":      true,
	"notes":              true,
}

func requireActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return domain.Actor{}, false
	}
	return actor, true
}

// SetOwnership replaces the asset's active ownership split
func (h *handler) SetOwnership(c *gin.Context) {
	assetID := c.Param("id")
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.SetOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	records, err := h.ledger.SetAssetOwnership(c.Request.Context(), assetID, req.Splits, ledger.SetOwnershipParams{
		Type:              domain.OwnershipType(req.OwnershipType),
		ContractReference: req.ContractReference,
		LegalDocURL:       req.LegalDocURL,
		Notes:             req.Notes,
	}, actor)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.OwnershipRecordsResponse{Records: records})
}

// TransferOwnership moves share between two creators of the asset
func (h *handler) TransferOwnership(c *gin.Context) {
	assetID := c.Param("id")
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.ledger.TransferOwnership(c.Request.Context(), assetID, req.FromCreatorID, req.ToCreatorID, req.ShareBps, actor)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OwnershipRecordsResponse{Records: result.After})
}

// GetOwners returns the owner set active now, or at the ?at instant
func (h *handler) GetOwners(c *gin.Context) {
	assetID := c.Param("id")

	var at *time.Time
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondBadRequest(c, "Invalid 'at' timestamp, expected RFC3339", err.Error())
			return
		}
		at = &parsed
	}

	records, err := h.ledger.GetAssetOwners(c.Request.Context(), assetID, at)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if records == nil {
		records = []schema.OwnershipRecord{}
	}

	c.JSON(http.StatusOK, dto.OwnersResponse{AssetID: assetID, At: at, Records: records})
}

// GetHistory returns every ownership record of the asset
func (h *handler) GetHistory(c *gin.Context) {
	assetID := c.Param("id")

	records, err := h.ledger.GetOwnershipHistory(c.Request.Context(), assetID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OwnershipRecordsResponse{Records: records})
}

// GetSummary returns the per-creator projection of the active set
func (h *handler) GetSummary(c *gin.Context) {
	assetID := c.Param("id")

	summary, err := h.ledger.GetAssetOwnershipSummary(c.Request.Context(), assetID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ValidateSplit dry-runs split validation without touching the ledger
func (h *handler) ValidateSplit(c *gin.Context) {
	var req dto.ValidateSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	if err := h.ledger.ValidateOwnershipSplit(req.Splits); err != nil {
		c.JSON(http.StatusOK, dto.ValidateSplitResponse{Valid: false, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.ValidateSplitResponse{Valid: true})
}

// FlagDispute opens a dispute on an ownership record
func (h *handler) FlagDispute(c *gin.Context) {
	recordID := c.Param("id")
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.FlagDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	record, err := h.disputes.Flag(c.Request.Context(), dispute.FlagRequest{
		RecordID:            recordID,
		Reason:              req.Reason,
		SupportingDocuments: req.SupportingDocuments,
	}, actor)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ResolveDispute closes a dispute (admin only)
func (h *handler) ResolveDispute(c *gin.Context) {
	recordID := c.Param("id")
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	record, err := h.disputes.Resolve(c.Request.Context(), dispute.ResolveRequest{
		RecordID:        recordID,
		Action:          domain.DisputeAction(req.Action),
		ResolutionNotes: req.ResolutionNotes,
		Correction:      req.Correction,
	}, actor)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListDisputes returns the dispute queue (admin only)
func (h *handler) ListDisputes(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	filter := store.DisputeQueryFilter{
		AssetID:         c.Query("asset_id"),
		CreatorID:       c.Query("creator_id"),
		IncludeResolved: c.Query("include_resolved") == "true",
	}

	records, err := h.disputes.ListDisputed(c.Request.Context(), filter, actor)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OwnershipRecordsResponse{Records: records})
}

// UpdateProvenance edits a record's provenance metadata. The body is
// decoded as a raw map first so a patch naming any immutable field
// (share_bps, creator_id, dates) is rejected rather than ignored.
func (h *handler) UpdateProvenance(c *gin.Context) {
	recordID := c.Param("id")
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	for key := range raw {
		if !provenanceFields[key] {
			respondDomainError(c, fmt.Errorf("%w: %s", domain.ErrImmutableOwnership, key))
			return
		}
	}

	var patch domain.ProvenancePatch
	if err := bindPatchField(raw, "contract_reference", &patch.ContractReference); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := bindPatchField(raw, "legal_doc_url", &patch.LegalDocURL); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := bindPatchField(raw, "notes", &patch.Notes); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	record, err := h.ledger.UpdateRecordProvenance(c.Request.Context(), recordID, patch, actor)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func bindPatchField(raw map[string]json.RawMessage, key string, target **string) error {
	value, present := raw[key]
	if !present {
		return nil
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return fmt.Errorf("field %s must be a string: %w", key, err)
	}
	*target = &s
	return nil
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}
