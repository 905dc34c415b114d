// Package dto holds the REST API request and response shapes
package dto

import (
	"time"

	"github.com/feral-file/ff-ip-ledger/internal/domain"
	"github.com/feral-file/ff-ip-ledger/internal/store/schema"
)

// SetOwnershipRequest is the body of POST /assets/:id/ownership
type SetOwnershipRequest struct {
	Splits            []domain.Split `json:"splits" binding:"required"`
	OwnershipType     string         `json:"ownership_type"`
	ContractReference *string        `json:"contract_reference"`
	LegalDocURL       *string        `json:"legal_doc_url"`
	Notes             *string        `json:"notes"`
}

// TransferRequest is the body of POST /assets/:id/ownership/transfer
type TransferRequest struct {
	FromCreatorID string `json:"from_creator_id" binding:"required"`
	ToCreatorID   string `json:"to_creator_id" binding:"required"`
	ShareBps      int32  `json:"share_bps" binding:"required"`
}

// ValidateSplitRequest is the body of POST /ownership/validate
type ValidateSplitRequest struct {
	Splits []domain.Split `json:"splits" binding:"required"`
}

// ValidateSplitResponse reports the dry-run outcome
type ValidateSplitResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// FlagDisputeRequest is the body of POST /ownership/:id/dispute
type FlagDisputeRequest struct {
	Reason              string   `json:"reason" binding:"required"`
	SupportingDocuments []string `json:"supporting_documents"`
}

// ResolveDisputeRequest is the body of POST /ownership/:id/dispute/resolve
type ResolveDisputeRequest struct {
	Action          string                    `json:"action" binding:"required"`
	ResolutionNotes string                    `json:"resolution_notes"`
	Correction      *domain.DisputeCorrection `json:"correction"`
}

// OwnershipRecordsResponse wraps a list of ownership records
type OwnershipRecordsResponse struct {
	Records []schema.OwnershipRecord `json:"records"`
}

// OwnersResponse is the active-or-historical owner set of an asset
type OwnersResponse struct {
	AssetID string                   `json:"asset_id"`
	At      *time.Time               `json:"at,omitempty"`
	Records []schema.OwnershipRecord `json:"records"`
}

// HealthResponse is the health check response
type HealthResponse struct {
	Status string `json:"status"`
}
