package domain

// Actor identifies the caller of a ledger operation for authorization
// decisions and audit attribution. Authentication itself happens upstream;
// only the decision inputs are carried here.
type Actor struct {
	// ID is the caller's user/creator identifier
	ID string
	// Admin indicates the caller holds the admin role
	Admin bool
}

// Split is one entry of a proposed full ownership split for an asset
type Split struct {
	CreatorID string `json:"creator_id"`
	ShareBps  int32  `json:"share_bps"`
}

// DisputeCorrection is the payload of a MODIFY resolution. The share is
// the only record field a correction may change.
type DisputeCorrection struct {
	ShareBps int32 `json:"share_bps"`
}

// ProvenancePatch carries the only ownership-record fields that may be
// edited after creation outside the dispute-correction path.
type ProvenancePatch struct {
	ContractReference *string `json:"contract_reference,omitempty"`
	LegalDocURL       *string `json:"legal_doc_url,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p ProvenancePatch) Empty() bool {
	return p.ContractReference == nil && p.LegalDocURL == nil && p.Notes == nil
}
