package domain

// TotalShareBps is the full ownership of an asset expressed in basis points.
// Active shares for an asset must always sum to exactly this value.
const TotalShareBps = 10000

// OwnershipType classifies how a creator came to hold a share.
// It is metadata only and never affects invariant enforcement.
type OwnershipType string

const (
	OwnershipTypePrimary     OwnershipType = "primary"
	OwnershipTypeContributor OwnershipType = "contributor"
	OwnershipTypeDerivative  OwnershipType = "derivative"
	OwnershipTypeTransferred OwnershipType = "transferred"
)

// Valid reports whether the ownership type is one of the known values
func (t OwnershipType) Valid() bool {
	switch t {
	case OwnershipTypePrimary, OwnershipTypeContributor, OwnershipTypeDerivative, OwnershipTypeTransferred:
		return true
	}
	return false
}

// DisputeAction is the admin's decision when resolving a dispute
type DisputeAction string

const (
	// DisputeActionConfirm upholds the record as-is
	DisputeActionConfirm DisputeAction = "confirm"
	// DisputeActionModify corrects the record's share in place (data-entry fix)
	DisputeActionModify DisputeAction = "modify"
	// DisputeActionRemove ends the record without redistributing its share
	DisputeActionRemove DisputeAction = "remove"
)

// Valid reports whether the dispute action is one of the known values
func (a DisputeAction) Valid() bool {
	switch a {
	case DisputeActionConfirm, DisputeActionModify, DisputeActionRemove:
		return true
	}
	return false
}

// DisputeState is the lifecycle position of a record's dispute
type DisputeState string

const (
	DisputeStateClean    DisputeState = "clean"
	DisputeStateDisputed DisputeState = "disputed"
	DisputeStateResolved DisputeState = "resolved"
)
