package domain

import "errors"

var (
	// ErrInvalidSplit is returned when a proposed ownership split fails
	// validation (empty, non-positive share, duplicate creator, sum != 10000)
	ErrInvalidSplit = errors.New("invalid ownership split")

	// ErrInvalidRequest is returned when a request fails validation outside
	// split checking (bad enum value, missing required field)
	ErrInvalidRequest = errors.New("invalid request")

	// ErrOwnershipConflict is returned when a mutation would push some time
	// segment's active shares above 10000 bps
	ErrOwnershipConflict = errors.New("temporal ownership conflict")

	// ErrInsufficientOwnership is returned when a transfer exceeds the
	// donor's active share
	ErrInsufficientOwnership = errors.New("insufficient ownership share")

	// ErrAssetNotFound is returned when the target asset does not exist
	ErrAssetNotFound = errors.New("asset not found")

	// ErrCreatorNotFound is returned when a referenced creator does not exist
	ErrCreatorNotFound = errors.New("creator not found")

	// ErrRecordNotFound is returned when an ownership record does not exist
	ErrRecordNotFound = errors.New("ownership record not found")

	// ErrImmutableOwnership is returned on an attempted mutation of a field
	// the append-only model forbids changing
	ErrImmutableOwnership = errors.New("ownership record field is immutable")

	// ErrNotAuthorized is returned when the actor may not perform the
	// operation. The message never reveals whether the target exists.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrAlreadyDisputed is returned when flagging a record that already has
	// an open dispute
	ErrAlreadyDisputed = errors.New("ownership record already disputed")

	// ErrDisputeResolved is returned when flagging a record whose dispute
	// was already resolved; resolved is terminal
	ErrDisputeResolved = errors.New("ownership dispute already resolved")

	// ErrNotDisputed is returned when resolving a record that has no open
	// dispute
	ErrNotDisputed = errors.New("ownership record is not disputed")
)
