package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Authorization.
	ErrUnauthorized = "E_UNAUTHORIZED"

	// Not-found family.
	ErrZoneNotFound = "E_ZONE_NOT_FOUND"
	ErrUnknownTile  = "E_UNKNOWN_TILE"

	// Conflict family.
	ErrDuplicateZone    = "E_DUPLICATE_ZONE"
	ErrDuplicateTile    = "E_DUPLICATE_TILE"
	ErrDuplicateInBatch = "E_DUPLICATE_IN_BATCH"
	ErrTileAlreadySold  = "E_TILE_ALREADY_SOLD"

	// Funds family.
	ErrInsufficientFunds     = "E_INSUFFICIENT_FUNDS"
	ErrInsufficientAllowance = "E_INSUFFICIENT_ALLOWANCE"
	ErrTransferRejected      = "E_TRANSFER_REJECTED"
	ErrPriceOverflow         = "E_PRICE_OVERFLOW"

	// Treasury.
	ErrNothingToWithdraw = "E_NOTHING_TO_WITHDRAW"

	// Request/operation layer.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:       {},
	ErrUnauthorized:          {},
	ErrZoneNotFound:          {},
	ErrUnknownTile:           {},
	ErrDuplicateZone:         {},
	ErrDuplicateTile:         {},
	ErrDuplicateInBatch:      {},
	ErrTileAlreadySold:       {},
	ErrInsufficientFunds:     {},
	ErrInsufficientAllowance: {},
	ErrTransferRejected:      {},
	ErrPriceOverflow:         {},
	ErrNothingToWithdraw:     {},
	ErrBadRequest:            {},
	ErrInternal:              {},
}

func IsKnownCode(code string) bool {
	_, ok := knownCodes[code]
	return ok
}
