package protocol

// Operation names carried by CALL messages.
const (
	OpGrantRole  = "GRANT_ROLE"
	OpRevokeRole = "REVOKE_ROLE"
	OpHasRole    = "HAS_ROLE"

	OpCreateZone = "CREATE_ZONE"
	OpListZones  = "LIST_ZONES"
	OpGetZone    = "GET_ZONE"

	OpPremintBatch        = "PREMINT_BATCH"
	OpTilesByZone         = "TILES_BY_ZONE"
	OpTilesByOwner        = "TILES_BY_OWNER"
	OpTilesByID           = "TILES_BY_ID"
	OpOwnerOf             = "OWNER_OF"
	OpTransferOwnership   = "TRANSFER_OWNERSHIP"
	OpSetOperatorApproval = "SET_OPERATOR_APPROVAL"

	OpSetPricePerTile = "SET_PRICE_PER_TILE"
	OpSetWallets      = "SET_WALLETS"
	OpBatchPurchase   = "BATCH_PURCHASE"
	OpWithdraw        = "WITHDRAW"

	OpBalanceOf = "BALANCE_OF"
	OpAllowance = "ALLOWANCE"
	OpApprove   = "APPROVE"
	OpTransfer  = "TRANSFER"
	OpMint      = "MINT"
)

var knownOps = map[string]struct{}{
	OpGrantRole:  {},
	OpRevokeRole: {},
	OpHasRole:    {},

	OpCreateZone: {},
	OpListZones:  {},
	OpGetZone:    {},

	OpPremintBatch:        {},
	OpTilesByZone:         {},
	OpTilesByOwner:        {},
	OpTilesByID:           {},
	OpOwnerOf:             {},
	OpTransferOwnership:   {},
	OpSetOperatorApproval: {},

	OpSetPricePerTile: {},
	OpSetWallets:      {},
	OpBatchPurchase:   {},
	OpWithdraw:        {},

	OpBalanceOf: {},
	OpAllowance: {},
	OpApprove:   {},
	OpTransfer:  {},
	OpMint:      {},
}

// IsKnownOp reports whether op is one of the operation names above.
func IsKnownOp(op string) bool {
	_, ok := knownOps[op]
	return ok
}

type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Address         string `json:"address,omitempty"` // 0x + 40 hex; generated when empty
}

type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	Address         string `json:"address"`
	LedgerID        string `json:"ledger_id"`
	Seq             uint64 `json:"seq"`
	PricePerTile    uint64 `json:"price_per_tile"`
}

// TileSpec is a premint coordinate request inside a zone.
type TileSpec struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	LandType int `json:"land_type"`
}

// CallMsg is a single operation request. Fields beyond ID/Op are
// per-operation and optional.
type CallMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Op              string `json:"op"`

	Role     string     `json:"role,omitempty"`
	Addr     string     `json:"addr,omitempty"`
	ZoneID   *uint32    `json:"zone_id,omitempty"`
	Metadata string     `json:"metadata,omitempty"`
	Tiles    []TileSpec `json:"tiles,omitempty"`
	TokenIDs []uint64   `json:"token_ids,omitempty"`
	TokenID  *uint64    `json:"token_id,omitempty"`
	To       string     `json:"to,omitempty"`
	Operator string     `json:"operator,omitempty"`
	Approved *bool      `json:"approved,omitempty"`
	Price    *uint64    `json:"price,omitempty"`
	Wallets  []string   `json:"wallets,omitempty"`
	Owner    string     `json:"owner,omitempty"`
	Spender  string     `json:"spender,omitempty"`
	Amount   *uint64    `json:"amount,omitempty"`
}

// TileInfo is the wire form of a registry tile.
type TileInfo struct {
	TokenID  uint64 `json:"token_id"`
	ZoneID   uint32 `json:"zone_id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	LandType int    `json:"land_type"`
	Owner    string `json:"owner"`
}

// TileLookup mirrors the found/not-found parallel arrays of the
// original registry lookups.
type TileLookup struct {
	TokenID uint64   `json:"token_id"`
	Found   bool     `json:"found"`
	Tile    TileInfo `json:"tile,omitempty"`
}

type ZoneInfo struct {
	ZoneID   uint32 `json:"zone_id"`
	Metadata string `json:"metadata"`
}

type PayoutInfo struct {
	Wallet string `json:"wallet"`
	Amount uint64 `json:"amount"`
}

// ReceiptInfo identifies one committed mutating operation.
type ReceiptInfo struct {
	Tx     string `json:"tx"` // 0x + 64 hex
	Seq    uint64 `json:"seq"`
	Op     string `json:"op"`
	Actor  string `json:"actor"`

	TokenIDs []uint64     `json:"token_ids,omitempty"`
	Total    uint64       `json:"total,omitempty"`
	Payouts  []PayoutInfo `json:"payouts,omitempty"`
}

type ResultMsg struct {
	Type string `json:"type"`
	Ref  string `json:"ref"`
	OK   bool   `json:"ok"`
	Code string `json:"code,omitempty"`
	Msg  string `json:"msg,omitempty"`

	Receipt *ReceiptInfo `json:"receipt,omitempty"`

	// Query payloads.
	Zones     []ZoneInfo   `json:"zones,omitempty"`
	Zone      *ZoneInfo    `json:"zone,omitempty"`
	Tiles     []TileInfo   `json:"tiles,omitempty"`
	Lookups   []TileLookup `json:"lookups,omitempty"`
	Owner     string       `json:"owner,omitempty"`
	HasRole   *bool        `json:"has_role,omitempty"`
	Balance   *uint64      `json:"balance,omitempty"`
	Allowance *uint64      `json:"allowance,omitempty"`
}
