package ledger

import (
	"fmt"
	"sync/atomic"

	"multiverse.land/internal/persistence/snapshot"
)

type Zone struct {
	ZoneID   uint32
	Metadata string
}

type Tile struct {
	TokenID  uint64
	ZoneID   uint32
	X        int
	Y        int
	LandType int
	Owner    Address
}

// TileSpec is one premint coordinate request.
type TileSpec struct {
	X        int
	Y        int
	LandType int
}

type coordKey struct {
	ZoneID uint32
	X      int
	Y      int
}

// PaymentGateway is the narrow contract the marketplace has with the
// fungible payment token. TransferFrom moves owner funds to the spender
// and re-checks balance and allowance atomically on its own; the ledger
// never assumes its pre-checks make that call infallible.
type PaymentGateway interface {
	BalanceOf(addr Address) uint64
	Allowance(owner, spender Address) uint64
	Approve(owner, spender Address, amount uint64) error
	Transfer(from, to Address, amount uint64) error
	TransferFrom(owner, spender Address, amount uint64) error
}

// Minter is implemented by gateways that can issue supply (the
// in-process token does; a remote gateway would not).
type Minter interface {
	Mint(to Address, amount uint64) error
}

// TokenSnapshotter is implemented by gateways whose state belongs in
// ledger snapshots.
type TokenSnapshotter interface {
	ExportToken() snapshot.TokenV1
	ImportToken(snapshot.TokenV1) error
}

type Config struct {
	ID           string
	Deployer     Address
	Marketplace  Address
	PricePerTile uint64
	Wallets      []Address
}

// Ledger is the single-threaded authoritative registry and marketplace.
// All state must be accessed only from the loop goroutine (or, in tests,
// from a single goroutine calling the operation methods directly).
type Ledger struct {
	cfg Config

	seq atomic.Uint64

	roles     map[Role]map[Address]struct{}
	zones     map[uint32]*Zone
	zoneOrder []uint32

	tiles       map[uint64]*Tile
	zoneTiles   map[uint32][]uint64
	coords      map[coordKey]uint64
	nextTokenID uint64

	// operators[owner][operator]: owner-level bulk transfer delegation.
	operators map[Address]map[Address]bool

	pricePerTile uint64
	wallets      []Address

	gateway PaymentGateway

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	receiptLogger ReceiptLogger
	auditLogger   AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing is off-thread.
	snapshotSink  chan<- snapshot.StateV1
	snapshotEvery uint64

	inbox chan CallEnvelope
	stop  chan struct{}
}

func New(cfg Config, gateway PaymentGateway) (*Ledger, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("empty ledger id")
	}
	if !cfg.Deployer.Valid() {
		return nil, fmt.Errorf("bad deployer address: %q", cfg.Deployer)
	}
	if !cfg.Marketplace.Valid() {
		return nil, fmt.Errorf("bad marketplace address: %q", cfg.Marketplace)
	}
	if gateway == nil {
		return nil, fmt.Errorf("nil payment gateway")
	}
	for _, w := range cfg.Wallets {
		if !w.Valid() {
			return nil, fmt.Errorf("bad wallet address: %q", w)
		}
	}

	l := &Ledger{
		cfg:          cfg,
		roles:        map[Role]map[Address]struct{}{},
		zones:        map[uint32]*Zone{},
		tiles:        map[uint64]*Tile{},
		zoneTiles:    map[uint32][]uint64{},
		coords:       map[coordKey]uint64{},
		operators:    map[Address]map[Address]bool{},
		pricePerTile: cfg.PricePerTile,
		wallets:      append([]Address(nil), cfg.Wallets...),
		gateway:      gateway,
		inbox:        make(chan CallEnvelope, 1024),
		stop:         make(chan struct{}),
	}

	// Bootstrap grants, mirroring the deployment sequence: the deployer
	// is the implicit admin and holds every administrative role; the
	// marketplace identity gets CONTRACT so it may move unowned tiles.
	for _, r := range []Role{RoleAdmin, RoleDev, RoleMinter, RoleManager} {
		l.grant(r, cfg.Deployer)
	}
	l.grant(RoleContract, cfg.Marketplace)

	return l, nil
}

func (l *Ledger) ID() string           { return l.cfg.ID }
func (l *Ledger) Deployer() Address    { return l.cfg.Deployer }
func (l *Ledger) Marketplace() Address { return l.cfg.Marketplace }
func (l *Ledger) Seq() uint64          { return l.seq.Load() }

func (l *Ledger) SetReceiptLogger(rl ReceiptLogger) { l.receiptLogger = rl }
func (l *Ledger) SetAuditLogger(al AuditLogger)     { l.auditLogger = al }

// SetSnapshotSink arranges for a full state export to be sent every
// `every` committed operations. Zero disables periodic snapshots.
func (l *Ledger) SetSnapshotSink(ch chan<- snapshot.StateV1, every uint64) {
	l.snapshotSink = ch
	l.snapshotEvery = every
}

// Gateway exposes the payment gateway for read-only queries.
func (l *Ledger) Gateway() PaymentGateway { return l.gateway }
