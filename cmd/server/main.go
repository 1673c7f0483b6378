package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"multiverse.land/internal/config"
	"multiverse.land/internal/ledger"
	"multiverse.land/internal/persistence/indexdb"
	persistlog "multiverse.land/internal/persistence/log"
	"multiverse.land/internal/persistence/snapshot"
	"multiverse.land/internal/protocol"
	"multiverse.land/internal/token"
	"multiverse.land/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configPath = flag.String("config", "./configs/market.yaml", "market config path")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		schemasDir = flag.String("schemas", "./schemas", "message schema directory (empty to disable validation)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ledgerDir := filepath.Join(*dataDir, "ledgers", cfg.LedgerID)
	_ = os.MkdirAll(filepath.Join(ledgerDir, "snapshots"), 0o755)

	// Optional: read-model index (does not affect ledger determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(ledgerDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
	} else {
		logger.Printf("index db disabled")
	}

	policy, okPolicy := token.ParsePolicy(cfg.AllowancePolicy)
	if !okPolicy {
		logger.Fatalf("bad allowance policy %q", cfg.AllowancePolicy)
	}
	tok := token.New("Multiverse", policy)

	wallets := make([]ledger.Address, 0, len(cfg.Wallets))
	for _, w := range cfg.Wallets {
		wallets = append(wallets, ledger.Address(w))
	}
	l, err := ledger.New(ledger.Config{
		ID:           cfg.LedgerID,
		Deployer:     ledger.Address(cfg.Deployer),
		Marketplace:  ledger.Address(cfg.Marketplace),
		PricePerTile: cfg.PricePerTile,
		Wallets:      wallets,
	}, tok)
	if err != nil {
		logger.Fatalf("ledger: %v", err)
	}

	receiptLog := persistlog.NewJSONLZstdWriter(ledgerDir, "receipts")
	auditLog := persistlog.NewJSONLZstdWriter(ledgerDir, "audits")
	defer receiptLog.Close()
	defer auditLog.Close()
	if idx != nil {
		l.SetReceiptLogger(multiReceiptLogger{a: persistlog.ReceiptJournal{W: receiptLog}, b: idx})
		l.SetAuditLogger(multiAuditLogger{a: persistlog.AuditJournal{W: auditLog}, b: idx})
	} else {
		l.SetReceiptLogger(persistlog.ReceiptJournal{W: receiptLog})
		l.SetAuditLogger(persistlog.AuditJournal{W: auditLog})
	}

	// Resume from snapshot, or bootstrap a fresh ledger from config.
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(ledgerDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot %s: %v", snapshotToLoad, err)
		}
		if err := l.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot %s: %v", snapshotToLoad, err)
		}
		logger.Printf("resumed from %s (seq=%d)", snapshotToLoad, l.Seq())
	} else {
		if err := bootstrap(l, cfg); err != nil {
			logger.Fatalf("bootstrap: %v", err)
		}
		logger.Printf("fresh ledger %s (deployer=%s price=%d)", cfg.LedgerID, cfg.Deployer, cfg.PricePerTile)
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Snapshot writer.
	snapCh := make(chan snapshot.StateV1, 2)
	l.SetSnapshotSink(snapCh, cfg.SnapshotEveryOps)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(ledgerDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Seq))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	go func() {
		if err := l.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("ledger stopped: %v", err)
		}
	}()

	wsSrv := ws.NewServer(l, logger)
	if dir := strings.TrimSpace(*schemasDir); dir != "" {
		schemas, err := protocol.CompileDir(dir)
		if err != nil {
			logger.Fatalf("compile schemas: %v", err)
		}
		wsSrv.SetSchemas(schemas)
	} else {
		logger.Printf("schema validation disabled")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP multiverse_ledger_seq Last committed operation sequence number.\n")
		fmt.Fprintf(rw, "# TYPE multiverse_ledger_seq gauge\n")
		fmt.Fprintf(rw, "multiverse_ledger_seq{ledger=%q} %d\n", cfg.LedgerID, l.Seq())

		fmt.Fprintf(rw, "# HELP multiverse_inbox_depth Pending operations in the ledger inbox.\n")
		fmt.Fprintf(rw, "# TYPE multiverse_inbox_depth gauge\n")
		fmt.Fprintf(rw, "multiverse_inbox_depth{ledger=%q} %d\n", cfg.LedgerID, len(l.Inbox()))
	})
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			LedgerID   string `json:"ledger_id"`
			Seq        uint64 `json:"seq"`
			InboxDepth int    `json:"inbox_depth"`
		}{
			LedgerID:   cfg.LedgerID,
			Seq:        l.Seq(),
			InboxDepth: len(l.Inbox()),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// bootstrap replays the deployment sequence on a fresh ledger: extra
// role grants and the initial token supply, acting as the deployer.
func bootstrap(l *ledger.Ledger, cfg config.Config) error {
	deployer := l.Deployer()
	for _, op := range cfg.Operators {
		for _, rs := range op.Roles {
			role, ok := ledger.ParseRole(rs)
			if !ok {
				return fmt.Errorf("operator %s: unknown role %q", op.Addr, rs)
			}
			if _, err := l.GrantRole(deployer, role, ledger.Address(op.Addr)); err != nil {
				return fmt.Errorf("grant %s to %s: %w", rs, op.Addr, err)
			}
		}
	}
	for _, m := range cfg.Mint {
		if _, err := l.Mint(deployer, ledger.Address(m.Addr), m.Amount); err != nil {
			return fmt.Errorf("mint %d to %s: %w", m.Amount, m.Addr, err)
		}
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(ledgerDir string) string {
	dir := filepath.Join(ledgerDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestSeq uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		seq, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || seq > bestSeq {
			bestSeq = seq
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type multiReceiptLogger struct {
	a ledger.ReceiptLogger
	b ledger.ReceiptLogger
}

func (m multiReceiptLogger) WriteReceipt(entry ledger.ReceiptEntry) error {
	if m.a != nil {
		_ = m.a.WriteReceipt(entry)
	}
	if m.b != nil {
		_ = m.b.WriteReceipt(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a ledger.AuditLogger
	b ledger.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry ledger.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
