package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"multiverse.land/internal/ledger"
	"multiverse.land/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "journal":
			journalCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	ledgerID := fs.String("ledger", "", "ledger id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "ledgers")
	if *ledgerID != "" {
		base = filepath.Join(base, *ledgerID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	ledgerID := fs.String("ledger", "", "ledger id")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	full := fs.Bool("full", false, "dump the full state, not just the summary")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*ledgerID) == "" {
			fmt.Fprintln(os.Stderr, "missing -ledger or -snapshot")
			os.Exit(2)
		}
		path = latestSnapshot(filepath.Join(*dataDir, "ledgers", *ledgerID))
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run server until it writes one")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	if *full {
		printJSON(snap)
		return
	}

	sold := 0
	for _, t := range snap.Tiles {
		if t.Owner != string(ledger.ZeroAddress) {
			sold++
		}
	}
	printJSON(struct {
		Path         string `json:"path"`
		LedgerID     string `json:"ledger_id"`
		Seq          uint64 `json:"seq"`
		PricePerTile uint64 `json:"price_per_tile"`
		Zones        int    `json:"zones"`
		Tiles        int    `json:"tiles"`
		Sold         int    `json:"sold"`
		Roles        int    `json:"roles"`
		Wallets      int    `json:"wallets"`
		HasToken     bool   `json:"has_token"`
	}{
		Path:         filepath.Base(path),
		LedgerID:     snap.Header.LedgerID,
		Seq:          snap.Header.Seq,
		PricePerTile: snap.PricePerTile,
		Zones:        len(snap.Zones),
		Tiles:        len(snap.Tiles),
		Sold:         sold,
		Roles:        len(snap.Roles),
		Wallets:      len(snap.Wallets),
		HasToken:     snap.Token != nil,
	})
}

func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	ledgerID := fs.String("ledger", "", "ledger id")
	kind := fs.String("kind", "receipts", "journal kind: receipts|audits")
	actor := fs.String("actor", "", "actor filter (optional)")
	op := fs.String("op", "", "op filter (optional)")
	sinceSeq := fs.Uint64("since_seq", 0, "minimum seq (inclusive)")
	toSeq := fs.Uint64("to_seq", 0, "maximum seq (inclusive; 0 = unbounded)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*ledgerID) == "" {
		fmt.Fprintln(os.Stderr, "missing -ledger")
		os.Exit(2)
	}
	if *kind != "receipts" && *kind != "audits" {
		fmt.Fprintln(os.Stderr, "bad -kind: want receipts or audits")
		os.Exit(2)
	}

	ledgerDir := filepath.Join(*dataDir, "ledgers", *ledgerID)
	err := scanJournal(ledgerDir, *kind, func(raw []byte) error {
		var e struct {
			Seq   uint64 `json:"seq"`
			Actor string `json:"actor"`
			Op    string `json:"op"`
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		if e.Seq < *sinceSeq {
			return nil
		}
		if *toSeq != 0 && e.Seq > *toSeq {
			return nil
		}
		if *actor != "" && !strings.EqualFold(e.Actor, *actor) {
			return nil
		}
		if *op != "" && !strings.EqualFold(e.Op, *op) {
			return nil
		}
		fmt.Println(string(raw))
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}
}

// scanJournal streams every record of the hour-rotated zstd journals
// in chronological file order.
func scanJournal(ledgerDir, prefix string, fn func(raw []byte) error) error {
	ents, err := os.ReadDir(ledgerDir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(ledgerDir, name)
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return err
		}
		sc := bufio.NewScanner(dec)
		sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			if err := fn(line); err != nil {
				dec.Close()
				_ = f.Close()
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
		}
		if err := sc.Err(); err != nil {
			dec.Close()
			_ = f.Close()
			return err
		}
		dec.Close()
		_ = f.Close()
	}
	return nil
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

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
