// Command replay verifies a ledger's persisted record: the receipt
// journal must be a gapless, strictly increasing sequence of
// well-formed entries, and when a snapshot is given its seq must be
// covered by the journal.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"multiverse.land/internal/ledger"
	"multiverse.land/internal/persistence/snapshot"
	"multiverse.land/internal/protocol"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory")
		ledgerID = flag.String("ledger", "", "ledger id")
		snapPath = flag.String("snapshot", "", "snapshot to cross-check (optional)")
	)
	flag.Parse()

	if strings.TrimSpace(*ledgerID) == "" {
		fmt.Fprintln(os.Stderr, "missing -ledger")
		os.Exit(2)
	}
	ledgerDir := filepath.Join(*dataDir, "ledgers", *ledgerID)

	var (
		count   int
		lastSeq uint64
		gaps    int
		badTx   int
	)
	err := scanJournal(ledgerDir, "receipts", func(raw []byte) error {
		var e ledger.ReceiptEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		count++
		if lastSeq != 0 && e.Seq != lastSeq+1 {
			gaps++
			fmt.Printf("gap: seq %d follows %d\n", e.Seq, lastSeq)
		}
		if !ledger.TxHash(e.Tx).Valid() {
			badTx++
			fmt.Printf("bad tx at seq %d: %q\n", e.Seq, e.Tx)
		}
		if !protocol.IsKnownOp(e.Op) {
			fmt.Printf("unknown op at seq %d: %q\n", e.Seq, e.Op)
		}
		lastSeq = e.Seq
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}

	fmt.Printf("journal ok: entries=%d last_seq=%d gaps=%d bad_tx=%d\n", count, lastSeq, gaps, badTx)

	if strings.TrimSpace(*snapPath) == "" {
		return
	}
	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if snap.Header.LedgerID != *ledgerID {
		fmt.Fprintf(os.Stderr, "snapshot ledger %q does not match -ledger %q\n", snap.Header.LedgerID, *ledgerID)
		os.Exit(1)
	}
	status := "covered"
	if snap.Header.Seq > lastSeq {
		status = "AHEAD OF JOURNAL"
	}
	fmt.Printf("snapshot seq=%d zones=%d tiles=%d: %s\n", snap.Header.Seq, len(snap.Zones), len(snap.Tiles), status)
	if status != "covered" {
		os.Exit(1)
	}
}

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
			if err := fn(sc.Bytes()); err != nil {
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
