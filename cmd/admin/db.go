package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	ledgerID := fs.String("ledger", "", "ledger id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	actor := fs.String("actor", "", "actor filter (receipts, audits)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*ledgerID) == "" {
			fmt.Fprintln(os.Stderr, "missing -ledger or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "ledgers", *ledgerID, "index.db")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT seq,path,zones,tiles,roles,recorded_at FROM snapshots ORDER BY seq DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Seq        int64  `json:"seq"`
				Path       string `json:"path"`
				Zones      int    `json:"zones"`
				Tiles      int    `json:"tiles"`
				Roles      int    `json:"roles"`
				RecordedAt string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.Seq, &r.Path, &r.Zones, &r.Tiles, &r.Roles, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "receipts":
		query := `SELECT seq,tx,actor,op,details_json,recorded_at FROM receipts ORDER BY seq DESC LIMIT ?`
		qargs := []any{*limit}
		if strings.TrimSpace(*actor) != "" {
			query = `SELECT seq,tx,actor,op,details_json,recorded_at FROM receipts WHERE actor=? ORDER BY seq DESC LIMIT ?`
			qargs = []any{strings.ToLower(strings.TrimSpace(*actor)), *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Seq         int64  `json:"seq"`
				Tx          string `json:"tx"`
				Actor       string `json:"actor"`
				Op          string `json:"op"`
				DetailsJSON string `json:"details_json"`
				RecordedAt  string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.Seq, &r.Tx, &r.Actor, &r.Op, &r.DetailsJSON, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "audits":
		query := `SELECT seq,attempt,actor,op,ok,code,reason FROM audits ORDER BY seq DESC, attempt DESC LIMIT ?`
		qargs := []any{*limit}
		if strings.TrimSpace(*actor) != "" {
			query = `SELECT seq,attempt,actor,op,ok,code,reason FROM audits WHERE actor=? ORDER BY seq DESC, attempt DESC LIMIT ?`
			qargs = []any{strings.ToLower(strings.TrimSpace(*actor)), *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Seq     int64          `json:"seq"`
				Attempt int64          `json:"attempt"`
				Actor   string         `json:"actor"`
				Op      string         `json:"op"`
				OK      bool           `json:"ok"`
				Code    sql.NullString `json:"-"`
				Reason  sql.NullString `json:"-"`
			}
			if err := rows.Scan(&r.Seq, &r.Attempt, &r.Actor, &r.Op, &r.OK, &r.Code, &r.Reason); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(struct {
				Seq     int64  `json:"seq"`
				Attempt int64  `json:"attempt"`
				Actor   string `json:"actor"`
				Op      string `json:"op"`
				OK      bool   `json:"ok"`
				Code    string `json:"code,omitempty"`
				Reason  string `json:"reason,omitempty"`
			}{r.Seq, r.Attempt, r.Actor, r.Op, r.OK, r.Code.String, r.Reason.String})
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "ops":
		rows, err := db.Query(`SELECT op, COUNT(*) FROM receipts GROUP BY op ORDER BY COUNT(*) DESC`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Op    string `json:"op"`
				Count int64  `json:"count"`
			}
			if err := rows.Scan(&r.Op, &r.Count); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-ledger ID|-db PATH] [-actor ADDR] [-limit N] snapshots|receipts|audits|ops")
		os.Exit(2)
	}
}
