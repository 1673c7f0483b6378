// Command bot is a scripted marketplace client: it connects, approves
// the marketplace for an allowance, and buys the given tiles in one
// atomic batch. Useful for smoke-testing a running server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"multiverse.land/internal/protocol"
)

func main() {
	var (
		url         = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		address     = flag.String("address", "", "buyer address (0x + 40 hex; generated when empty)")
		marketplace = flag.String("marketplace", "", "marketplace address to approve")
		tokensCSV   = flag.String("tokens", "", "comma-separated token ids to buy")
		allowance   = flag.Uint64("allowance", 0, "approval amount (0 = price_per_tile * token count)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	tokens, err := parseTokens(*tokensCSV)
	if err != nil {
		logger.Fatalf("bad -tokens: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Address:         strings.TrimSpace(*address),
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		logger.Fatalf("unexpected handshake reply: %s", msg)
	}
	logger.Printf("WELCOME session=%s address=%s ledger=%s price=%d", welcome.SessionID, welcome.Address, welcome.LedgerID, welcome.PricePerTile)

	call := func(c protocol.CallMsg) protocol.ResultMsg {
		c.Type = protocol.TypeCall
		c.ProtocolVersion = protocol.Version
		if err := conn.WriteJSON(c); err != nil {
			logger.Fatalf("send %s: %v", c.Op, err)
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read %s result: %v", c.Op, err)
		}
		var res protocol.ResultMsg
		if err := json.Unmarshal(raw, &res); err != nil {
			logger.Fatalf("decode %s result: %v", c.Op, err)
		}
		return res
	}

	res := call(protocol.CallMsg{ID: "c1", Op: protocol.OpBalanceOf})
	if !res.OK || res.Balance == nil {
		logger.Fatalf("BALANCE_OF failed: %s %s", res.Code, res.Msg)
	}
	logger.Printf("balance=%d", *res.Balance)

	if len(tokens) == 0 {
		return
	}
	if strings.TrimSpace(*marketplace) == "" {
		logger.Fatalf("missing -marketplace")
	}

	amount := *allowance
	if amount == 0 {
		amount = welcome.PricePerTile * uint64(len(tokens))
	}
	res = call(protocol.CallMsg{ID: "c2", Op: protocol.OpApprove, Spender: strings.TrimSpace(*marketplace), Amount: &amount})
	if !res.OK {
		logger.Fatalf("APPROVE failed: %s %s", res.Code, res.Msg)
	}
	logger.Printf("approved %d to %s (tx=%s)", amount, *marketplace, res.Receipt.Tx)

	res = call(protocol.CallMsg{ID: "c3", Op: protocol.OpBatchPurchase, TokenIDs: tokens})
	if !res.OK {
		logger.Fatalf("BATCH_PURCHASE failed: %s %s", res.Code, res.Msg)
	}
	logger.Printf("bought %d tiles for %d (tx=%s seq=%d)", len(res.Receipt.TokenIDs), res.Receipt.Total, res.Receipt.Tx, res.Receipt.Seq)
}

func parseTokens(csv string) ([]uint64, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("token id %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}
