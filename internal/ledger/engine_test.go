package ledger

import (
	"context"
	"testing"
	"time"

	"multiverse.land/internal/protocol"
)

func submit(t *testing.T, l *Ledger, actor Address, call protocol.CallMsg) protocol.ResultMsg {
	t.Helper()
	resp := make(chan protocol.ResultMsg, 1)
	select {
	case l.Inbox() <- CallEnvelope{Actor: actor, Call: call, Resp: resp}:
	case <-time.After(time.Second):
		t.Fatalf("inbox send timed out")
	}
	select {
	case res := <-resp:
		return res
	case <-time.After(time.Second):
		t.Fatalf("no result for %s", call.Op)
		return protocol.ResultMsg{}
	}
}

func TestEngineDispatch(t *testing.T) {
	l, g := newTestLedger(t)
	g.balances[testBuyer] = 1000

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(done)
	}()

	zone := uint32(0)
	res := submit(t, l, testDeployer, protocol.CallMsg{ID: "r1", Op: protocol.OpCreateZone, ZoneID: &zone, Metadata: "ipfs://m"})
	if !res.OK || res.Receipt == nil || res.Receipt.Seq != 1 {
		t.Fatalf("CREATE_ZONE result = %+v", res)
	}
	if res.Ref != "r1" {
		t.Fatalf("result ref = %q", res.Ref)
	}

	res = submit(t, l, testDeployer, protocol.CallMsg{ID: "r2", Op: protocol.OpPremintBatch, ZoneID: &zone, Tiles: []protocol.TileSpec{{X: 0, Y: 0}, {X: 1, Y: 0}}})
	if !res.OK || len(res.Receipt.TokenIDs) != 2 {
		t.Fatalf("PREMINT_BATCH result = %+v", res)
	}
	ids := res.Receipt.TokenIDs

	amount := uint64(500)
	res = submit(t, l, testBuyer, protocol.CallMsg{ID: "r3", Op: protocol.OpApprove, Spender: string(testMarketplace), Amount: &amount})
	if !res.OK {
		t.Fatalf("APPROVE result = %+v", res)
	}

	res = submit(t, l, testBuyer, protocol.CallMsg{ID: "r4", Op: protocol.OpBatchPurchase, TokenIDs: ids})
	if !res.OK || res.Receipt.Total != 500 {
		t.Fatalf("BATCH_PURCHASE result = %+v", res)
	}

	res = submit(t, l, testBuyer, protocol.CallMsg{ID: "r5", Op: protocol.OpTilesByOwner})
	if !res.OK || len(res.Tiles) != 2 {
		t.Fatalf("TILES_BY_OWNER result = %+v", res)
	}
	if res.Tiles[0].Owner != string(testBuyer) {
		t.Fatalf("tile owner = %s", res.Tiles[0].Owner)
	}

	res = submit(t, l, testBuyer, protocol.CallMsg{ID: "r6", Op: protocol.OpBalanceOf})
	if !res.OK || res.Balance == nil || *res.Balance != 500 {
		t.Fatalf("BALANCE_OF result = %+v", res)
	}

	res = submit(t, l, testDeployer, protocol.CallMsg{ID: "r7", Op: protocol.OpWithdraw})
	if !res.OK || res.Receipt.Total != 500 || len(res.Receipt.Payouts) != 1 {
		t.Fatalf("WITHDRAW result = %+v", res)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop on context cancel")
	}
}

func TestEngineErrorResults(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	res := submit(t, l, testDeployer, protocol.CallMsg{ID: "e1", Op: "FROBNICATE"})
	if res.OK || res.Code != protocol.ErrBadRequest {
		t.Fatalf("unknown op result = %+v", res)
	}

	res = submit(t, l, testDeployer, protocol.CallMsg{ID: "e2", Op: protocol.OpCreateZone})
	if res.OK || res.Code != protocol.ErrBadRequest {
		t.Fatalf("missing zone_id result = %+v", res)
	}

	zone := uint32(42)
	res = submit(t, l, testStranger, protocol.CallMsg{ID: "e3", Op: protocol.OpCreateZone, ZoneID: &zone})
	if res.OK || res.Code != protocol.ErrUnauthorized {
		t.Fatalf("unauthorized result = %+v", res)
	}
	if res.Msg == "" {
		t.Fatalf("error result carries no message")
	}
	if !protocol.IsKnownCode(res.Code) {
		t.Fatalf("result code %q not registered", res.Code)
	}

	res = submit(t, l, testDeployer, protocol.CallMsg{ID: "e4", Op: protocol.OpTilesByID, TokenIDs: []uint64{0, 7}})
	if !res.OK || len(res.Lookups) != 2 {
		t.Fatalf("TILES_BY_ID result = %+v", res)
	}
	if res.Lookups[0].Found || res.Lookups[1].Found {
		t.Fatalf("nothing minted yet, lookups = %+v", res.Lookups)
	}

	res = submit(t, l, testDeployer, protocol.CallMsg{ID: "e5", Op: protocol.OpHasRole, Role: "ADMIN", Addr: string(testDeployer)})
	if !res.OK || res.HasRole == nil || !*res.HasRole {
		t.Fatalf("HAS_ROLE result = %+v", res)
	}
}

func TestEngineStop(t *testing.T) {
	l, _ := newTestLedger(t)
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	l.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v on Stop", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop")
	}
}
