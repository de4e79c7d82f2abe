package solanarpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const testSig = "2AXDGYSE4f2sz7tvMMzyHvUfcoJmxudvdhBcmiUSo6ijwfYmfZYsKRxboQMPh3R4kUhXRVdtSXFXMheka4Rc4P2"

// rpcServer answers every request with handler's result for the method.
func rpcServer(t *testing.T, handler func(req rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  handler(req),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_GetLatestBlockhash(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Method != "getLatestBlockhash" {
			t.Errorf("expected method getLatestBlockhash, got %s", req.Method)
		}
		cfg, _ := req.Params[0].(map[string]interface{})
		if cfg["commitment"] != "confirmed" {
			t.Errorf("expected confirmed commitment, got %v", cfg["commitment"])
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": map[string]interface{}{
				"blockhash":            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
				"lastValidBlockHeight": 3090,
			},
		}
	})

	client := NewHTTPClient(server.URL)
	bh, err := client.GetLatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}

	if bh.Blockhash != "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N" {
		t.Errorf("unexpected blockhash %s", bh.Blockhash)
	}
	if bh.LastValidBlockHeight != 3090 {
		t.Errorf("expected lastValidBlockHeight 3090, got %d", bh.LastValidBlockHeight)
	}
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		if req.Params[0] != "exists" {
			return map[string]interface{}{"value": nil}
		}
		return map[string]interface{}{
			"value": map[string]interface{}{
				"lamports":   1461600,
				"owner":      "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb",
				"data":       []string{"AQID", "base64"},
				"executable": false,
				"rentEpoch":  0,
			},
		}
	})

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	info, err := client.GetAccountInfo(ctx, "exists")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if info == nil {
		t.Fatal("expected account, got nil")
	}
	if info.Owner != "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb" {
		t.Errorf("unexpected owner %s", info.Owner)
	}
	data, err := info.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(data) != 3 || data[2] != 3 {
		t.Errorf("unexpected data %v", data)
	}

	missing, err := client.GetAccountInfo(ctx, "missing")
	if err != nil {
		t.Fatalf("GetAccountInfo missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing account, got %+v", missing)
	}
}

func TestHTTPClient_GetBalanceAndRent(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		switch req.Method {
		case "getBalance":
			return map[string]interface{}{"value": 1_500_000_000}
		case "getMinimumBalanceForRentExemption":
			if req.Params[0].(float64) != 234 {
				t.Errorf("expected size 234, got %v", req.Params[0])
			}
			return 2_519_520
		case "getBlockHeight":
			return 3000
		}
		t.Errorf("unexpected method %s", req.Method)
		return nil
	})

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	balance, err := client.GetBalance(ctx, "addr")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 1_500_000_000 {
		t.Errorf("expected 1500000000 lamports, got %d", balance)
	}

	rent, err := client.GetMinimumBalanceForRentExemption(ctx, 234)
	if err != nil {
		t.Fatalf("GetMinimumBalanceForRentExemption: %v", err)
	}
	if rent != 2_519_520 {
		t.Errorf("expected rent 2519520, got %d", rent)
	}

	height, err := client.GetBlockHeight(ctx)
	if err != nil {
		t.Fatalf("GetBlockHeight: %v", err)
	}
	if height != 3000 {
		t.Errorf("expected height 3000, got %d", height)
	}
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		cfg := req.Params[1].(map[string]interface{})
		if cfg["encoding"] != "base64" {
			t.Errorf("expected base64 encoding, got %v", cfg["encoding"])
		}
		return testSig
	})

	client := NewHTTPClient(server.URL)
	sig, err := client.SendTransaction(context.Background(), "AQID")
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if sig != testSig {
		t.Errorf("unexpected signature %s", sig)
	}
}

func TestHTTPClient_RequestAirdrop_InvalidSignature(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		return "not-base58-0OIl"
	})

	client := NewHTTPClient(server.URL)
	if _, err := client.RequestAirdrop(context.Background(), "addr", 1); err == nil {
		t.Fatal("expected error for malformed signature")
	}
}

func TestHTTPClient_GetSignatureStatuses(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) interface{} {
		return map[string]interface{}{
			"value": []interface{}{
				map[string]interface{}{
					"slot":               42,
					"confirmations":      nil,
					"err":                nil,
					"confirmationStatus": "finalized",
				},
				nil,
			},
		}
	})

	client := NewHTTPClient(server.URL)
	statuses, err := client.GetSignatureStatuses(context.Background(), testSig, "other")
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Reached(CommitmentConfirmed) {
		t.Error("finalized status should satisfy confirmed")
	}
	if statuses[0].Failed() {
		t.Error("status without err should not fail")
	}
	if statuses[1] != nil || statuses[1].Reached(CommitmentProcessed) {
		t.Error("unknown signature should be nil")
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32002, "message": "Transaction simulation failed"},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond))
	_, err := client.SendTransaction(context.Background(), "AQID")

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != -32002 {
		t.Errorf("expected code -32002, got %d", rpcErr.Code)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestHTTPClient_RetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  7,
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond), WithMaxDelay(5*time.Millisecond))
	height, err := client.GetBlockHeight(context.Background())
	if err != nil {
		t.Fatalf("GetBlockHeight: %v", err)
	}
	if height != 7 {
		t.Errorf("expected 7, got %d", height)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestHTTPClient_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(1), WithRetryDelay(time.Millisecond))
	if _, err := client.GetBalance(context.Background(), "addr"); err == nil {
		t.Fatal("expected error after retries")
	}
}
