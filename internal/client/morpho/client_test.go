package morpho

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func vaultItem(addr string, chainID int, netAPY float64) map[string]any {
	return map[string]any{
		"address": addr,
		"name":    "Test Vault",
		"symbol":  "tv",
		"chain":   map[string]any{"id": chainID, "network": ""},
		"asset":   map[string]any{"symbol": "USDC"},
		"state":   map[string]any{"apy": netAPY, "netApy": netAPY, "totalAssetsUsd": 100000},
	}
}

func TestGetAllVaults_PaginatesPerChain(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req graphqlRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		first := int(req.Variables["first"].(float64))
		skip := int(req.Variables["skip"].(float64))
		chainID := int(req.Variables["chainId"].(float64))

		// Chain 1 has 3 vaults, chain 8453 has 1; page size 2.
		total := 3
		if chainID == 8453 {
			total = 1
		}
		var items []map[string]any
		for i := skip; i < total && i-skip < first; i++ {
			items = append(items, vaultItem(fmt.Sprintf("0x%d%040d", chainID, i), chainID, 0.04))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"vaults": map[string]any{"items": items}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	vaults, err := c.GetAllVaults(context.Background(), []int{1, 8453}, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(vaults) != 4 {
		t.Fatalf("vaults=%d want 4", len(vaults))
	}
	// chain 1: pages of 2 then 1; chain 8453: one short page.
	if requests.Load() != 3 {
		t.Fatalf("requests=%d want 3", requests.Load())
	}
}

func TestGetAllVaults_PartialFailureReturnsFetchedAndError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if int(req.Variables["chainId"].(float64)) == 8453 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"vaults": map[string]any{"items": []map[string]any{
				vaultItem("0xaaaa000000000000000000000000000000000001", 1, 0.03),
			}}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	vaults, err := c.GetAllVaults(context.Background(), []int{1, 8453}, 10)
	if err == nil {
		t.Fatalf("expected error for failed chain")
	}
	if len(vaults) != 1 {
		t.Fatalf("vaults=%d want 1 from the healthy chain", len(vaults))
	}
}

func TestGetVaults_GraphQLErrorsSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "field not found"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	if _, err := c.GetVaults(context.Background(), 1, 10, 0); err == nil {
		t.Fatalf("expected graphql error")
	}
}
