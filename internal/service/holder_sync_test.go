package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"yieldhub/internal/client/balance"
	"yieldhub/internal/client/etherscan"
	"yieldhub/internal/models"
)

const (
	holderB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	holderA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	holderC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func holdersHTML(rows ...[2]string) string {
	var b strings.Builder
	b.WriteString("<table><tbody>")
	for i, row := range rows {
		fmt.Fprintf(&b, "<tr><td>%d</td><td><a href=\"/address/%s\">%s</a></td><td>%s</td><td>1.00%%</td></tr>",
			i+1, row[0], row[0], row[1])
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func holderServer(t *testing.T, html string, holderCount int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/token/generic-tokenholders2"):
			fmt.Fprint(w, html)
		case strings.HasPrefix(r.URL.Path, "/token/"):
			fmt.Fprintf(w, "<html><body>Holders: <span>%d</span></body></html>", holderCount)
		default:
			fmt.Fprint(w, "<html>ok</html>")
		}
	}))
}

func seedAddressPool(repo *stubRepo, addr string) *models.Pool {
	pool := &models.Pool{
		Provider:   "morpho",
		ExternalID: addr,
		TokenPair:  "USDC",
		IsActive:   true,
	}
	pool.PoolAddress = &addr
	_ = repo.InsertPool(context.Background(), pool)
	return pool
}

func TestHolderSync_RanksAndPercentages(t *testing.T) {
	// Served out of order on purpose: ranking must come from balances,
	// not from the scrape order.
	srv := holderServer(t, holdersHTML(
		[2]string{holderA, "300"},
		[2]string{holderB, "500"},
		[2]string{holderC, "200"},
	), 1234)
	defer srv.Close()

	repo := newStubRepo()
	pool := seedAddressPool(repo, "0x1111111111111111111111111111111111111111")

	svc := &HolderSyncService{
		Repo:     repo,
		Scraper:  etherscan.NewScraper(srv.Client(), srv.URL, "test"),
		Balances: balance.NewClient(srv.Client(), srv.URL, ""), // unconfigured
	}
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	records := repo.holdersByPool[pool.ID]
	if len(records) != 3 {
		t.Fatalf("records=%d want 3", len(records))
	}
	want := []struct {
		addr string
		rank int
		bps  int64
	}{
		{holderB, 1, 5000},
		{holderA, 2, 3000},
		{holderC, 3, 2000},
	}
	for i, w := range want {
		rec := records[i]
		if rec.Address != w.addr {
			t.Fatalf("rank %d address=%s want %s", i+1, rec.Address, w.addr)
		}
		if rec.Rank != w.rank {
			t.Fatalf("address %s rank=%d want %d", w.addr, rec.Rank, w.rank)
		}
		if rec.PctBps == nil || *rec.PctBps != w.bps {
			t.Fatalf("address %s pct=%v want %d bps", w.addr, rec.PctBps, w.bps)
		}
		// Unconfigured balance provider degrades to zero, never an error.
		if !rec.RawBalance.IsZero() {
			t.Fatalf("address %s raw balance=%s want 0", w.addr, rec.RawBalance)
		}
	}

	points := repo.history["0x1111111111111111111111111111111111111111"]
	if len(points) != 1 || points[0].HolderCount != 1234 {
		t.Fatalf("history=%+v want one point with count 1234", points)
	}
}

func TestHolderSync_FreshSnapshotIsSkipped(t *testing.T) {
	srv := holderServer(t, holdersHTML([2]string{holderA, "100"}), 10)
	defer srv.Close()

	repo := newStubRepo()
	addr := "0x2222222222222222222222222222222222222222"
	seedAddressPool(repo, addr)
	repo.history[addr] = []models.HolderHistoryPoint{{
		TokenAddress: addr,
		HolderCount:  10,
		CapturedAt:   time.Now().UTC().Add(-1 * time.Hour),
	}}

	svc := &HolderSyncService{
		Repo:      repo,
		Scraper:   etherscan.NewScraper(srv.Client(), srv.URL, "test"),
		Balances:  balance.NewClient(srv.Client(), srv.URL, ""),
		Freshness: 12 * time.Hour,
	}
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if repo.replaceCalls != 0 {
		t.Fatalf("fresh snapshot was re-scraped")
	}
}

func TestHolderSync_BlockedStopsRemainingPools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>please solve this captcha</html>")
	}))
	defer srv.Close()

	repo := newStubRepo()
	seedAddressPool(repo, "0x3333333333333333333333333333333333333333")
	seedAddressPool(repo, "0x4444444444444444444444444444444444444444")

	svc := &HolderSyncService{
		Repo:     repo,
		Scraper:  etherscan.NewScraper(srv.Client(), srv.URL, "test"),
		Balances: balance.NewClient(srv.Client(), srv.URL, ""),
	}
	if err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected blocked error")
	}
	if repo.replaceCalls != 0 {
		t.Fatalf("blocked scrape must not write holder sets")
	}
	state := repo.syncStates[JobHolderSync]
	if state.LastError == nil {
		t.Fatalf("blocked run must record the error")
	}
}

func TestComputeHolderRecords_USDValues(t *testing.T) {
	price := decimal.NewFromFloat(2.5)
	info := &balance.TokenInfo{Decimals: 6, PriceUSD: &price}
	holders := []etherscan.Holder{
		{Address: holderA, Quantity: decimal.NewFromInt(100)},
		{Address: holderB, Quantity: decimal.NewFromInt(300)},
	}
	records := computeHolderRecords(7, holders, make([]decimal.Decimal, 2), info)
	if len(records) != 2 {
		t.Fatalf("records=%d want 2", len(records))
	}
	// B holds more, so it sorts to rank 1 despite arriving second.
	if records[0].Address != holderB || records[0].Rank != 1 {
		t.Fatalf("rank 1 = %s/%d want %s/1", records[0].Address, records[0].Rank, holderB)
	}
	if records[0].USDValue == nil || !records[0].USDValue.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("usd=%v want 750", records[0].USDValue)
	}
	if records[0].PctBps == nil || *records[0].PctBps != 7500 {
		t.Fatalf("pct=%v want 7500", records[0].PctBps)
	}
	if records[1].Address != holderA || records[1].USDValue == nil || !records[1].USDValue.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("rank 2 = %s usd=%v want %s usd=250", records[1].Address, records[1].USDValue, holderA)
	}
	// Raw balance backfilled from scraped quantity when the provider had none.
	if !records[1].RawBalance.Equal(decimal.NewFromInt(100_000_000)) {
		t.Fatalf("raw=%s want 100000000", records[1].RawBalance)
	}
}
