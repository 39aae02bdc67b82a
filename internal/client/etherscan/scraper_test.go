package etherscan

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"yieldhub/internal/client/fetcherr"
)

const sampleTable = `<html><body>
<table class="table">
<thead><tr><th>Rank</th><th>Address</th><th>Quantity</th><th>Percentage</th></tr></thead>
<tbody>
<tr><td>1</td><td><a href="/address/0xAb5801a7D398351b8bE11C439e05C5b3259aeC9B">Vb</a></td><td>1,234,567.89</td><td>12.3%</td></tr>
<tr><td>2</td><td><span><a href="/address/0x00000000219ab540356cBB839Cbe05303d7705Fa">Beacon</a></span></td><td>987,654</td><td>9.8%</td></tr>
<tr><td>3</td><td>no address here</td><td>555</td><td>0.1%</td></tr>
</tbody>
</table>
</body></html>`

func TestGetTopHolders_ParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token/generic-tokenholders2" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("a") == "" {
			http.Error(w, "missing token", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, sampleTable)
	}))
	defer srv.Close()

	s := NewScraper(srv.Client(), srv.URL, "test-agent")
	holders, err := s.GetTopHolders(context.Background(), "0x1111111111111111111111111111111111111111", 15)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(holders) != 2 {
		t.Fatalf("holders=%d want 2 (row without address dropped)", len(holders))
	}
	if holders[0].Address != "0xab5801a7d398351b8be11c439e05c5b3259aec9b" {
		t.Fatalf("address=%s want lowercased first holder", holders[0].Address)
	}
	if holders[0].Quantity.String() != "1234567.89" {
		t.Fatalf("quantity=%s want 1234567.89", holders[0].Quantity)
	}
	if holders[1].Quantity.String() != "987654" {
		t.Fatalf("quantity=%s want 987654", holders[1].Quantity)
	}
}

func TestGetTopHolders_LimitApplies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<table><tbody>")
		for i := 0; i < 30; i++ {
			fmt.Fprintf(w, `<tr><td>%d</td><td>0x%040x</td><td>%d</td><td>x</td></tr>`, i+1, i+1, 1000-i)
		}
		fmt.Fprint(w, "</tbody></table>")
	}))
	defer srv.Close()

	s := NewScraper(srv.Client(), srv.URL, "test-agent")
	holders, err := s.GetTopHolders(context.Background(), "0x1", 15)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(holders) != 15 {
		t.Fatalf("holders=%d want capped at 15", len(holders))
	}
}

func TestGetTopHolders_CaptchaIsBlockedNotEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="cf-browser-verification">checking your browser</div></body></html>`)
	}))
	defer srv.Close()

	s := NewScraper(srv.Client(), srv.URL, "test-agent")
	holders, err := s.GetTopHolders(context.Background(), "0x1", 15)
	if err == nil {
		t.Fatalf("expected blocked error, got %d holders", len(holders))
	}
	if !fetcherr.IsBlocked(err) {
		t.Fatalf("err=%v want Blocked kind", err)
	}
}

func TestGetTopHolders_HTTP403IsBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewScraper(srv.Client(), srv.URL, "test-agent")
	if _, err := s.GetTopHolders(context.Background(), "0x1", 15); !fetcherr.IsBlocked(err) {
		t.Fatalf("err=%v want Blocked kind", err)
	}
}

func TestGetTopHolders_ExplicitEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>There are no matching entries</body></html>`)
	}))
	defer srv.Close()

	s := NewScraper(srv.Client(), srv.URL, "test-agent")
	holders, err := s.GetTopHolders(context.Background(), "0x1", 15)
	if err != nil {
		t.Fatalf("explicit empty page should not error: %v", err)
	}
	if len(holders) != 0 {
		t.Fatalf("holders=%d want 0", len(holders))
	}
}

func TestGetTopHolders_MissingTableIsSoftBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing to see</body></html>`)
	}))
	defer srv.Close()

	s := NewScraper(srv.Client(), srv.URL, "test-agent")
	if _, err := s.GetTopHolders(context.Background(), "0x1", 15); !fetcherr.IsBlocked(err) {
		t.Fatalf("err=%v want Blocked kind", err)
	}
}

func TestGetHolderCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div>Holders: <span>452,199</span></div></body></html>`)
	}))
	defer srv.Close()

	s := NewScraper(srv.Client(), srv.URL, "test-agent")
	count, err := s.GetHolderCount(context.Background(), "0x1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 452199 {
		t.Fatalf("count=%d want 452199", count)
	}
}
