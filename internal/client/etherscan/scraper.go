// Package etherscan scrapes token holder data from the Etherscan website.
// The holders list has no free JSON endpoint, so this client parses the
// HTML table served to the token page's holders iframe.
package etherscan

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"yieldhub/internal/client/fetcherr"
)

const providerName = "etherscan"

type Scraper struct {
	host       string
	userAgent  string
	httpClient *http.Client
}

func NewScraper(httpClient *http.Client, host, userAgent string) *Scraper {
	if host == "" {
		host = "https://etherscan.io"
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
	}
	return &Scraper{
		host:       strings.TrimRight(host, "/"),
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

type Holder struct {
	Address  string
	Quantity decimal.Decimal
}

var (
	rowRe     = regexp.MustCompile(`(?s)<tr[^>]*>(.*?)</tr>`)
	cellRe    = regexp.MustCompile(`(?s)<td[^>]*>(.*?)</td>`)
	addrRe    = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	holdersRe = regexp.MustCompile(`Holders[^0-9]{0,40}([\d,]+)`)
)

// GetTopHolders scrapes up to limit holders for a token, ordered by balance
// as Etherscan renders them. A CAPTCHA or rate-limit page comes back as a
// Blocked error, never as an empty holder list, so callers can tell
// "no holders" apart from "we got blocked".
func (s *Scraper) GetTopHolders(ctx context.Context, tokenAddress string, limit int) ([]Holder, error) {
	if limit <= 0 {
		limit = 15
	}
	q := url.Values{}
	q.Set("m", "normal")
	q.Set("a", tokenAddress)
	q.Set("p", "1")
	body, err := s.fetch(ctx, "/token/generic-tokenholders2?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if blocked(body) {
		return nil, fetcherr.New(providerName, fetcherr.Blocked, "captcha or rate-limit page")
	}
	if strings.Contains(body, "There are no matching entries") {
		return nil, nil
	}
	if !strings.Contains(body, "<table") {
		// 200 with no table and no explicit empty marker is a soft block.
		return nil, fetcherr.New(providerName, fetcherr.Blocked, "no holders table in response")
	}

	holders := make([]Holder, 0, limit)
	for _, row := range rowRe.FindAllStringSubmatch(body, -1) {
		cells := cellRe.FindAllStringSubmatch(row[1], -1)
		if len(cells) < 3 {
			continue
		}
		addr := addrRe.FindString(cells[1][1])
		if addr == "" {
			continue
		}
		qty, err := parseQuantity(cells[2][1])
		if err != nil {
			continue
		}
		holders = append(holders, Holder{Address: strings.ToLower(addr), Quantity: qty})
		if len(holders) >= limit {
			break
		}
	}
	return holders, nil
}

// GetHolderCount scrapes the aggregate holder count from the token overview
// page. Used for the holder-history time series.
func (s *Scraper) GetHolderCount(ctx context.Context, tokenAddress string) (int, error) {
	body, err := s.fetch(ctx, "/token/"+url.PathEscape(tokenAddress))
	if err != nil {
		return 0, err
	}
	if blocked(body) {
		return 0, fetcherr.New(providerName, fetcherr.Blocked, "captcha or rate-limit page")
	}
	m := holdersRe.FindStringSubmatch(body)
	if m == nil {
		return 0, fetcherr.New(providerName, fetcherr.MalformedResponse, "holder count not found")
	}
	count, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, fetcherr.Wrap(providerName, fetcherr.MalformedResponse, err)
	}
	return count, nil
}

// Probe is used by the health monitor.
func (s *Scraper) Probe(ctx context.Context) error {
	body, err := s.fetch(ctx, "/")
	if err != nil {
		return err
	}
	if blocked(body) {
		return fetcherr.New(providerName, fetcherr.Blocked, "captcha or rate-limit page")
	}
	return nil
}

func (s *Scraper) fetch(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.host+path, nil)
	if err != nil {
		return "", fetcherr.Wrap(providerName, fetcherr.Unreachable, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fetcherr.Wrap(providerName, fetcherr.Unreachable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fetcherr.Wrap(providerName, fetcherr.Unreachable, err)
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return "", fetcherr.New(providerName, fetcherr.Blocked, "http "+strconv.Itoa(resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fetcherr.FromStatus(providerName, resp.StatusCode, string(body))
	}
	return string(body), nil
}

func blocked(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range []string{
		"captcha",
		"cf-browser-verification",
		"access denied",
		"maximum rate limit",
		"detected unusual traffic",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func parseQuantity(cell string) (decimal.Decimal, error) {
	text := strings.TrimSpace(tagRe.ReplaceAllString(cell, ""))
	text = strings.ReplaceAll(text, ",", "")
	return decimal.NewFromString(text)
}
