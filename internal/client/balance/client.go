// Package balance fetches raw token balances and token info from an
// Ethplorer-compatible balance provider.
package balance

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"yieldhub/internal/client/fetcherr"
)

const providerName = "balance_provider"

type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, host, apiKey string) *Client {
	if host == "" {
		host = "https://api.ethplorer.io"
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Configured reports whether a provider key is present. Without one the
// holder pipeline degrades to zero balances instead of failing.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type TokenInfo struct {
	Address     string           `json:"address"`
	Symbol      string           `json:"symbol"`
	Decimals    int              `json:"-"`
	TotalSupply decimal.Decimal  `json:"-"`
	PriceUSD    *decimal.Decimal `json:"-"`
	HolderCount int              `json:"holdersCount"`
}

type tokenInfoResponse struct {
	Address      string          `json:"address"`
	Symbol       string          `json:"symbol"`
	Decimals     json.Number     `json:"decimals"`
	TotalSupply  json.Number     `json:"totalSupply"`
	HoldersCount int             `json:"holdersCount"`
	Price        json.RawMessage `json:"price"`
}

type tokenPrice struct {
	Rate float64 `json:"rate"`
}

// GetTokenInfo returns supply, decimals, price, and holder count for a token.
func (c *Client) GetTokenInfo(ctx context.Context, tokenAddress string) (*TokenInfo, error) {
	if !c.Configured() {
		return nil, nil
	}
	body, err := c.doRequest(ctx, "/getTokenInfo/"+url.PathEscape(tokenAddress), nil)
	if err != nil {
		return nil, err
	}
	var raw tokenInfoResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fetcherr.Wrap(providerName, fetcherr.MalformedResponse, err)
	}
	info := &TokenInfo{
		Address:     raw.Address,
		Symbol:      raw.Symbol,
		HolderCount: raw.HoldersCount,
	}
	if d, err := raw.Decimals.Int64(); err == nil {
		info.Decimals = int(d)
	}
	if supply, err := decimal.NewFromString(raw.TotalSupply.String()); err == nil {
		info.TotalSupply = supply
	}
	// Ethplorer sends price:false when unknown, an object otherwise.
	var price tokenPrice
	if err := json.Unmarshal(raw.Price, &price); err == nil && price.Rate > 0 {
		rate := decimal.NewFromFloat(price.Rate)
		info.PriceUSD = &rate
	}
	return info, nil
}

// GetTokenBalance returns the raw (smallest-unit) balance a holder has of a
// token. Missing provider key yields zero, not an error.
func (c *Client) GetTokenBalance(ctx context.Context, holderAddress, tokenAddress string) (decimal.Decimal, error) {
	if !c.Configured() {
		return decimal.Zero, nil
	}
	q := url.Values{}
	q.Set("token", tokenAddress)
	body, err := c.doRequest(ctx, "/getAddressInfo/"+url.PathEscape(holderAddress), q)
	if err != nil {
		return decimal.Zero, err
	}
	var raw struct {
		Tokens []struct {
			TokenInfo struct {
				Address string `json:"address"`
			} `json:"tokenInfo"`
			RawBalance string `json:"rawBalance"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return decimal.Zero, fetcherr.Wrap(providerName, fetcherr.MalformedResponse, err)
	}
	for _, t := range raw.Tokens {
		if strings.EqualFold(t.TokenInfo.Address, tokenAddress) {
			bal, err := decimal.NewFromString(t.RawBalance)
			if err != nil {
				return decimal.Zero, fetcherr.Wrap(providerName, fetcherr.MalformedResponse, err)
			}
			return bal, nil
		}
	}
	return decimal.Zero, nil
}

// Probe is used by the health monitor. An unconfigured client reports
// healthy since the pipeline treats it as an optional provider.
func (c *Client) Probe(ctx context.Context) error {
	if !c.Configured() {
		return nil
	}
	_, err := c.doRequest(ctx, "/getTokenInfo/0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", nil)
	return err
}

func (c *Client) doRequest(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("apiKey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fetcherr.Wrap(providerName, fetcherr.Unreachable, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fetcherr.Wrap(providerName, fetcherr.Unreachable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fetcherr.Wrap(providerName, fetcherr.Unreachable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fetcherr.FromStatus(providerName, resp.StatusCode, string(body))
	}
	return body, nil
}
