// Package defillama fetches yield pool data from the DefiLlama Yields API.
package defillama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"yieldhub/internal/client/fetcherr"
)

const providerName = "defillama"

type Client struct {
	host       string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://yields.llama.fi"
	}
	host = strings.TrimRight(host, "/")
	return &Client{host: host, httpClient: httpClient}
}

type poolsResponse struct {
	Status string `json:"status"`
	Data   []Pool `json:"data"`
}

type Pool struct {
	Pool       string   `json:"pool"`
	Chain      string   `json:"chain"`
	Project    string   `json:"project"`
	Symbol     string   `json:"symbol"`
	TVLUsd     float64  `json:"tvlUsd"`
	APY        float64  `json:"apy"`
	APYBase    *float64 `json:"apyBase"`
	APYReward  *float64 `json:"apyReward"`
	StableCoin bool     `json:"stablecoin"`
	ILRisk     string   `json:"ilRisk"`
	Exposure   string   `json:"exposure"`
	Outlier    bool     `json:"outlier"`
	PoolMeta   *string  `json:"poolMeta"`
	Underlying []string `json:"underlyingTokens"`
}

// GetPools returns every pool DefiLlama tracks. The /pools endpoint is a
// single unpaginated payload; callers filter by project.
func (c *Client) GetPools(ctx context.Context) ([]Pool, error) {
	body, err := c.doRequest(ctx, "/pools")
	if err != nil {
		return nil, err
	}
	var out poolsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fetcherr.Wrap(providerName, fetcherr.MalformedResponse, err)
	}
	if !strings.EqualFold(out.Status, "success") {
		return nil, fetcherr.New(providerName, fetcherr.MalformedResponse, "status="+out.Status)
	}
	return out.Data, nil
}

// Probe is used by the health monitor; it only checks reachability.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.doRequest(ctx, "/pools")
	return err
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
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
