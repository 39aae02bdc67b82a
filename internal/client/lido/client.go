// Package lido fetches the stETH staking APR from the Lido API.
package lido

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"yieldhub/internal/client/fetcherr"
)

const providerName = "lido"

type Client struct {
	host       string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://eth-api.lido.fi"
	}
	host = strings.TrimRight(host, "/")
	return &Client{host: host, httpClient: httpClient}
}

type SmaApr struct {
	SmaApr float64 `json:"smaApr"`
	Aprs   []struct {
		TimeUnix int64   `json:"timeUnix"`
		Apr      float64 `json:"apr"`
	} `json:"aprs"`
}

type smaAprResponse struct {
	Data SmaApr          `json:"data"`
	Meta json.RawMessage `json:"meta"`
}

// GetSmaApr returns the 7-day simple moving average stETH APR.
func (c *Client) GetSmaApr(ctx context.Context) (*SmaApr, error) {
	body, err := c.doRequest(ctx, "/v1/protocol/steth/apr/sma")
	if err != nil {
		return nil, err
	}
	var out smaAprResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fetcherr.Wrap(providerName, fetcherr.MalformedResponse, err)
	}
	if out.Data.SmaApr <= 0 {
		return nil, fetcherr.New(providerName, fetcherr.MalformedResponse, "missing smaApr")
	}
	return &out.Data, nil
}

// Probe is used by the health monitor.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.GetSmaApr(ctx)
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
