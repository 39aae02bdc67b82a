// Package morpho fetches vault state from the Morpho GraphQL API.
package morpho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"yieldhub/internal/client/fetcherr"
)

const providerName = "morpho"

// The API caps page size; requesting more returns an error.
const maxPageSize = 500

type Client struct {
	host       string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://blue-api.morpho.org/graphql"
	}
	return &Client{host: host, httpClient: httpClient}
}

type Vault struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Chain   struct {
		ID      int    `json:"id"`
		Network string `json:"network"`
	} `json:"chain"`
	Asset struct {
		Symbol string `json:"symbol"`
	} `json:"asset"`
	State struct {
		APY            float64 `json:"apy"`
		NetAPY         float64 `json:"netApy"`
		TotalAssetsUSD float64 `json:"totalAssetsUsd"`
	} `json:"state"`
}

const vaultsQuery = `query Vaults($first: Int!, $skip: Int!, $chainId: Int!) {
  vaults(first: $first, skip: $skip, where: { chainId_in: [$chainId], whitelisted: true }) {
    items {
      address
      name
      symbol
      chain { id network }
      asset { symbol }
      state { apy netApy totalAssetsUsd }
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type vaultsResponse struct {
	Data struct {
		Vaults struct {
			Items []Vault `json:"items"`
		} `json:"vaults"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GetVaults pages through whitelisted vaults for one chain.
func (c *Client) GetVaults(ctx context.Context, chainID, first, skip int) ([]Vault, error) {
	if first <= 0 || first > maxPageSize {
		first = maxPageSize
	}
	body, err := c.doQuery(ctx, vaultsQuery, map[string]any{
		"first":   first,
		"skip":    skip,
		"chainId": chainID,
	})
	if err != nil {
		return nil, err
	}
	var out vaultsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fetcherr.Wrap(providerName, fetcherr.MalformedResponse, err)
	}
	if len(out.Errors) > 0 {
		return nil, fetcherr.New(providerName, fetcherr.MalformedResponse, out.Errors[0].Message)
	}
	return out.Data.Vaults.Items, nil
}

// GetAllVaults queries each chain in parallel and merges the results. A
// failing chain degrades to the other chains' results; the first error is
// returned alongside whatever was fetched so callers can report a partial
// sync.
func (c *Client) GetAllVaults(ctx context.Context, chainIDs []int, pageSize int) ([]Vault, error) {
	if len(chainIDs) == 0 {
		return nil, nil
	}
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		vaults   []Vault
		firstErr error
	)
	for _, chainID := range chainIDs {
		wg.Add(1)
		go func(chainID int) {
			defer wg.Done()
			chainVaults, err := c.getChainVaults(ctx, chainID, pageSize)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("chain %d: %w", chainID, err)
				}
				return
			}
			vaults = append(vaults, chainVaults...)
		}(chainID)
	}
	wg.Wait()
	return vaults, firstErr
}

func (c *Client) getChainVaults(ctx context.Context, chainID, pageSize int) ([]Vault, error) {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	var all []Vault
	for skip := 0; ; skip += pageSize {
		page, err := c.GetVaults(ctx, chainID, pageSize, skip)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// Probe is used by the health monitor.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.doQuery(ctx, `query { __typename }`, nil)
	return err
}

func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) ([]byte, error) {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fetcherr.Wrap(providerName, fetcherr.MalformedResponse, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host, bytes.NewReader(payload))
	if err != nil {
		return nil, fetcherr.Wrap(providerName, fetcherr.Unreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
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
	if !strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return nil, fetcherr.New(providerName, fetcherr.MalformedResponse, "non-json response")
	}
	return body, nil
}
