package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"yieldhub/internal/client/balance"
	"yieldhub/internal/client/etherscan"
	"yieldhub/internal/client/fetcherr"
	"yieldhub/internal/models"
	"yieldhub/internal/repository"
)

// HolderSyncService refreshes top-holder snapshots for pools that carry an
// on-chain address. Each pool's holder set is replaced atomically; a failed
// balance lookup degrades that one holder to a zero balance instead of
// failing the pool.
type HolderSyncService struct {
	Repo     repository.Repository
	Scraper  *etherscan.Scraper
	Balances *balance.Client
	Logger   *zap.Logger

	MaxHolders  int
	Freshness   time.Duration
	Parallelism int
	MaxPools    int
}

type holderReport struct {
	Pools   int `json:"pools"`
	Synced  int `json:"synced"`
	Fresh   int `json:"fresh"`
	Failed  int `json:"failed"`
	Blocked int `json:"blocked"`
}

func (s *HolderSyncService) Run(ctx context.Context) error {
	maxPools := s.MaxPools
	if maxPools <= 0 {
		maxPools = 50
	}
	pools, err := s.Repo.ListActivePoolsWithAddress(ctx, maxPools)
	if err != nil {
		s.writeState(ctx, holderReport{}, err)
		return err
	}

	report := holderReport{Pools: len(pools)}
	var firstErr error
	for _, pool := range pools {
		synced, err := s.syncPool(ctx, &pool)
		if err != nil {
			if fetcherr.IsBlocked(err) {
				// The scrape source is rejecting us; hammering the remaining
				// pools only digs the hole deeper.
				report.Blocked++
				if firstErr == nil {
					firstErr = err
				}
				break
			}
			report.Failed++
			if firstErr == nil {
				firstErr = err
			}
			if s.Logger != nil {
				s.Logger.Warn("holder sync failed for pool",
					zap.Uint64("pool_id", pool.ID), zap.Error(err))
			}
			continue
		}
		if synced {
			report.Synced++
		} else {
			report.Fresh++
		}
	}

	s.writeState(ctx, report, firstErr)
	return firstErr
}

// syncPool returns false when the existing snapshot is still fresh.
func (s *HolderSyncService) syncPool(ctx context.Context, pool *models.Pool) (bool, error) {
	addr := *pool.PoolAddress
	freshness := s.Freshness
	if freshness <= 0 {
		freshness = 12 * time.Hour
	}
	if latest, err := s.Repo.LatestHolderHistory(ctx, addr); err == nil && latest != nil {
		if time.Since(latest.CapturedAt) < freshness {
			return false, nil
		}
	}

	maxHolders := s.MaxHolders
	if maxHolders <= 0 || maxHolders > 15 {
		maxHolders = 15
	}
	holders, err := s.Scraper.GetTopHolders(ctx, addr, maxHolders)
	if err != nil {
		return false, err
	}

	var info *balance.TokenInfo
	if s.Balances != nil && s.Balances.Configured() {
		info, err = s.Balances.GetTokenInfo(ctx, addr)
		if err != nil {
			// Token info only enriches price and supply data; the snapshot
			// still stands without it.
			if s.Logger != nil {
				s.Logger.Debug("token info lookup failed", zap.String("token", addr), zap.Error(err))
			}
			info = nil
		}
	}

	rawBalances := s.fetchRawBalances(ctx, addr, holders)
	records := computeHolderRecords(pool.ID, holders, rawBalances, info)
	if err := s.Repo.ReplacePoolHolders(ctx, pool.ID, records); err != nil {
		return false, err
	}

	point := &models.HolderHistoryPoint{
		TokenAddress: addr,
		CapturedAt:   time.Now().UTC(),
	}
	if info != nil {
		point.HolderCount = info.HolderCount
		point.PriceUSD = info.PriceUSD
		if info.PriceUSD != nil && info.Decimals > 0 {
			scale := decimal.New(1, int32(info.Decimals))
			mcap := info.TotalSupply.Div(scale).Mul(*info.PriceUSD).Round(2)
			point.MarketCapUSD = &mcap
		}
	} else if count, err := s.Scraper.GetHolderCount(ctx, addr); err == nil {
		point.HolderCount = count
	}
	if err := s.Repo.InsertHolderHistory(ctx, point); err != nil {
		return false, err
	}
	return true, nil
}

// fetchRawBalances looks up on-chain balances for each scraped holder with
// bounded parallelism. A failed or unconfigured lookup yields zero.
func (s *HolderSyncService) fetchRawBalances(ctx context.Context, tokenAddress string, holders []etherscan.Holder) []decimal.Decimal {
	out := make([]decimal.Decimal, len(holders))
	if s.Balances == nil || !s.Balances.Configured() {
		return out
	}

	parallelism := s.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for i, h := range holders {
		wg.Add(1)
		go func(i int, holderAddr string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			bal, err := s.Balances.GetTokenBalance(ctx, holderAddr, tokenAddress)
			if err != nil {
				if s.Logger != nil {
					s.Logger.Debug("balance lookup failed, using zero",
						zap.String("holder", holderAddr), zap.Error(err))
				}
				return
			}
			out[i] = bal
		}(i, h.Address)
	}
	wg.Wait()
	return out
}

// computeHolderRecords sorts holders by descending balance, assigns 1-based
// ranks and derives ownership share in basis points against the sum of
// scraped balances. rawBalances is parallel to holders and follows it
// through the sort.
func computeHolderRecords(poolID uint64, holders []etherscan.Holder, rawBalances []decimal.Decimal, info *balance.TokenInfo) []models.HolderRecord {
	if len(holders) == 0 {
		return nil
	}
	total := decimal.Zero
	for _, h := range holders {
		total = total.Add(h.Quantity)
	}

	order := make([]int, len(holders))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return holders[order[a]].Quantity.GreaterThan(holders[order[b]].Quantity)
	})

	tenThousand := decimal.NewFromInt(10_000)
	records := make([]models.HolderRecord, 0, len(holders))
	for rank, idx := range order {
		h := holders[idx]
		rec := models.HolderRecord{
			PoolID:     poolID,
			Address:    h.Address,
			RawBalance: rawBalances[idx],
			Rank:       rank + 1,
		}
		if rec.RawBalance.IsZero() && info != nil && info.Decimals > 0 {
			rec.RawBalance = h.Quantity.Mul(decimal.New(1, int32(info.Decimals))).Truncate(0)
		}
		if total.IsPositive() {
			pct := h.Quantity.Mul(tenThousand).Div(total).Round(0).IntPart()
			rec.PctBps = &pct
		}
		if info != nil && info.PriceUSD != nil {
			usd := h.Quantity.Mul(*info.PriceUSD).Round(2)
			rec.USDValue = &usd
		}
		records = append(records, rec)
	}
	return records
}

func (s *HolderSyncService) writeState(ctx context.Context, report holderReport, cause error) {
	now := time.Now().UTC()
	stats, _ := json.Marshal(report)
	state := &models.SyncState{
		Job:           JobHolderSync,
		LastAttemptAt: &now,
		StatsJSON:     datatypes.JSON(stats),
	}
	if cause != nil {
		msg := cause.Error()
		state.LastError = &msg
		if prev, err := s.Repo.GetSyncState(ctx, JobHolderSync); err == nil && prev != nil {
			state.LastSuccessAt = prev.LastSuccessAt
		}
	} else {
		state.LastSuccessAt = &now
	}
	if err := s.Repo.SaveSyncState(ctx, state); err != nil && s.Logger != nil {
		s.Logger.Warn("failed to persist holder sync state", zap.Error(err))
	}
}
