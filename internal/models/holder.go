package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HolderRecord is one address's stake in a pool. The full set for a pool is
// replaced atomically on each holder sync; ranks and percentages are only
// meaningful relative to a complete snapshot.
type HolderRecord struct {
	ID          uint64           `gorm:"primaryKey;autoIncrement"`
	PoolID      uint64           `gorm:"index;not null"`
	Address     string           `gorm:"type:varchar(80);not null"`
	RawBalance  decimal.Decimal  `gorm:"type:numeric(60,0);not null"`
	USDValue    *decimal.Decimal `gorm:"type:numeric(30,2)"`
	PctBps      *int64           // ownership share in basis points of scraped supply
	Rank        int              `gorm:"not null"`
	TxCount     *int
	FirstSeenAt *time.Time `gorm:"type:timestamptz"`
	CreatedAt   time.Time  `gorm:"type:timestamptz;autoCreateTime"`
}

func (HolderRecord) TableName() string {
	return "pool_holders"
}

// HolderHistoryPoint is an append-only holder-count sample for a token
// address. The holder sync consults the latest point to decide whether a new
// scrape is due.
type HolderHistoryPoint struct {
	ID           uint64           `gorm:"primaryKey;autoIncrement"`
	TokenAddress string           `gorm:"type:varchar(80);not null;index:idx_holder_history_token_time,priority:1"`
	HolderCount  int              `gorm:"not null"`
	PriceUSD     *decimal.Decimal `gorm:"type:numeric(30,10)"`
	MarketCapUSD *decimal.Decimal `gorm:"type:numeric(30,2)"`
	CapturedAt   time.Time        `gorm:"type:timestamptz;not null;index:idx_holder_history_token_time,priority:2"`
}

func (HolderHistoryPoint) TableName() string {
	return "holder_history_points"
}
