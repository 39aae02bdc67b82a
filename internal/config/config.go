package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Holders   HoldersConfig   `mapstructure:"holders"`
	Health    HealthConfig    `mapstructure:"health"`
	Outlook   OutlookConfig   `mapstructure:"outlook"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type ProvidersConfig struct {
	DefiLlama DefiLlamaConfig `mapstructure:"defillama"`
	Morpho    MorphoConfig    `mapstructure:"morpho"`
	Lido      LidoConfig      `mapstructure:"lido"`
	Etherscan EtherscanConfig `mapstructure:"etherscan"`
	Balance   BalanceConfig   `mapstructure:"balance"`
}

type DefiLlamaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Projects restricts ingestion to a project allow-list; empty means all.
	Projects []string `mapstructure:"projects"`
}

type MorphoConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size"`
	ChainIDs []int         `mapstructure:"chain_ids"`
}

type LidoConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type EtherscanConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type BalanceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	APIKey  string        `mapstructure:"api_key"`
}

type SyncConfig struct {
	APYEpsilon    float64 `mapstructure:"apy_epsilon"`
	TVLEpsilonUSD float64 `mapstructure:"tvl_epsilon_usd"`
	MinTVLUSD     float64 `mapstructure:"min_tvl_usd"`
	MaxAPY        float64 `mapstructure:"max_apy"`

	DefiLlamaIntervalMinutes int `mapstructure:"defillama_interval_minutes"`
	MorphoIntervalMinutes    int `mapstructure:"morpho_interval_minutes"`
	LidoIntervalMinutes      int `mapstructure:"lido_interval_minutes"`
	HolderIntervalMinutes    int `mapstructure:"holder_interval_minutes"`
	OutlookIntervalMinutes   int `mapstructure:"outlook_interval_minutes"`
}

type HoldersConfig struct {
	MaxHolders  int           `mapstructure:"max_holders"`
	Freshness   time.Duration `mapstructure:"freshness"`
	Parallelism int           `mapstructure:"parallelism"`
	MaxPools    int           `mapstructure:"max_pools"`
}

type HealthConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
}

type OutlookConfig struct {
	Expiry    time.Duration `mapstructure:"expiry"`
	BatchSize int           `mapstructure:"batch_size"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("YH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("providers.defillama.base_url", "https://yields.llama.fi")
	v.SetDefault("providers.defillama.timeout", "30s")
	v.SetDefault("providers.defillama.projects", []string{"aave-v3", "compound-v3", "curve-dex", "uniswap-v3", "lido", "morpho-blue"})
	v.SetDefault("providers.morpho.base_url", "https://blue-api.morpho.org/graphql")
	v.SetDefault("providers.morpho.timeout", "20s")
	v.SetDefault("providers.morpho.page_size", 100)
	v.SetDefault("providers.morpho.chain_ids", []int{1, 8453})
	v.SetDefault("providers.lido.base_url", "https://eth-api.lido.fi")
	v.SetDefault("providers.lido.timeout", "15s")
	v.SetDefault("providers.etherscan.base_url", "https://etherscan.io")
	v.SetDefault("providers.etherscan.timeout", "20s")
	v.SetDefault("providers.etherscan.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	v.SetDefault("providers.balance.base_url", "https://api.ethplorer.io")
	v.SetDefault("providers.balance.timeout", "15s")
	v.SetDefault("providers.balance.api_key", "")

	v.SetDefault("sync.apy_epsilon", 0.001)
	v.SetDefault("sync.tvl_epsilon_usd", 1000)
	v.SetDefault("sync.min_tvl_usd", 10000)
	v.SetDefault("sync.max_apy", 1000)
	v.SetDefault("sync.defillama_interval_minutes", 30)
	v.SetDefault("sync.morpho_interval_minutes", 30)
	v.SetDefault("sync.lido_interval_minutes", 60)
	v.SetDefault("sync.holder_interval_minutes", 360)
	v.SetDefault("sync.outlook_interval_minutes", 60)

	v.SetDefault("holders.max_holders", 15)
	v.SetDefault("holders.freshness", "12h")
	v.SetDefault("holders.parallelism", 4)
	v.SetDefault("holders.max_pools", 50)

	v.SetDefault("health.ttl", "30s")
	v.SetDefault("health.refresh_interval", "2m")
	v.SetDefault("health.probe_timeout", "5s")

	v.SetDefault("outlook.expiry", "2h")
	v.SetDefault("outlook.batch_size", 50)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
