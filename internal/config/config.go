package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/avolkov/arbiscan/internal/models"
)

type Config struct {
	Environment string                    `mapstructure:"environment"`
	LogLevel    string                    `mapstructure:"log_level"`
	Server      ServerConfig              `mapstructure:"server"`
	Database    DatabaseConfig            `mapstructure:"database"`
	Redis       RedisConfig               `mapstructure:"redis"`
	Telegram    TelegramConfig            `mapstructure:"telegram"`
	Scanner     ScannerConfig             `mapstructure:"scanner"`
	Exchanges   map[string]ExchangeConfig `mapstructure:"exchanges"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// ScannerConfig carries the thresholds and timing knobs of the detection
// engine. Durations are configured as strings ("30s", "2m") and validated
// at startup.
type ScannerConfig struct {
	MinProfitPct   float64  `mapstructure:"min_profit_pct"`
	MinVolume      float64  `mapstructure:"min_volume"`
	PollTimeout    string   `mapstructure:"poll_timeout"`
	CycleInterval  string   `mapstructure:"cycle_interval"`
	CooldownWindow string   `mapstructure:"cooldown_window"`
	Symbols        []string `mapstructure:"symbols"`
}

type ExchangeConfig struct {
	DisplayName string  `mapstructure:"display_name"`
	APIURL      string  `mapstructure:"api_url"`
	TakerFee    float64 `mapstructure:"taker_fee"`
	MakerFee    float64 `mapstructure:"maker_fee"`
	Active      bool    `mapstructure:"active"`
	RateLimit   int     `mapstructure:"rate_limit"`
}

// Settings is the materialized, cycle-consistent view of ScannerConfig.
// A cycle observes exactly one Settings value from start to finish.
type Settings struct {
	MinProfitPct   decimal.Decimal
	MinVolume      decimal.Decimal
	PollTimeout    time.Duration
	CycleInterval  time.Duration
	CooldownWindow time.Duration
	Symbols        []string
}

// defaultTakerFees mirrors the per-exchange taker commissions applied when
// a configured exchange omits its fee schedule.
var defaultTakerFees = map[string]float64{
	"mexc":     0.001,
	"bybit":    0.001,
	"bingx":    0.001,
	"coinex":   0.001,
	"okx":      0.0008,
	"htx":      0.002,
	"kucoin":   0.001,
	"poloniex": 0.0015,
	"bitget":   0.001,
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN: %w", err)
	}
	if err := viper.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_CHAT_ID: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate enforces the startup invariants: malformed thresholds, durations
// or fee schedules must prevent the coordinator from starting.
func (c *Config) Validate() error {
	if c.Scanner.MinProfitPct < 0 {
		return fmt.Errorf("scanner.min_profit_pct must be >= 0, got %v", c.Scanner.MinProfitPct)
	}
	if c.Scanner.MinVolume < 0 {
		return fmt.Errorf("scanner.min_volume must be >= 0, got %v", c.Scanner.MinVolume)
	}
	for _, d := range []struct {
		key   string
		value string
	}{
		{"scanner.poll_timeout", c.Scanner.PollTimeout},
		{"scanner.cycle_interval", c.Scanner.CycleInterval},
		{"scanner.cooldown_window", c.Scanner.CooldownWindow},
	} {
		dur, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, d.value, err)
		}
		if dur <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.key, dur)
		}
	}
	for id, ex := range c.Exchanges {
		if ex.TakerFee < 0 || ex.TakerFee >= 1 {
			return fmt.Errorf("exchange %s: taker_fee must be a fraction in [0, 1), got %v", id, ex.TakerFee)
		}
		if ex.MakerFee < 0 || ex.MakerFee >= 1 {
			return fmt.Errorf("exchange %s: maker_fee must be a fraction in [0, 1), got %v", id, ex.MakerFee)
		}
		if ex.RateLimit < 0 {
			return fmt.Errorf("exchange %s: rate_limit must be >= 0, got %d", id, ex.RateLimit)
		}
	}
	return nil
}

// Settings materializes the scanner thresholds into decimal/duration form.
// Validate has already ensured the durations parse.
func (c *Config) Settings() Settings {
	pollTimeout, _ := time.ParseDuration(c.Scanner.PollTimeout)
	cycleInterval, _ := time.ParseDuration(c.Scanner.CycleInterval)
	cooldown, _ := time.ParseDuration(c.Scanner.CooldownWindow)

	return Settings{
		MinProfitPct:   decimal.NewFromFloat(c.Scanner.MinProfitPct),
		MinVolume:      decimal.NewFromFloat(c.Scanner.MinVolume),
		PollTimeout:    pollTimeout,
		CycleInterval:  cycleInterval,
		CooldownWindow: cooldown,
		Symbols:        c.Scanner.Symbols,
	}
}

// ActiveExchanges builds the read-only exchange models from configuration,
// filling in default commissions and display names where omitted. The result
// is sorted by exchange id for deterministic iteration.
func (c *Config) ActiveExchanges() []models.Exchange {
	caser := cases.Title(language.English)

	var exchanges []models.Exchange
	for id, ec := range c.Exchanges {
		if !ec.Active {
			continue
		}

		takerFee := ec.TakerFee
		if takerFee == 0 {
			if def, ok := defaultTakerFees[strings.ToLower(id)]; ok {
				takerFee = def
			}
		}

		displayName := ec.DisplayName
		if displayName == "" {
			displayName = caser.String(id)
		}

		rateLimit := ec.RateLimit
		if rateLimit <= 0 {
			rateLimit = 1
		}

		exchanges = append(exchanges, models.Exchange{
			ID:          strings.ToLower(id),
			DisplayName: displayName,
			TakerFee:    decimal.NewFromFloat(takerFee),
			MakerFee:    decimal.NewFromFloat(ec.MakerFee),
			IsActive:    true,
			RateLimit:   rateLimit,
			APIURL:      ec.APIURL,
			CreatedAt:   time.Now().UTC(),
		})
	}

	sort.Slice(exchanges, func(i, j int) bool { return exchanges[i].ID < exchanges[j].ID })
	return exchanges
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "arbiscan")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", 0)

	viper.SetDefault("scanner.min_profit_pct", 2.0)
	viper.SetDefault("scanner.min_volume", 100.0)
	viper.SetDefault("scanner.poll_timeout", "30s")
	viper.SetDefault("scanner.cycle_interval", "2m")
	viper.SetDefault("scanner.cooldown_window", "30m")
	viper.SetDefault("scanner.symbols", []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "XRP/USDT"})
}
