package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ZPulse/internal/engine"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Engine struct {
		SigmaThresh       float64            `yaml:"sigma_thresh"`
		ZScoreTrendThresh float64            `yaml:"zscore_trend_thresh"`
		WarmupSamples     uint64             `yaml:"warmup_samples"`
		ZScoreWindow      int                `yaml:"zscore_window"`
		LambdaMultiplier  map[string]float64 `yaml:"lambda_multiplier"`
		Timeframes        []TimeframeConfig  `yaml:"timeframes"`
	} `yaml:"engine"`
	Stream struct {
		Symbols        []string      `yaml:"symbols"`
		SymbolsFile    string        `yaml:"symbols_file"`
		ProxyURL       string        `yaml:"proxy_url"`
		StreamType     string        `yaml:"stream_type"` // trades or bars
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		BufferSize     int           `yaml:"buffer_size"`
		Workers        int           `yaml:"workers"`
	} `yaml:"stream"`
	Replay struct {
		Enabled bool `yaml:"enabled"`
		DaysAgo int  `yaml:"days_ago"`
		NDays   int  `yaml:"ndays"`
	} `yaml:"replay"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		AlertsTopic  string   `yaml:"alerts_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Consumer     struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		TicksTable   string        `yaml:"ticks_table"`
		AlertsTable  string        `yaml:"alerts_table"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Cache struct {
		TTL   time.Duration `yaml:"ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// TimeframeConfig declares one decay horizon. Zero thresholds inherit the
// global engine thresholds during Resolve.
type TimeframeConfig struct {
	Name              string  `yaml:"name"`
	Lambda            float64 `yaml:"lambda"`
	SigmaThresh       float64 `yaml:"sigma_thresh"`
	ZScoreTrendThresh float64 `yaml:"zscore_trend_thresh"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ZPULSE_SYMBOLS"); v != "" {
		c.Stream.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("ZPULSE_PROXY_URL"); v != "" {
		c.Stream.ProxyURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid. The detector must not run
// with an incomplete threshold set, so threshold problems are errors here.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Engine.SigmaThresh <= 0 {
		return fmt.Errorf("engine.sigma_thresh must be positive")
	}
	if c.Engine.ZScoreTrendThresh <= 0 {
		return fmt.Errorf("engine.zscore_trend_thresh must be positive")
	}
	if len(c.Engine.Timeframes) == 0 {
		return fmt.Errorf("engine.timeframes cannot be empty")
	}
	for _, tf := range c.Engine.Timeframes {
		if tf.Name == "" {
			return fmt.Errorf("engine.timeframes: name is required")
		}
		if tf.Lambda <= 0 || tf.Lambda >= 1 {
			return fmt.Errorf("engine.timeframes[%s]: lambda must be in (0,1)", tf.Name)
		}
		if _, ok := c.Engine.LambdaMultiplier[tf.Name]; !ok {
			return fmt.Errorf("engine.lambda_multiplier missing entry for timeframe %q", tf.Name)
		}
	}
	if c.Stream.StreamType != "" && c.Stream.StreamType != "trades" && c.Stream.StreamType != "bars" {
		return fmt.Errorf("stream.stream_type must be 'trades' or 'bars', got %q", c.Stream.StreamType)
	}
	if c.Replay.Enabled {
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("replay requires clickhouse to be enabled")
		}
		if c.Replay.NDays <= 0 {
			return fmt.Errorf("replay.ndays must be positive")
		}
		if c.Replay.DaysAgo <= 0 {
			return fmt.Errorf("replay.days_ago must be positive")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.AlertsTopic == "" {
		return fmt.Errorf("kafka.alerts_topic is required when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.Consumer.Enabled && !c.ClickHouse.Enabled {
		return fmt.Errorf("kafka.consumer requires clickhouse for alert persistence")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}

// ResolveTimeframes merges per-timeframe thresholds with the global defaults
// and attaches the lambda multipliers, producing the engine's immutable view.
func (c *Config) ResolveTimeframes() []engine.Timeframe {
	out := make([]engine.Timeframe, 0, len(c.Engine.Timeframes))
	for _, tf := range c.Engine.Timeframes {
		sigma := tf.SigmaThresh
		if sigma == 0 {
			sigma = c.Engine.SigmaThresh
		}
		trend := tf.ZScoreTrendThresh
		if trend == 0 {
			trend = c.Engine.ZScoreTrendThresh
		}
		out = append(out, engine.Timeframe{
			Name:        tf.Name,
			Lambda:      tf.Lambda,
			SigmaThresh: sigma,
			TrendThresh: trend,
			Multiplier:  c.Engine.LambdaMultiplier[tf.Name],
		})
	}
	return out
}

// EngineConfig builds the validated engine configuration.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Timeframes:    c.ResolveTimeframes(),
		WarmupSamples: c.Engine.WarmupSamples,
		ZScoreWindow:  c.Engine.ZScoreWindow,
	}
}
