package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type SimConfig struct {
	Agents              int     `mapstructure:"agents"`
	Steps               int     `mapstructure:"steps"`
	Seed                int64   `mapstructure:"seed"`
	InitialEndowment    float64 `mapstructure:"initial_endowment"`
	CollateralSupply    float64 `mapstructure:"collateral_supply"`
	UtilisationRatioMax float64 `mapstructure:"utilisation_ratio_max"`
	MatchOnPlace        bool    `mapstructure:"match_on_place"`
	FeePeriod           uint64  `mapstructure:"fee_period"`
}

type FeeConfig struct {
	CollateralRate float64 `mapstructure:"collateral_rate"`
	StableRate     float64 `mapstructure:"stable_rate"`
	ReferenceRate  float64 `mapstructure:"reference_rate"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	TradeTopic string   `mapstructure:"trade_topic"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type AppConfig struct {
	ServiceName string         `mapstructure:"service_name"`
	Env         string         `mapstructure:"env"`
	LogLevel    string         `mapstructure:"log_level"`
	LogFormat   string         `mapstructure:"log_format"`
	MetricsPath string         `mapstructure:"metrics_path"`
	HTTP        HTTPConfig     `mapstructure:"http"`
	Sim         SimConfig      `mapstructure:"sim"`
	Fees        FeeConfig      `mapstructure:"fees"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
}

func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		path = "config.yaml"
	}

	// A missing config file is fine, the defaults and env cover every knob.
	// SetConfigFile reports absence as a path error, so check up front.
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "stablesim")
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("sim.agents", 100)
	v.SetDefault("sim.steps", 1000)
	v.SetDefault("sim.seed", 42)
	v.SetDefault("sim.initial_endowment", 1000.0)
	v.SetDefault("sim.collateral_supply", 1e9)
	v.SetDefault("sim.utilisation_ratio_max", 1.0)
	v.SetDefault("sim.match_on_place", true)
	v.SetDefault("sim.fee_period", 100)
	v.SetDefault("fees.collateral_rate", 0.01)
	v.SetDefault("fees.stable_rate", 0.005)
	v.SetDefault("fees.reference_rate", 0.01)
	v.SetDefault("kafka.trade_topic", "trades.settled")
}
