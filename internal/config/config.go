package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Attom     AttomConfig     `yaml:"attom" mapstructure:"attom"`
	FBI       FBIConfig       `yaml:"fbi" mapstructure:"fbi"`
	FCC       FCCConfig       `yaml:"fcc" mapstructure:"fcc"`
	BLS       BLSConfig       `yaml:"bls" mapstructure:"bls"`
	FEMA      FEMAConfig      `yaml:"fema" mapstructure:"fema"`
	USGS      USGSConfig      `yaml:"usgs" mapstructure:"usgs"`
	NOAA      NOAAConfig      `yaml:"noaa" mapstructure:"noaa"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GeocodeConfig configures the address resolver.
type GeocodeConfig struct {
	GoogleKey string `yaml:"google_key" mapstructure:"google_key"`
}

// AttomConfig holds ATTOM Data API settings.
type AttomConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FBIConfig holds FBI Crime Data Explorer settings.
type FBIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FCCConfig holds FCC National Broadband Map settings.
type FCCConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// BLSConfig holds Bureau of Labor Statistics settings.
type BLSConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FEMAConfig holds FEMA flood hazard layer settings.
type FEMAConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// USGSConfig holds USGS elevation service settings.
type USGSConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NOAAConfig holds NOAA climate normals settings.
type NOAAConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings for narrative synthesis.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ReportConfig configures report generation behavior.
type ReportConfig struct {
	PhaseDeadlineSecs int     `yaml:"phase_deadline_secs" mapstructure:"phase_deadline_secs"`
	RadiusMiles       float64 `yaml:"radius_miles" mapstructure:"radius_miles"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentReports int `yaml:"max_concurrent_reports" mapstructure:"max_concurrent_reports"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROPREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "property-report.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_reports", 5)
	v.SetDefault("report.phase_deadline_secs", 60)
	v.SetDefault("report.radius_miles", 1.0)
	v.SetDefault("attom.base_url", "https://api.gateway.attomdata.com/propertyapi/v1.0.0")
	v.SetDefault("fbi.base_url", "https://api.usa.gov/crime/fbi/cde")
	v.SetDefault("fcc.base_url", "https://broadbandmap.fcc.gov/api/public/map")
	v.SetDefault("bls.base_url", "https://api.bls.gov/publicAPI/v2/timeseries/data/")
	v.SetDefault("fema.base_url", "https://hazards.fema.gov/arcgis/rest/services/public/NFHL/MapServer/28/query")
	v.SetDefault("usgs.base_url", "https://epqs.nationalmap.gov/v1/json")
	v.SetDefault("noaa.base_url", "https://www.ncei.noaa.gov/access/services/data/v1")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")

	// Secrets come from the environment; registering the keys here lets
	// AutomaticEnv surface them through Unmarshal.
	for _, key := range []string{
		"geocode.google_key", "attom.key", "fbi.key",
		"bls.key", "anthropic.key",
	} {
		v.SetDefault(key, "")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
