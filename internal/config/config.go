package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "warroom.cfg.json"

// SimConfig holds simulation settings
type SimConfig struct {
	Width     float64 `json:"width" mapstructure:"width"`
	Height    float64 `json:"height" mapstructure:"height"`
	TickRate  int     `json:"tickRate" mapstructure:"tickRate"`
	Seed      int64   `json:"seed" mapstructure:"seed"` // 0 seeds from the clock
	WorldFile string  `json:"worldFile" mapstructure:"worldFile"`
}

// AlertConfig holds the alert countdown and bombardment settings
type AlertConfig struct {
	Interval        time.Duration
	StartLevel      int
	BombardCount    int
	BombardSpacing  time.Duration
	TelemetryEveryN int
}

// LocatorConfig holds the origin geolocation client settings
type LocatorConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Enabled  bool
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
	Bucket   string
}

// GraylogConfig holds GELF output settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

// StreamConfig holds the WebSocket frame stream settings
type StreamConfig struct {
	Enabled     bool
	URL         string
	Secret      string
	FrameEveryN int
}

// ArchiveConfig holds the after-action archive database settings
type ArchiveConfig struct {
	Enabled  bool
	Driver   string // "sqlite" or "postgres"
	Path     string // sqlite file, empty for in-memory
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults stay in
// effect when the file cannot be read.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./warroomlogs")

	viper.SetDefault("sim.width", 1920)
	viper.SetDefault("sim.height", 1080)
	viper.SetDefault("sim.tickRate", 60)
	viper.SetDefault("sim.seed", 0)
	viper.SetDefault("sim.worldFile", "")

	viper.SetDefault("alert.interval", "1s")
	viper.SetDefault("alert.startLevel", 5)
	viper.SetDefault("alert.telemetryEveryN", 60)

	viper.SetDefault("bombardment.count", 5)
	viper.SetDefault("bombardment.spacing", "500ms")

	viper.SetDefault("locator.enabled", true)
	viper.SetDefault("locator.url", "https://ip.guide/")
	viper.SetDefault("locator.timeout", "5s")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "warroom-metrics")
	viper.SetDefault("influx.bucket", "warroom")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("stream.enabled", false)
	viper.SetDefault("stream.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("stream.secret", "")
	viper.SetDefault("stream.frameEveryN", 6)

	viper.SetDefault("archive.enabled", false)
	viper.SetDefault("archive.driver", "sqlite")
	viper.SetDefault("archive.path", "./warroomlogs/warroom.db")
	viper.SetDefault("archive.host", "localhost")
	viper.SetDefault("archive.port", "5432")
	viper.SetDefault("archive.username", "postgres")
	viper.SetDefault("archive.password", "postgres")
	viper.SetDefault("archive.database", "warroom")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "warroom")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// BindFlags registers command-line overrides and binds them into viper.
// Flags win over the config file.
func BindFlags(fs *pflag.FlagSet) error {
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Int64("seed", 0, "random seed, 0 seeds from the clock")
	fs.String("world", "", "GeoJSON file with land polygons")
	fs.Int("tick-rate", 0, "simulation ticks per second")
	fs.Bool("locate", true, "look up the player origin over the network")

	bindings := map[string]string{
		"logLevel":        "log-level",
		"sim.seed":        "seed",
		"sim.worldFile":   "world",
		"sim.tickRate":    "tick-rate",
		"locator.enabled": "locate",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimConfig returns the simulation settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		Width:     viper.GetFloat64("sim.width"),
		Height:    viper.GetFloat64("sim.height"),
		TickRate:  viper.GetInt("sim.tickRate"),
		Seed:      viper.GetInt64("sim.seed"),
		WorldFile: viper.GetString("sim.worldFile"),
	}
}

// GetAlertConfig returns the countdown and bombardment settings.
func GetAlertConfig() AlertConfig {
	return AlertConfig{
		Interval:        viper.GetDuration("alert.interval"),
		StartLevel:      viper.GetInt("alert.startLevel"),
		BombardCount:    viper.GetInt("bombardment.count"),
		BombardSpacing:  viper.GetDuration("bombardment.spacing"),
		TelemetryEveryN: viper.GetInt("alert.telemetryEveryN"),
	}
}

// GetLocatorConfig returns the origin locator settings.
func GetLocatorConfig() LocatorConfig {
	return LocatorConfig{
		Enabled: viper.GetBool("locator.enabled"),
		URL:     viper.GetString("locator.url"),
		Timeout: viper.GetDuration("locator.timeout"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF output settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetStreamConfig returns the frame stream settings.
func GetStreamConfig() StreamConfig {
	return StreamConfig{
		Enabled:     viper.GetBool("stream.enabled"),
		URL:         viper.GetString("stream.url"),
		Secret:      viper.GetString("stream.secret"),
		FrameEveryN: viper.GetInt("stream.frameEveryN"),
	}
}

// GetArchiveConfig returns the after-action archive settings.
func GetArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Enabled:  viper.GetBool("archive.enabled"),
		Driver:   viper.GetString("archive.driver"),
		Path:     viper.GetString("archive.path"),
		Host:     viper.GetString("archive.host"),
		Port:     viper.GetString("archive.port"),
		Username: viper.GetString("archive.username"),
		Password: viper.GetString("archive.password"),
		Database: viper.GetString("archive.database"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
