package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/arttuliini/GPIO-Vasalli/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Location  LocationConfig  `mapstructure:"location"`
	SpotHinta SpotHintaConfig `mapstructure:"spothinta"`
	Sahkotin  SahkotinConfig  `mapstructure:"sahkotin"`
	Live      LiveConfig      `mapstructure:"live"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Output    OutputConfig    `mapstructure:"output"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	API       APIConfig       `mapstructure:"api"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// PathsConfig locates the settings file and the files written by each run.
// StatusFile, HistoryFile and ScheduleFile default to names inside DataDir.
type PathsConfig struct {
	DataDir      string `mapstructure:"data_dir"`
	SettingsFile string `mapstructure:"settings_file"`
	StatusFile   string `mapstructure:"status_file"`
	HistoryFile  string `mapstructure:"history_file"`
	ScheduleFile string `mapstructure:"schedule_file"`
}

// LocationConfig selects the market calendar used to map prices to hours.
type LocationConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// SpotHintaConfig covers the live classification oracle.
type SpotHintaConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// SahkotinConfig covers the day-ahead price feed used by the simulator.
type SahkotinConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Unit           string        `mapstructure:"unit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// LiveConfig tunes the live evaluator.
type LiveConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// SchedulerConfig governs evaluation cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
}

// OutputConfig selects how channel states reach the hardware.
type OutputConfig struct {
	Driver string       `mapstructure:"driver"`
	Modbus ModbusConfig `mapstructure:"modbus"`
	MQTT   MQTTConfig   `mapstructure:"mqtt"`
}

// ModbusConfig describes a Modbus TCP relay board.
type ModbusConfig struct {
	Address    string        `mapstructure:"address"`
	SlaveID    int           `mapstructure:"slave_id"`
	CoilOffset int           `mapstructure:"coil_offset"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// MQTTConfig describes the embedded broker that publishes channel states.
type MQTTConfig struct {
	Address     string `mapstructure:"address"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AlertingConfig defines state-change notification routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram bot parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// APIConfig configures the read-only HTTP status API.
type APIConfig struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("VASALLI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vasalli")
	v.SetDefault("app.environment", "production")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("paths.data_dir", "~/gpio_pricer_data")
	v.SetDefault("paths.settings_file", "settings.json")

	v.SetDefault("location.timezone", "Europe/Helsinki")

	v.SetDefault("spothinta.base_url", "https://api.spot-hinta.fi")
	v.SetDefault("spothinta.request_timeout", "15s")
	v.SetDefault("spothinta.user_agent", "vasalli/1.0")

	v.SetDefault("sahkotin.base_url", "https://sahkotin.fi/prices")
	v.SetDefault("sahkotin.unit", "c/kWh")
	v.SetDefault("sahkotin.request_timeout", "15s")
	v.SetDefault("sahkotin.user_agent", "vasalli/1.0")

	v.SetDefault("live.concurrency", 4)

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x76617361))
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.run_on_start", true)

	v.SetDefault("output.driver", "log")
	v.SetDefault("output.modbus.slave_id", 1)
	v.SetDefault("output.modbus.coil_offset", 0)
	v.SetDefault("output.modbus.timeout", "5s")
	v.SetDefault("output.mqtt.address", ":1883")
	v.SetDefault("output.mqtt.topic_prefix", "vasalli/channel")

	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("api.address", ":8080")
	v.SetDefault("api.allowed_origins", []string{"*"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

func (c *Config) resolvePaths() error {
	dir, err := expandHome(c.Paths.DataDir)
	if err != nil {
		return err
	}
	c.Paths.DataDir = dir

	if c.Paths.SettingsFile, err = expandHome(c.Paths.SettingsFile); err != nil {
		return err
	}
	if c.Paths.StatusFile == "" {
		c.Paths.StatusFile = filepath.Join(dir, "gpio_current_status.json")
	}
	if c.Paths.HistoryFile == "" {
		c.Paths.HistoryFile = filepath.Join(dir, "gpio_history.csv")
	}
	if c.Paths.ScheduleFile == "" {
		c.Paths.ScheduleFile = filepath.Join(dir, "simulation_schedule.txt")
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must be set")
	}
	if c.Paths.SettingsFile == "" {
		return fmt.Errorf("paths.settings_file must be set")
	}
	if _, err := c.Location.Load(); err != nil {
		return err
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Live.Concurrency <= 0 {
		return fmt.Errorf("live.concurrency must be greater than zero")
	}
	if c.Sahkotin.Unit == "" {
		return fmt.Errorf("sahkotin.unit must be set")
	}
	switch strings.ToLower(c.Output.Driver) {
	case "log", "":
	case "modbus":
		if c.Output.Modbus.Address == "" {
			return fmt.Errorf("output.modbus.address must be set for the modbus driver")
		}
		if c.Output.Modbus.SlaveID < 0 || c.Output.Modbus.SlaveID > 247 {
			return fmt.Errorf("output.modbus.slave_id must be within 0-247")
		}
	case "mqtt":
		if c.Output.MQTT.TopicPrefix == "" {
			return fmt.Errorf("output.mqtt.topic_prefix must be set for the mqtt driver")
		}
	default:
		return fmt.Errorf("output.driver %q is not supported", c.Output.Driver)
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be set")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be set")
		}
	}
	return nil
}

// Load resolves the configured timezone.
func (l LocationConfig) Load() (*time.Location, error) {
	if l.Timezone == "" {
		return nil, fmt.Errorf("location.timezone must be set")
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, fmt.Errorf("location.timezone %q: %w", l.Timezone, err)
	}
	return loc, nil
}
