package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Europe/Helsinki", cfg.Location.Timezone)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "log", cfg.Output.Driver)
	assert.Equal(t, "c/kWh", cfg.Sahkotin.Unit)
	assert.Equal(t, 15*time.Second, cfg.SpotHinta.RequestTimeout)
	assert.Equal(t, filepath.Join(cfg.Paths.DataDir, "gpio_current_status.json"), cfg.Paths.StatusFile)
	assert.Equal(t, filepath.Join(cfg.Paths.DataDir, "gpio_history.csv"), cfg.Paths.HistoryFile)
	assert.NotContains(t, cfg.Paths.DataDir, "~")
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "vasalli.yaml")
	body := `
paths:
  data_dir: ` + dir + `
  status_file: ` + filepath.Join(dir, "status.json") + `
output:
  driver: modbus
  modbus:
    address: 10.0.0.5:502
scheduler:
  interval: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("VASALLI_LIVE_CONCURRENCY", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "modbus", cfg.Output.Driver)
	assert.Equal(t, "10.0.0.5:502", cfg.Output.Modbus.Address)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 2, cfg.Live.Concurrency)
	assert.Equal(t, filepath.Join(dir, "status.json"), cfg.Paths.StatusFile)
	assert.Equal(t, filepath.Join(dir, "simulation_schedule.txt"), cfg.Paths.ScheduleFile)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VASALLI_LOCATION_TIMEZONE=UTC\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("VASALLI_LOCATION_TIMEZONE") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Location.Timezone)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Paths:     PathsConfig{DataDir: "/tmp/x", SettingsFile: "settings.json"},
			Location:  LocationConfig{Timezone: "UTC"},
			Scheduler: SchedulerConfig{Interval: time.Hour},
			Live:      LiveConfig{Concurrency: 1},
			Sahkotin:  SahkotinConfig{Unit: "c/kWh"},
			Output:    OutputConfig{Driver: "log"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "valid", mutate: func(c *Config) {}, ok: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Location.Timezone = "Mars/Olympus" }},
		{name: "zero interval", mutate: func(c *Config) { c.Scheduler.Interval = 0 }},
		{name: "unknown driver", mutate: func(c *Config) { c.Output.Driver = "gpio" }},
		{name: "modbus without address", mutate: func(c *Config) { c.Output.Driver = "modbus" }},
		{name: "telegram without token", mutate: func(c *Config) { c.Alerting.Telegram.Enabled = true }},
		{name: "no concurrency", mutate: func(c *Config) { c.Live.Concurrency = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
