// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/scopeguard/scopeguard/internal/access/field"
	"github.com/scopeguard/scopeguard/internal/assignment"
)

// EnvConfigJSON names the env variable whose JSON document overrides the file config.
const EnvConfigJSON = "SCOPEGUARD_CONFIG_JSON"

// Defaults applied by validate. Masking, history and bulk defaults belong to
// the field and assignment packages.
const (
	DefaultShutDownTime    = 5
	DefaultSweeperSchedule = "@every 1m"
	DefaultCacheTTL        = time.Minute
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(filepath.Join(path, "main.toml"), &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	if c.CatalogFile != "" && !filepath.IsAbs(c.CatalogFile) {
		c.CatalogFile = filepath.Join(path, c.CatalogFile)
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate the settings the service can not start without and fill in defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = DefaultShutDownTime
	}

	switch c.DB.Engine {
	case "":
		c.DB.Engine = EngineSQLite
	case EngineSQLite, EngineMySQL, EnginePostgres:
	default:
		return errors.Wrap(ErrUnknownDBEngine, invalidErrMessage)
	}

	if c.Sweeper.Schedule == "" {
		c.Sweeper.Schedule = DefaultSweeperSchedule
	}

	if _, err := cron.ParseStandard(c.Sweeper.Schedule); err != nil {
		return errors.Wrap(ErrInvalidSweeperSchedule, err.Error())
	}

	return validateAccess(&c.Access)
}

func validateAccess(a *Access) error {
	if a.CacheSize < 0 || a.CacheTTL < 0 || a.PartialRevealLength < 0 ||
		a.CurrencyGranularity < 0 || a.HistoryLimit < 0 || a.BulkConcurrency < 0 {
		return errors.Wrap(ErrNegativeAccessSetting, "invalid config")
	}

	if a.CacheTTL == 0 {
		a.CacheTTL = DefaultCacheTTL
	}

	if a.RedactionMarker == "" {
		a.RedactionMarker = field.DefaultRedactionMarker
	}

	if a.PartialRevealLength == 0 {
		a.PartialRevealLength = field.DefaultPartialRevealLength
	}

	if a.CurrencyGranularity == 0 {
		a.CurrencyGranularity = field.DefaultCurrencyGranularity
	}

	if a.HistoryLimit == 0 {
		a.HistoryLimit = assignment.DefaultHistoryLimit
	}

	if a.BulkConcurrency == 0 {
		a.BulkConcurrency = assignment.DefaultBulkConcurrency
	}

	return nil
}
