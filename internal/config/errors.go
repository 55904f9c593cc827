package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownDBEngine error if config db.engine is not supported.
	ErrUnknownDBEngine = errors.New("toml config db.engine must be sqlite, mysql or postgres")

	// ErrInvalidSweeperSchedule error if config sweeper.schedule is not a cron spec.
	ErrInvalidSweeperSchedule = errors.New("toml config sweeper.schedule is not a valid cron spec")

	// ErrNegativeAccessSetting error if an access tuning value is negative.
	ErrNegativeAccessSetting = errors.New("toml config access values can not be negative")
)
