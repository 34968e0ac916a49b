package types

import (
	"context"
	"time"

	"github.com/mcuadros/go-defaults"
)

func NewRenderOptions() *RenderOptions {
	opts := &RenderOptions{Ctx: context.Background()}
	defaults.SetDefaults(opts)
	return opts
}

type RenderOptions struct {
	Ctx context.Context
	/**
	 * default: 4
	 * number of workers evaluating dependencies at the same time.
	 * each worker runs exactly one dependency to completion.
	 */
	WorkerCount int `default:"4"`
	/**
	 * default: 1
	 * resolution divider handed to decoders, 2 means half width and height.
	 */
	Divider int `default:"1"`
	/**
	 * default: true
	 * when false the accelerator is never consulted even if one is set.
	 */
	Acceleration bool `default:"true"`
	/**
	 * default: false, only set it to true when doing testing or developing.
	 */
	MemStore bool `default:"false"`
	/**
	 * default: true
	 * records of finished jobs are written to the store.
	 */
	KeepRecords bool `default:"true"`
	/**
	 * default: 1m
	 * how long a finished job stays available to Wait. after that it is
	 * dropped and only its record is left. 0 drops it as soon as it ends.
	 */
	JobRetention time.Duration `default:"1m"`

	// If both MemStore and PostgresConfig are set, PostgresConfig takes precedence
	PostgresConfig *PostgresConfig

	// Accelerator is an optional alternate evaluator, see render.Accelerator.
	Accelerator any
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}

type RenderOption func(*RenderOptions)

func WithContext(ctx context.Context) RenderOption {
	return func(opts *RenderOptions) {
		opts.Ctx = ctx
	}
}

func SetWorkerCount(count int) RenderOption {
	return func(opts *RenderOptions) {
		opts.WorkerCount = count
	}
}

func SetDivider(divider int) RenderOption {
	return func(opts *RenderOptions) {
		opts.Divider = divider
	}
}

func DisableAcceleration() RenderOption {
	return func(opts *RenderOptions) {
		opts.Acceleration = false
	}
}

func DisableRecords() RenderOption {
	return func(opts *RenderOptions) {
		opts.KeepRecords = false
	}
}

func SetJobRetention(d time.Duration) RenderOption {
	return func(opts *RenderOptions) {
		opts.JobRetention = d
	}
}

func EnableMemStore() RenderOption {
	return func(opts *RenderOptions) {
		opts.MemStore = true
	}
}

// WithPostgresConfig configures the engine to keep records in PostgreSQL
func WithPostgresConfig(config *PostgresConfig) RenderOption {
	return func(opts *RenderOptions) {
		opts.PostgresConfig = config
	}
}

// WithAccelerator sets the accelerated execution path. The value must
// implement render.Accelerator; it is typed any to keep this package free
// of graph dependencies.
func WithAccelerator(accel any) RenderOption {
	return func(opts *RenderOptions) {
		opts.Accelerator = accel
	}
}
