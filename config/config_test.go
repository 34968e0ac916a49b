package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warriorguo/mediagraph/types"
)

func apply(opts []types.RenderOption) *types.RenderOptions {
	o := types.NewRenderOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, 1, c.Divider)
	assert.Equal(t, StoreMem, c.Store.Type)
	assert.Equal(t, "info", c.Log.Level)

	want := types.NewRenderOptions()
	want.MemStore = true
	if diff := cmp.Diff(want, apply(c.Options()), cmpopts.IgnoreFields(types.RenderOptions{}, "Ctx")); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
workers: 8
divider: 2
acceleration: false
keep_records: false
job_retention: 30s
log:
  level: debug
  format: json
store:
  type: Postgres
  postgres:
    host: db.internal
    port: 5433
    database: frames
    sslmode: require
`))
	require.NoError(t, err)

	want := types.NewRenderOptions()
	want.WorkerCount = 8
	want.Divider = 2
	want.Acceleration = false
	want.KeepRecords = false
	want.JobRetention = 30 * time.Second
	want.PostgresConfig = &types.PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		Database: "frames",
		SSLMode:  "require",
	}
	if diff := cmp.Diff(want, apply(c.Options()), cmpopts.IgnoreFields(types.RenderOptions{}, "Ctx")); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePostgresWithoutSection(t *testing.T) {
	c, err := Parse([]byte("store:\n  type: postgres\n"))
	require.NoError(t, err)
	require.NotNil(t, c.Store.Postgres)
	assert.NotNil(t, apply(c.Options()).PostgresConfig)
}

func TestParseInvalid(t *testing.T) {
	cases := map[string]string{
		"workers":    "workers: 0",
		"divider":    "divider: -1",
		"store":      "store: {type: redis}",
		"log level":  "log: {level: loud}",
		"log format": "log: {format: xml}",
		"retention":  "job_retention: -1s",
	}
	for name, data := range cases {
		_, err := Parse([]byte(data))
		assert.True(t, errors.Is(err, errors.NotValid), name)
	}

	_, err := Parse([]byte("workers: [1"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediagraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyLogging(t *testing.T) {
	logger := log.New()
	c := Default()
	c.Log.Level = "debug"
	c.Log.Format = FormatJSON
	require.NoError(t, c.applyLogging(logger))
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, logger.Formatter)

	c.Log.Level = "nope"
	assert.Error(t, c.applyLogging(logger))
}
