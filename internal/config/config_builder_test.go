package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSONConfig(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestNewConfigBuilder_InitialState(t *testing.T) {
	b := newConfigBuilder()
	require.NotNil(t, b)
	assert.NoError(t, b.err)
	assert.Empty(t, b.configs)
}

func TestBuild_EmptyBuilder(t *testing.T) {
	cfg, err := newConfigBuilder().build()
	require.NoError(t, err)
	assert.Equal(t, &StructuredConfig{}, cfg)
}

func TestBuild_PropagatesBuilderError(t *testing.T) {
	b := newConfigBuilder()
	b.err = assert.AnError

	cfg, err := b.build()
	assert.Nil(t, cfg)
	require.ErrorIs(t, err, assert.AnError)
}

// Later layers fill in the fields earlier layers left zero; the vault tuning
// knobs and both storage DSNs must all survive the merge.
func TestBuild_MergesLayers(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{
			App:     App{TokenIssuer: "lifeos", KDFIterations: 200_000},
			Server:  Server{HTTPAddress: "localhost:8080"},
			Storage: Storage{DB: DB{DSN: "postgres://localhost/vault"}},
		},
		&StructuredConfig{
			App:     App{Version: "1.2.3"},
			Storage: Storage{Local: Local{DSN: ":memory:"}},
			Session: Session{TTL: 15 * time.Minute, IdleTimeout: 10 * time.Minute},
		},
	)

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "lifeos", cfg.App.TokenIssuer)
	assert.Equal(t, 200_000, cfg.App.KDFIterations)
	assert.Equal(t, "1.2.3", cfg.App.Version)
	assert.Equal(t, "localhost:8080", cfg.Server.HTTPAddress)
	assert.Equal(t, "postgres://localhost/vault", cfg.Storage.DB.DSN)
	assert.Equal(t, ":memory:", cfg.Storage.Local.DSN)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTimeout)
}

func TestBuild_RejectsInvalidMergedConfig(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{
		App: App{KDFIterations: -1},
	})

	_, err := b.build()
	require.ErrorIs(t, err, ErrInvalidAppConfigs)
}

func TestWithEnv_Fluent(t *testing.T) {
	b := newConfigBuilder()
	assert.Same(t, b, b.withEnv())
	assert.Len(t, b.configs, 1)
	assert.NoError(t, b.err)
}

func TestWithEnv_ReadsVaultTuning(t *testing.T) {
	t.Setenv("APP_KDF_ITERATIONS", "250000")
	t.Setenv("SESSION_TTL", "20m")
	t.Setenv("STORAGE_LOCAL_SQLITE_DSN", "/var/lib/vault/local.db")

	b := newConfigBuilder()
	b.withEnv()

	require.Len(t, b.configs, 1)
	assert.Equal(t, 250_000, b.configs[0].App.KDFIterations)
	assert.Equal(t, 20*time.Minute, b.configs[0].Session.TTL)
	assert.Equal(t, "/var/lib/vault/local.db", b.configs[0].Storage.Local.DSN)
}

func TestWithFlags_Fluent(t *testing.T) {
	b := newConfigBuilder()
	assert.Same(t, b, b.withFlags())
}

func TestWithJSON_Fluent(t *testing.T) {
	b := newConfigBuilder()
	assert.Same(t, b, b.withJSON())
}

func TestWithJSON_NoOpWithoutPath(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{})
	b.withJSON()

	assert.Len(t, b.configs, 1)
	assert.NoError(t, b.err)
}

func TestWithJSON_ParsesDurationsAndDSNs(t *testing.T) {
	payload := StructuredJSONConfig{}
	payload.App.Version = "json-version"
	payload.App.KDFIterations = 150_000
	payload.Session.TTL = Duration(30 * time.Minute)
	payload.Storage.Local.DSN = "vault.db"
	path := writeTempJSONConfig(t, payload)

	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: path})
	b.withJSON()

	require.NoError(t, b.err)
	require.Len(t, b.configs, 2)
	assert.Equal(t, "json-version", b.configs[1].App.Version)
	assert.Equal(t, 150_000, b.configs[1].App.KDFIterations)
	assert.Equal(t, 30*time.Minute, b.configs[1].Session.TTL)
	assert.Equal(t, "vault.db", b.configs[1].Storage.Local.DSN)
}

func TestWithJSON_SetsError_WhenFileNotFound(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{
		JSONFilePath: "/nonexistent/config.json",
	})
	b.withJSON()

	assert.Error(t, b.err)
}

func TestWithJSON_SetsError_WhenMalformedJSON(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bad-*.json")
	require.NoError(t, err)
	_, err = f.WriteString("{not valid json")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: f.Name()})
	b.withJSON()

	assert.Error(t, b.err)
}

// When several layers carry a JSONFilePath, the most recent one wins.
func TestWithJSON_UsesLastPath(t *testing.T) {
	payload := StructuredJSONConfig{}
	payload.App.Version = "last-wins"
	path := writeTempJSONConfig(t, payload)

	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{JSONFilePath: ""},
		&StructuredConfig{JSONFilePath: path},
	)
	b.withJSON()

	require.NoError(t, b.err)
	require.Len(t, b.configs, 3)
	assert.Equal(t, "last-wins", b.configs[2].App.Version)
}

func TestWithJSON_PreservesEarlierError(t *testing.T) {
	payload := StructuredJSONConfig{}
	payload.App.Version = "should-not-matter"
	path := writeTempJSONConfig(t, payload)

	b := newConfigBuilder()
	b.err = assert.AnError
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: path})
	b.withJSON()

	assert.ErrorIs(t, b.err, assert.AnError)
}
