package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syia/fleetgate/pkg/config/provider"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleetgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validYAML = `
name: fleetgate-test
mongo:
  core:
    uri: mongodb://localhost:27017
    database: syia-etl
    connect_timeout: 5s
search:
  casefiles:
    host: localhost
    api_key: test-key
tenancy:
  cluster: core
  collection: company_vessels
server:
  transport: stdio
`

func TestLoader_Load(t *testing.T) {
	path := writeConfig(t, validYAML)

	cfg, loader, err := LoadConfig(context.Background(), provider.ProviderConfig{Path: path})
	require.NoError(t, err)
	defer loader.Close()

	assert.Equal(t, "fleetgate-test", cfg.Name)
	require.Contains(t, cfg.Mongo, "core")
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo["core"].URI)
	assert.Equal(t, 5*time.Second, cfg.Mongo["core"].ConnectTimeout)

	// Defaults applied
	assert.Equal(t, uint64(64), cfg.Mongo["core"].MaxPoolSize)
	assert.Equal(t, "http", cfg.Search["casefiles"].Protocol)
	assert.Equal(t, 8108, cfg.Search["casefiles"].Port)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, time.Minute, cfg.Server.HealthInterval)
	assert.Equal(t, []string{"syia", "admin", "internal"}, cfg.Tenancy.BypassMarkers)
}

func TestLoader_Load_EnvExpansion(t *testing.T) {
	t.Setenv("FG_TEST_API_KEY", "secret-from-env")

	path := writeConfig(t, `
mongo:
  core:
    host: localhost
    database: syia-etl
search:
  casefiles:
    host: localhost
    api_key: ${FG_TEST_API_KEY}
    port: ${FG_TEST_PORT:-8109}
tenancy:
  cluster: core
`)

	cfg, loader, err := LoadConfig(context.Background(), provider.ProviderConfig{Path: path})
	require.NoError(t, err)
	defer loader.Close()

	assert.Equal(t, "secret-from-env", cfg.Search["casefiles"].APIKey)
	assert.Equal(t, 8109, cfg.Search["casefiles"].Port)
}

func TestLoader_Load_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "no mongo clusters",
			yaml: "name: x\ntenancy:\n  cluster: core\n",
		},
		{
			name: "tenancy references unknown cluster",
			yaml: `
mongo:
  core:
    host: localhost
    database: syia-etl
tenancy:
  cluster: missing
`,
		},
		{
			name: "mongo cluster without database",
			yaml: `
mongo:
  core:
    host: localhost
tenancy:
  cluster: core
`,
		},
		{
			name: "bad transport",
			yaml: `
mongo:
  core:
    host: localhost
    database: syia-etl
tenancy:
  cluster: core
server:
  transport: carrier-pigeon
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			_, _, err := LoadConfig(context.Background(), provider.ProviderConfig{Path: path})
			assert.Error(t, err)
		})
	}
}

func TestMongoClusterConfig_ConnectionString(t *testing.T) {
	c := MongoClusterConfig{Host: "db1", Port: 27018, Username: "u", Password: "p"}
	assert.Equal(t, "mongodb://u:p@db1:27018", c.ConnectionString())

	c = MongoClusterConfig{URI: "mongodb+srv://cluster0.example.net"}
	assert.Equal(t, "mongodb+srv://cluster0.example.net", c.ConnectionString())

	c = MongoClusterConfig{Host: "db1", Port: 27017}
	assert.Equal(t, "mongodb://db1:27017", c.ConnectionString())
}
