package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, DriverJSON, cfg.Index.Driver)
	assert.Equal(t, SourceFilesystem, cfg.Source.Kind)
	assert.Equal(t, "gemini", cfg.Embedding.Provider)
	assert.Equal(t, 3, cfg.Agent.TopK)
	assert.Equal(t, 0.7, cfg.Agent.SamplingTemperature())
	assert.Equal(t, 0.8, cfg.Agent.SamplingTopP())
	assert.Equal(t, 40, cfg.Agent.TopKSampling)
	assert.Equal(t, 1024, cfg.Agent.MaxOutputTokens)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := writeConfig(t, `
[index]
driver = "sqlite"
path = "/var/data/index.db"

[source]
kind = "google-drive"
folder_id = "folder-123"
access_token = "tok"
page_size = 50

[embedding]
provider = "ollama"
model = "nomic-embed-text"
base_url = "http://localhost:11434"
timeout_seconds = 15

[generation]
model = "gemini-1.5-pro"
api_key = "secret"

[agent]
top_k = 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Index.Driver)
	assert.Equal(t, "/var/data/index.db", cfg.Index.Path)
	assert.Equal(t, SourceGoogleDrive, cfg.Source.Kind)
	assert.Equal(t, "folder-123", cfg.Source.FolderID)
	assert.Equal(t, int64(50), cfg.Source.PageSize)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, 15*time.Second, cfg.Embedding.Timeout())
	assert.Equal(t, "gemini-1.5-pro", cfg.Generation.Model)
	assert.Equal(t, 5, cfg.Agent.TopK)

	// Unset fields keep their defaults.
	assert.Equal(t, "gemini", cfg.Generation.Provider)
	assert.Equal(t, 0.7, cfg.Agent.SamplingTemperature())
}

func TestLoad_ZeroSamplingValuesAreHonoured(t *testing.T) {
	path := writeConfig(t, `
[agent]
temperature = 0.0
top_p = 0.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// An explicit 0 means deterministic generation, not "use defaults".
	assert.Equal(t, 0.0, cfg.Agent.SamplingTemperature())
	assert.Equal(t, 0.0, cfg.Agent.SamplingTopP())
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "not [valid toml")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvironmentAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Embedding.APIKey)
	assert.Equal(t, "env-key", cfg.Generation.APIKey)
}

func TestLoad_FileAPIKeyWinsOverEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	path := writeConfig(t, `
[embedding]
api_key = "file-key"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.Embedding.APIKey)
	assert.Equal(t, "env-key", cfg.Generation.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Index.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Source.Kind = "ftp"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Source.Kind = SourceGoogleDrive
	assert.Error(t, cfg.Validate(), "drive source without token is invalid")

	cfg.Source.AccessToken = "tok"
	assert.NoError(t, cfg.Validate())
}
