package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/mmagic/pkg/batch"
	"github.com/japaniel/mmagic/pkg/vocab"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"MMAGIC_DB", "MMAGIC_MODEL", "MMAGIC_CHUNK_SIZE", "MMAGIC_EXPORT_TAG"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mmagic.db", cfg.DBPath)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, batch.DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, batch.DefaultExportTag, cfg.ExportTag)
}

func TestLoadFromEnvironmentAndFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MMAGIC_DB", "env.db")
	t.Setenv("MMAGIC_CHUNK_SIZE", "50")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DBPath)
	assert.Equal(t, 50, cfg.ChunkSize)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-db", "flag.db"}))
	assert.Equal(t, "flag.db", cfg.DBPath)
	require.NoError(t, cfg.Finish())
	assert.Equal(t, vocab.DefaultRoles(), cfg.Roles)
}

func TestLoadRejectsBadChunkSize(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MMAGIC_CHUNK_SIZE", "lots")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MMAGIC_MODEL=Dotenv Model\n"), 0o644))
	// godotenv does not override variables that are already set.
	t.Setenv("MMAGIC_MODEL", "")
	os.Unsetenv("MMAGIC_MODEL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Dotenv Model", cfg.Model)
}

func TestLoadRoles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  mandarin: [Zi, Ci]\n  measure_word: [Liangci]\n"), 0o644))

	roles, err := LoadRoles(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zi", "Ci"}, roles.Names(vocab.RoleMandarin))
	assert.Equal(t, []string{"Liangci"}, roles.Names(vocab.RoleMeasureWord))
	assert.Equal(t, vocab.DefaultRoles().Names(vocab.RoleEnglish), roles.Names(vocab.RoleEnglish))
}

func TestLoadRolesRejectsUnknownRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  tone: [Tone]\n"), 0o644))
	_, err := LoadRoles(path)
	assert.Error(t, err)
}

func TestFinishRejectsUnknownLogFormat(t *testing.T) {
	cfg := &Config{ChunkSize: 1, LogFormat: "xml"}
	assert.Error(t, cfg.Finish())
}
