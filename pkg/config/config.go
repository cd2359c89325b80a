// Package config gathers mmagic settings from a .env file, the environment
// and command line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/mmagic/pkg/batch"
	"github.com/japaniel/mmagic/pkg/dictionary"
	"github.com/japaniel/mmagic/pkg/vocab"
)

// Config holds every setting of the command line tool.
type Config struct {
	DBPath     string
	DictPath   string
	DictURL    string
	DecompPath string
	// RolesPath names an optional YAML file overriding field names per role.
	RolesPath string
	Model     string
	ExportTag string
	ChunkSize int
	LogLevel  string
	LogFormat string

	Roles vocab.RoleSet
}

const DefaultModel = "Chinese (mmagic)"

// Load reads .env when present and returns the configuration taken from
// MMAGIC_* environment variables, falling back to defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	chunk := batch.DefaultChunkSize
	if raw := strings.TrimSpace(os.Getenv("MMAGIC_CHUNK_SIZE")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MMAGIC_CHUNK_SIZE: want a positive integer, got %q", raw)
		}
		chunk = n
	}

	return &Config{
		DBPath:     firstNonEmpty(os.Getenv("MMAGIC_DB"), "mmagic.db"),
		DictPath:   firstNonEmpty(os.Getenv("MMAGIC_DICT"), "cedict_ts.u8"),
		DictURL:    firstNonEmpty(os.Getenv("MMAGIC_DICT_URL"), dictionary.DefaultURL),
		DecompPath: firstNonEmpty(os.Getenv("MMAGIC_DECOMP"), "cjk-decomp.txt"),
		RolesPath:  strings.TrimSpace(os.Getenv("MMAGIC_ROLES")),
		Model:      firstNonEmpty(os.Getenv("MMAGIC_MODEL"), DefaultModel),
		ExportTag:  firstNonEmpty(os.Getenv("MMAGIC_EXPORT_TAG"), batch.DefaultExportTag),
		ChunkSize:  chunk,
		LogLevel:   firstNonEmpty(os.Getenv("MMAGIC_LOG_LEVEL"), "info"),
		LogFormat:  firstNonEmpty(os.Getenv("MMAGIC_LOG_FORMAT"), "text"),
	}, nil
}

// RegisterFlags binds the settings to fs with the current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DBPath, "db", c.DBPath, "Path to SQLite database")
	fs.StringVar(&c.DictPath, "dict", c.DictPath, "Path to CC-CEDICT dictionary file")
	fs.StringVar(&c.DictURL, "dict-url", c.DictURL, "Where to download the dictionary from when it is missing")
	fs.StringVar(&c.DecompPath, "decomp", c.DecompPath, "Path to character decomposition table")
	fs.StringVar(&c.RolesPath, "roles", c.RolesPath, "YAML file overriding the field names of each role")
	fs.StringVar(&c.Model, "model", c.Model, "Note type of created notes")
	fs.StringVar(&c.ExportTag, "export-tag", c.ExportTag, "Tag added to exported notes")
	fs.IntVar(&c.ChunkSize, "chunk-size", c.ChunkSize, "Words per export chunk")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format (text, json)")
}

// Finish validates the settings and loads the role file.
func (c *Config) Finish() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	roles, err := LoadRoles(c.RolesPath)
	if err != nil {
		return err
	}
	c.Roles = roles
	return nil
}

type rolesFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadRoles returns the default role set with the roles named in the YAML
// file at path replaced. An empty path yields the defaults.
//
//	roles:
//	  mandarin: [Hanzi, Simplified]
//	  measure_word: [Classifier]
func LoadRoles(path string) (vocab.RoleSet, error) {
	roles := vocab.DefaultRoles()
	if path == "" {
		return roles, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles: %w", err)
	}
	var f rolesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roles %s: %w", path, err)
	}
	for name, fieldNames := range f.Roles {
		role, err := vocab.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("roles %s: %w", path, err)
		}
		var clean []string
		for _, n := range fieldNames {
			if n = strings.TrimSpace(n); n != "" {
				clean = append(clean, n)
			}
		}
		if len(clean) == 0 {
			return nil, fmt.Errorf("roles %s: role %s has no field names", path, name)
		}
		roles[role] = clean
	}
	return roles, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
