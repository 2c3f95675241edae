package notebase

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/liliang-cn/notebase/pkg/core"
)

// Engine names a storage backend.
type Engine string

// EngineSQLite is the embedded relational backend. It is the only engine
// in this build and the default when nothing is configured.
const EngineSQLite Engine = "sqlite"

// Config selects the engine and its storage location. The zero value
// plus a Path is a working configuration.
type Config struct {
	Engine      Engine
	Path        string
	MaxInFlight int
	Logger      core.Logger
}

// DefaultPath is used when no storage location is configured.
const DefaultPath = "notebase.db"

const (
	envPrefix = "NOTEBASE"
	keyEngine = "engine"
	keyURL    = "sqlite_url"
)

// LoadConfig resolves the configuration from the environment once, at
// process start. NOTEBASE_ENGINE picks the backend and NOTEBASE_SQLITE_URL
// the storage location; URL-style prefixes ("sqlite:///path", "sqlite://path")
// are accepted and reduced to a plain file path.
func LoadConfig() Config {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetDefault(keyEngine, string(EngineSQLite))
	v.SetDefault(keyURL, DefaultPath)

	return Config{
		Engine: Engine(strings.ToLower(strings.TrimSpace(v.GetString(keyEngine)))),
		Path:   normalizePath(v.GetString(keyURL)),
	}
}

// normalizePath strips URL-style scheme prefixes from a storage location.
func normalizePath(raw string) string {
	path := strings.TrimSpace(raw)
	for _, prefix := range []string{"sqlite:///", "sqlite://"} {
		if strings.HasPrefix(path, prefix) {
			return strings.TrimPrefix(path, prefix)
		}
	}
	return path
}
