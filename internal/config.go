package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "STUDIO_BRIDGE"

// DefaultTokenQuery mints a one-time CSP token for a deployment path
const DefaultTokenQuery = "select %Atelier_v1_Utils.General_GetCSPToken(?) csptoken"

// ConnectionConfig describes how to reach the remote system
type ConnectionConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	HTTPS      bool   `mapstructure:"https"`
	Namespace  string `mapstructure:"namespace"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	PathPrefix string `mapstructure:"path-prefix"`
	WebApp     string `mapstructure:"webapp"`
}

// BaseURL returns scheme://host:port plus the path prefix
func (c ConnectionConfig) BaseURL() string {
	scheme := "http"
	if c.HTTPS {
		scheme = "https"
	}
	prefix := strings.TrimRight(c.PathPrefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return fmt.Sprintf("%s://%s:%s%s", scheme, c.Host, strconv.Itoa(c.Port), prefix)
}

// EditorConfig holds the per-variant compatibility policy
type EditorConfig struct {
	CompatibilityTimeout time.Duration `mapstructure:"compatibility-timeout"`
	Probe                bool          `mapstructure:"probe"`
}

// TokenConfig selects how access tokens are minted
type TokenConfig struct {
	Query    string `mapstructure:"query"`
	Database string `mapstructure:"database"` // optional local SQLite mirror
}

// Config is the full application configuration
type Config struct {
	Connection ConnectionConfig `mapstructure:"connection"`
	Editors    struct {
		Custom EditorConfig `mapstructure:"custom"`
		Direct EditorConfig `mapstructure:"direct"`
	} `mapstructure:"editors"`
	Token  TokenConfig `mapstructure:"token"`
	Listen string      `mapstructure:"listen"`
}

var requiredFields = []string{
	"connection.host",
	"connection.port",
	"connection.namespace",
}

// field: default value
var optionalFields = map[string]interface{}{
	"connection.https":                     false,
	"connection.path-prefix":               "",
	"connection.webapp":                    "",
	"editors.custom.compatibility-timeout": 3 * time.Second,
	"editors.custom.probe":                 false,
	"editors.direct.compatibility-timeout": 10 * time.Second,
	"editors.direct.probe":                 true,
	"token.query":                          DefaultTokenQuery,
	"token.database":                       "",
	"listen":                               "127.0.0.1:8765",
}

// LoadConfig reads the configuration file (if any), a .env file (if any) and
// STUDIO_BRIDGE_* environment variables. Environment variables take
// precedence over the config file.
func LoadConfig(paths ConfigPaths) (*Config, error) {
	if paths.EnvFile != "" {
		if err := godotenv.Load(paths.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			LogWarn("Failed to load %s: %v", paths.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for field, defaultValue := range optionalFields {
		v.SetDefault(field, defaultValue)
	}
	for _, field := range requiredFields {
		_ = v.BindEnv(field)
	}
	for _, field := range []string{"connection.username", "connection.password"} {
		_ = v.BindEnv(field)
	}

	if paths.ConfigFile != "" && paths.ConfigFileExists() {
		v.SetConfigFile(paths.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
		LogDebug("Loaded config from %s", paths.ConfigFile)
	}

	for _, field := range requiredFields {
		if !v.IsSet(field) {
			return nil, fmt.Errorf("missing required config field: %s", field)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	return &config, nil
}
