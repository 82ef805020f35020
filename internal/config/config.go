package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"
	// ModeWorker composes one request from stdin and exits
	ModeWorker = "worker"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 100 * 1024 * 1024 // 100MB
	DefaultWorkerTimeout = 2 * time.Minute
	DefaultCacheSize     = 32

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable
	EnvPrefix = "ESIGN"
)

// Config holds all configuration for the template server
type Config struct {
	// Server configuration
	Mode string // "stdio", "server" or "worker"
	Host string
	Port int

	// Template configuration
	TemplateDirectory string
	CacheSize         int

	// Isolated composition
	WorkerBinary  string // empty means this executable
	WorkerTimeout time.Duration

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF or export size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:              ModeStdio,
		Host:              DefaultHost,
		Port:              DefaultPort,
		TemplateDirectory: currentDir,
		CacheSize:         DefaultCacheSize,
		WorkerTimeout:     DefaultWorkerTimeout,
		Version:           "1.0.0",
		ServerName:        "mcp-esign-templates",
		LogLevel:          DefaultLogLevel,
		MaxFileSize:       DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.TemplateDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.TemplateDirectory); err == nil {
			cfg.TemplateDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.TemplateDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("cache-size", cfg.CacheSize)
	viper.SetDefault("worker-bin", cfg.WorkerBinary)
	viper.SetDefault("worker-timeout", cfg.WorkerTimeout)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for MCP standard I/O, 'server' for HTTP server, 'worker' for one isolated composition")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.TemplateDirectory, "Directory holding stored templates and their PDFs")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF or export file size in bytes")
	pflag.Int("cache-size", cfg.CacheSize, "Number of parsed templates kept in memory")
	pflag.String("worker-bin", cfg.WorkerBinary, "Binary started for isolated composition (defaults to this executable)")
	pflag.Duration("worker-timeout", cfg.WorkerTimeout, "Time after which an isolated worker is killed")
}

// envKeyReplacer maps flag names such as worker-timeout onto ESIGN_WORKER_TIMEOUT
var envKeyReplacer = strings.NewReplacer("-", "_")

var flagNames = []string{
	"mode", "host", "port", "dir", "loglevel", "maxfilesize",
	"cache-size", "worker-bin", "worker-timeout",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range flagNames {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP e-sign templates - fill vendor signing templates and bake field values into their PDFs\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                      "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/templates                 "+
			"# stdio mode with a template directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/srv/templates   # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --worker-timeout=30s                 # bound isolated composition\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  ESIGN_MODE            Run mode\n")
		fmt.Fprintf(os.Stderr, "  ESIGN_HOST            Server host\n")
		fmt.Fprintf(os.Stderr, "  ESIGN_PORT            Server port\n")
		fmt.Fprintf(os.Stderr, "  ESIGN_DIR             Template directory\n")
		fmt.Fprintf(os.Stderr, "  ESIGN_LOGLEVEL        Log level\n")
		fmt.Fprintf(os.Stderr, "  ESIGN_MAXFILESIZE     Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  ESIGN_CACHE_SIZE      Template cache size\n")
		fmt.Fprintf(os.Stderr, "  ESIGN_WORKER_BIN      Worker binary\n")
		fmt.Fprintf(os.Stderr, "  ESIGN_WORKER_TIMEOUT  Worker timeout\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.TemplateDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.CacheSize = viper.GetInt("cache-size")
	cfg.WorkerBinary = viper.GetString("worker-bin")
	cfg.WorkerTimeout = viper.GetDuration("worker-timeout")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer && c.Mode != ModeWorker {
		return errors.New("mode must be one of 'stdio', 'server' or 'worker'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.TemplateDirectory == "" {
		return errors.New("template directory cannot be empty")
	}

	if _, err := os.Stat(c.TemplateDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.TemplateDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create template directory %s: %w", c.TemplateDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access template directory %s: %w", c.TemplateDirectory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.CacheSize < 0 {
		return errors.New("cache size cannot be negative")
	}

	if c.WorkerTimeout <= 0 {
		return errors.New("worker timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, TemplateDirectory: %s, LogLevel: %s, MaxFileSize: %d, CacheSize: %d, WorkerTimeout: %s}",
		c.Mode, c.Host, c.Port, c.TemplateDirectory, c.LogLevel, c.MaxFileSize, c.CacheSize, c.WorkerTimeout)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsWorkerMode returns true if the process serves one isolated composition
func (c *Config) IsWorkerMode() bool {
	return c.Mode == ModeWorker
}

// WorkerArgs returns the arguments a worker child needs to see the same
// template directory and limits as this process.
func (c *Config) WorkerArgs() []string {
	return []string{
		"--mode=" + ModeWorker,
		"--dir=" + c.TemplateDirectory,
		fmt.Sprintf("--maxfilesize=%d", c.MaxFileSize),
		"--loglevel=" + c.LogLevel,
	}
}
