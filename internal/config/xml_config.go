// Package config provides XML-based configuration management for the
// document service.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/bytes"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"KTechlabDocs"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Editing session configuration
	Sessions SessionsConfig `xml:"Sessions"`

	// Local and remote file transfer
	Transfer TransferConfig `xml:"Transfer"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory      string `xml:"DataDirectory"`
	DocumentsDirectory string `xml:"DocumentsDirectory"`
	TempDirectory      string `xml:"TempDirectory"`
	EnableCatalog      bool   `xml:"EnableCatalog"`
	CatalogPath        string `xml:"CatalogPath"`
	// LibraryPath optionally names a part catalog overriding the built-in one.
	LibraryPath string `xml:"LibraryPath"`
}

// SessionsConfig contains editing session settings
type SessionsConfig struct {
	MaxSessions            int `xml:"MaxSessions"`
	SessionTimeoutMinutes  int `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int `xml:"CleanupIntervalMinutes"`
	HistoryDepth           int `xml:"HistoryDepth"`
}

// TransferConfig contains whole-file transfer settings
type TransferConfig struct {
	// Root is the only directory sessions may open from and save to.
	Root string `xml:"Root"`
	// AllowedHosts is a comma separated list of remote hosts; empty
	// disables remote locations.
	AllowedHosts  string `xml:"AllowedHosts"`
	RemoteTimeout int    `xml:"RemoteTimeoutSeconds"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	ShowErrorDetails     bool   `xml:"ShowErrorDetails"`
	DuckDBThreads        int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "127.0.0.1",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "32M",
		},
		Storage: StorageConfig{
			DataDirectory:      "./data",
			DocumentsDirectory: "./data/store",
			TempDirectory:      "./data/temp",
			EnableCatalog:      true,
			CatalogPath:        "./data/catalog.duckdb",
		},
		Sessions: SessionsConfig{
			MaxSessions:            32,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			HistoryDepth:           50,
		},
		Transfer: TransferConfig{
			Root:          "./data/files",
			RemoteTimeout: 60,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			ShowErrorDetails:     false,
			DuckDBThreads:        2,
			DuckDBMemoryLimit:    "256MB",
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- KTechlab document service configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR moves every directory that still lives under the default data directory.
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.DocumentsDirectory = filepath.Join(dataDir, "store")
		c.Storage.TempDirectory = filepath.Join(dataDir, "temp")
		c.Storage.CatalogPath = filepath.Join(dataDir, "catalog.duckdb")
		c.Transfer.Root = filepath.Join(dataDir, "files")
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.DocumentsDirectory,
		&c.Storage.TempDirectory,
		&c.Storage.CatalogPath,
		&c.Storage.LibraryPath,
		&c.Transfer.Root,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// SessionTimeout returns how long an idle session is kept.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Sessions.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns the period of the idle session sweep.
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Sessions.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Sessions.CleanupIntervalMinutes) * time.Minute
}

// RemoteTimeout bounds one remote transfer.
func (c *AppConfig) RemoteTimeout() time.Duration {
	return time.Duration(c.Transfer.RemoteTimeout) * time.Second
}

// RemoteHosts returns the hosts remote locations may name.
func (c *AppConfig) RemoteHosts() []string {
	var hosts []string
	for _, h := range strings.Split(c.Transfer.AllowedHosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// TransferLimit returns the largest file a transfer accepts, the same as
// the request body limit.
func (c *AppConfig) TransferLimit() int64 {
	n, err := bytes.Parse(c.Server.BodyLimit)
	if err != nil || n <= 0 {
		return 32 << 20
	}
	return n
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.DocumentsDirectory,
		c.Storage.TempDirectory,
	}
	if c.Transfer.Root != "" {
		dirs = append(dirs, c.Transfer.Root)
	}
	if c.Storage.EnableCatalog && c.Storage.CatalogPath != "" {
		dirs = append(dirs, filepath.Dir(c.Storage.CatalogPath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
