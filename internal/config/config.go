package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server        ServerConfig        `toml:"server"`        // HTTP server settings
	Logging       LoggingConfig       `toml:"logging"`       // Application logging settings
	Storage       StorageConfig       `toml:"storage"`       // Data persistence settings
	Rooms         RoomsConfig         `toml:"rooms"`         // Translation room settings
	Transcription TranscriptionConfig `toml:"transcription"` // Live audio transcription settings
	Translation   TranslationConfig   `toml:"translation"`   // Language detection and translation settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout, recommended for streaming)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	AdditionalPorts    []int    `toml:"additional_ports"`      // Additional HTTP ports to listen on (useful for multiple interfaces)
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type           string `toml:"type"`             // Storage backend type (currently only "sqlite" is supported)
	SQLiteBasePath string `toml:"sqlite_base_path"` // Base path for SQLite database files (actual filename is generated as verbaflow-YYYY-MM-DD.db)
}

// RoomsConfig contains translation room settings
type RoomsConfig struct {
	MaxMessageSizeKB int `toml:"max_message_size_kb"` // Maximum size of one WebSocket message in kilobytes
}

// TranscriptionConfig contains settings for the live audio transcription service
type TranscriptionConfig struct {
	DeepgramAPIKey  string `toml:"deepgram_api_key"`      // Deepgram API key for live transcription
	DeepgramBaseURL string `toml:"deepgram_api_base_url"` // Optional Deepgram base URL (e.g., for proxies). Defaults to wss://api.deepgram.com
	Model           string `toml:"model"`                 // Deepgram model to use (e.g., "nova-2")
	Language        string `toml:"language"`              // Default language when the client does not specify one (e.g., "en")
	Encoding        string `toml:"encoding"`              // Audio encoding clients send (e.g., "linear16")
	SampleRate      int    `toml:"sample_rate"`           // Audio sample rate in Hz
	InterimResults  bool   `toml:"interim_results"`       // Forward interim (non-final) results to clients
	Punctuate       bool   `toml:"punctuate"`             // Enable automatic punctuation
	SmartFormat     bool   `toml:"smart_format"`          // Enable smart formatting of numbers, dates, etc.
	Diarize         bool   `toml:"diarize"`               // Enable speaker diarization
}

// TranslationConfig contains settings for language detection and translation
type TranslationConfig struct {
	GeminiAPIKey   string `toml:"gemini_api_key"`  // Gemini API key; when empty a deterministic mock service is used
	Model          string `toml:"model"`           // Gemini model to use (e.g., "gemini-2.0-flash")
	TimeoutSeconds int    `toml:"timeout_seconds"` // Per-request timeout for detection and translation calls
}

// Load loads the configuration from the given path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // Location in configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			// File exists, try to load it
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and fills in defaults for optional fields
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	// Validate AdditionalPorts
	portsSeen := make(map[int]bool)
	portsSeen[c.Server.Port] = true
	for _, p := range c.Server.AdditionalPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid additional server port: %d", p)
		}
		if portsSeen[p] {
			return fmt.Errorf("duplicate port configured: %d (primary or additional)", p)
		}
		portsSeen[p] = true
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}

	// Validate logging config
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s (must be 'console' or 'json')", c.Logging.Format)
	}

	// Validate storage config
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("invalid storage type: %s (only 'sqlite' is supported)", c.Storage.Type)
	}
	if c.Storage.SQLiteBasePath == "" {
		c.Storage.SQLiteBasePath = "data"
	}

	// Validate room config
	if c.Rooms.MaxMessageSizeKB <= 0 {
		c.Rooms.MaxMessageSizeKB = 64
	}

	// Validate transcription config
	if c.Transcription.Model == "" {
		c.Transcription.Model = "nova-2"
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "en"
	}
	if c.Transcription.Encoding == "" {
		c.Transcription.Encoding = "linear16"
	}
	if c.Transcription.SampleRate <= 0 {
		c.Transcription.SampleRate = 44100
	}

	// Validate translation config
	if c.Translation.Model == "" {
		c.Translation.Model = "gemini-2.0-flash"
	}
	if c.Translation.TimeoutSeconds <= 0 {
		c.Translation.TimeoutSeconds = 30
	}

	return nil
}
