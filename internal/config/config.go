// internal/config/config.go
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Agent       AgentConfig       `mapstructure:"agent"`
	AgentServer AgentServerConfig `mapstructure:"agent_server"`
	Printer     PrinterConfig     `mapstructure:"printer"`
	Imaging     ImagingConfig     `mapstructure:"imaging"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Security    SecurityConfig    `mapstructure:"security"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	App         AppConfig         `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// AgentConfig describes how the bridge reaches the local print agent
type AgentConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	IgnoreUnknown  bool          `mapstructure:"ignore_unknown"`
}

// AgentServerConfig configures the development print agent
type AgentServerConfig struct {
	Host                string           `mapstructure:"host"`
	Port                int              `mapstructure:"port"`
	HealthCheckInterval time.Duration    `mapstructure:"health_check_interval"`
	OperationTimeout    time.Duration    `mapstructure:"operation_timeout"`
	TCPPrinters         []string         `mapstructure:"tcp_printers"`
	EnableUSB           bool             `mapstructure:"enable_usb"`
	DefaultPort         DevicePortConfig `mapstructure:"default_ports"`
}

// DevicePortConfig represents default port configurations
type DevicePortConfig struct {
	Serial SerialPortConfig `mapstructure:"serial"`
	TCP    TCPPortConfig    `mapstructure:"tcp"`
	USB    USBPortConfig    `mapstructure:"usb"`
}

// SerialPortConfig represents serial port configuration
type SerialPortConfig struct {
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	StopBits int           `mapstructure:"stop_bits"`
	Parity   string        `mapstructure:"parity"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TCPPortConfig represents TCP port configuration
type TCPPortConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	KeepAlive      bool          `mapstructure:"keep_alive"`
}

// USBPortConfig represents USB port configuration
type USBPortConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	BulkTransferSize int           `mapstructure:"bulk_transfer_size"`
}

// PrinterConfig holds printer defaults applied when a request carries none
type PrinterConfig struct {
	PaperWidth        int    `mapstructure:"paper_width"`
	CharsPerLine      int    `mapstructure:"chars_per_line"`
	CharacterEncoding string `mapstructure:"character_encoding"`
	Transcode         bool   `mapstructure:"transcode"`
	FeedLines         int    `mapstructure:"feed_lines"`
	CutEnabled        bool   `mapstructure:"cut_enabled"`
}

// ImagingConfig configures logo loading
type ImagingConfig struct {
	CacheSize    int           `mapstructure:"cache_size"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	MaxBytes     int64         `mapstructure:"max_bytes"`
}

// PreferencesConfig points at the persisted local preference file
type PreferencesConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"dbname"`
	SSLMode        string        `mapstructure:"sslmode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	MigrateOnStart bool          `mapstructure:"migrate_on_start"`
	JournalLimit   int           `mapstructure:"journal_limit"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins    []string `mapstructure:"allowed_origins"`
	RateLimitEnabled  bool     `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int      `mapstructure:"rate_limit_requests"`
	RateLimitBurst    int      `mapstructure:"rate_limit_burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables.
// A missing config file is not an error; defaults and env apply.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/etc/print-bridge"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Environment variable support
	v.SetEnvPrefix("PRINT_BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8084")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.tls.enabled", false)

	// Agent client defaults
	v.SetDefault("agent.host", "127.0.0.1")
	v.SetDefault("agent.port", 42123)
	v.SetDefault("agent.dial_timeout", "5s")
	v.SetDefault("agent.request_timeout", "30s")
	v.SetDefault("agent.ignore_unknown", true)

	// Development agent defaults
	v.SetDefault("agent_server.host", "127.0.0.1")
	v.SetDefault("agent_server.port", 42123)
	v.SetDefault("agent_server.health_check_interval", "10s")
	v.SetDefault("agent_server.operation_timeout", "30s")
	v.SetDefault("agent_server.tcp_printers", []string{})
	v.SetDefault("agent_server.enable_usb", false)
	v.SetDefault("agent_server.default_ports.serial.baud_rate", 9600)
	v.SetDefault("agent_server.default_ports.serial.data_bits", 8)
	v.SetDefault("agent_server.default_ports.serial.stop_bits", 1)
	v.SetDefault("agent_server.default_ports.serial.parity", "none")
	v.SetDefault("agent_server.default_ports.serial.timeout", "5s")
	v.SetDefault("agent_server.default_ports.tcp.connect_timeout", "5s")
	v.SetDefault("agent_server.default_ports.tcp.read_timeout", "10s")
	v.SetDefault("agent_server.default_ports.tcp.write_timeout", "30s")
	v.SetDefault("agent_server.default_ports.tcp.keep_alive", true)
	v.SetDefault("agent_server.default_ports.usb.timeout", "5s")
	v.SetDefault("agent_server.default_ports.usb.bulk_transfer_size", 64)

	// Printer defaults
	v.SetDefault("printer.paper_width", 80)
	v.SetDefault("printer.chars_per_line", 48)
	v.SetDefault("printer.character_encoding", "UTF-8")
	v.SetDefault("printer.transcode", false)
	v.SetDefault("printer.feed_lines", 3)
	v.SetDefault("printer.cut_enabled", true)

	// Imaging defaults
	v.SetDefault("imaging.cache_size", 32)
	v.SetDefault("imaging.fetch_timeout", "10s")
	v.SetDefault("imaging.max_bytes", 4<<20)

	v.SetDefault("preferences.path", "./data/preferences.yaml")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "print_bridge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.migrate_on_start", true)
	v.SetDefault("database.journal_limit", 500)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("security.rate_limit_enabled", true)
	v.SetDefault("security.rate_limit_requests", 20)
	v.SetDefault("security.rate_limit_burst", 40)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// App defaults
	v.SetDefault("app.name", "print-bridge")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Agent.Host == "" {
		return fmt.Errorf("agent.host is required")
	}
	if config.Agent.Port <= 0 || config.Agent.Port > 65535 {
		return fmt.Errorf("agent.port must be between 1 and 65535")
	}
	if config.Printer.CharsPerLine <= 0 {
		return fmt.Errorf("printer.chars_per_line must be positive")
	}
	if config.Printer.FeedLines < 0 {
		return fmt.Errorf("printer.feed_lines must not be negative")
	}
	if config.Database.Enabled && config.Database.Host == "" {
		return fmt.Errorf("database.host is required when database is enabled")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !slices.Contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !slices.Contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.DBName, c.Database.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// GetAgentURL returns the websocket URL of the local print agent
func (c *Config) GetAgentURL() string {
	return fmt.Sprintf("ws://%s:%d", c.Agent.Host, c.Agent.Port)
}

// GetAgentServerAddr returns the listen address of the development agent
func (c *Config) GetAgentServerAddr() string {
	return fmt.Sprintf("%s:%d", c.AgentServer.Host, c.AgentServer.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
