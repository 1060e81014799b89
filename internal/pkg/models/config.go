package models

// Config represents application configuration
type Config struct {
	App           AppConfig
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	NSQ           NSQConfig
	JWT           JWTConfig
	Naver         NaverConfig
	HomeAssistant HomeAssistantConfig
	Poller        PollerConfig
	Logger        LoggerConfig
}

// AppConfig contains application-specific configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
	// APIKey guards the read endpoints when set; empty leaves them open.
	APIKey string
}

// DatabaseConfig contains the route store connection configuration.
// An empty Host disables Postgres and routes load from the environment.
type DatabaseConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Database  string
	SSLMode   string
	MaxConns  int
	IdleConns int
}

// RedisConfig contains the second-level geocode cache configuration.
// An empty Host disables Redis; the in-memory cache still applies.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// NSQConfig contains the result event publisher configuration.
// An empty Address disables publishing.
type NSQConfig struct {
	Address string
	Topic   string
}

// JWTConfig contains admin API authentication configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in minutes
	Issuer     string
}

// NaverConfig contains the Naver Cloud Platform Maps credentials and
// endpoint roots. Both key fields attach to every Directions, Geocoding
// and Reverse-Geocoding call.
type NaverConfig struct {
	APIKeyID string
	APIKey   string
	BaseURL  string
	Timeout  int // in seconds
}

// HomeAssistantConfig contains the entity read boundary configuration.
type HomeAssistantConfig struct {
	BaseURL string
	Token   string
	Timeout int // in seconds
}

// PollerConfig contains the per-route poll scheduling configuration.
type PollerConfig struct {
	IntervalMinutes   int
	MaxBackoffMinutes int
	BackoffMultiplier float64
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level    string
	FilePath string
}
