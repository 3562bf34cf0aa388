package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Services    []ServiceConfig   `mapstructure:"services"`
	System      SystemConfig      `mapstructure:"system"`
	Security    SecurityConfig    `mapstructure:"security"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Retention   RetentionConfig   `mapstructure:"retention"`
	AlertEngine AlertEngineConfig `mapstructure:"alertEngine"`
	SelfHealing SelfHealingConfig `mapstructure:"selfHealing"`
	Backup      BackupConfig      `mapstructure:"backup"`
	Federation  FederationConfig  `mapstructure:"federation"`
}

// AlertEngineConfig holds the control-plane alert orchestrator configuration.
type AlertEngineConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	EvaluationInterval  int     `mapstructure:"evaluationInterval"`  // seconds
	CorrelationWindow   int     `mapstructure:"correlationWindow"`   // seconds
	DynamicThresholdTTL int     `mapstructure:"dynamicThresholdTtl"` // seconds, cache lifetime
	DefaultSensitivity  float64 `mapstructure:"defaultSensitivity"`  // multiplier applied to std-dev
}

// SelfHealingConfig holds the self-healing orchestrator configuration.
type SelfHealingConfig struct {
	Enabled               bool     `mapstructure:"enabled"`
	CheckInterval         int      `mapstructure:"checkInterval"` // seconds
	MaxRecoveryAttempts   int      `mapstructure:"maxRecoveryAttempts"`
	RecoveryCooldown      int      `mapstructure:"recoveryCooldown"` // seconds
	BlacklistThreshold    int      `mapstructure:"blacklistThreshold"`
	MaintenanceWindowCron string   `mapstructure:"maintenanceWindowCron"`
	LogRotationPaths      []string `mapstructure:"logRotationPaths"`
	LogRotationMaxSizeMB  int      `mapstructure:"logRotationMaxSizeMb"`
}

// BackupConfig holds the backup orchestrator configuration.
type BackupConfig struct {
	Enabled       bool           `mapstructure:"enabled"`
	WorkDir       string         `mapstructure:"workDir"`
	Targets       []BackupTarget `mapstructure:"targets"`
	CloudEndpoint string         `mapstructure:"cloudEndpoint"`
	CloudBucket   string         `mapstructure:"cloudBucket"`
	CloudAccessID string         `mapstructure:"cloudAccessId"`
	CloudSecret   string         `mapstructure:"cloudSecret"`
	CloudUseSSL   bool           `mapstructure:"cloudUseSsl"`
}

// BackupTarget describes one thing the backup orchestrator knows how to back up.
type BackupTarget struct {
	ID              string   `mapstructure:"id"`
	Name            string   `mapstructure:"name"`
	Type            string   `mapstructure:"type"` // "filesystem" | "sqlite" | "mysql" | "postgres" | "influxdb"
	Path            string   `mapstructure:"path"`
	DSN             string   `mapstructure:"dsn"`
	Schedule        string   `mapstructure:"schedule"` // cron expression or "@every 1h" style
	RetentionDays   int      `mapstructure:"retentionDays"`
	StorageClass    string   `mapstructure:"storageClass"`  // "local" | "network" | "cloud"
	BackupType      string   `mapstructure:"backupType"`    // "full" | "incremental" | "differential" | "snapshot"
	ExcludePatterns []string `mapstructure:"excludePatterns"`
	PreCommand      string   `mapstructure:"preCommand"`
	PostCommand     string   `mapstructure:"postCommand"`
	KeepCount       int      `mapstructure:"keepCount"`
}

// FederationConfig holds the federation orchestrator configuration.
type FederationConfig struct {
	Enabled             bool             `mapstructure:"enabled"`
	LocalNodeID         string           `mapstructure:"localNodeId"`
	MetricInterval      int              `mapstructure:"metricInterval"`      // seconds
	HealthCheckInterval int              `mapstructure:"healthCheckInterval"` // seconds
	AlertInterval       int              `mapstructure:"alertInterval"`       // seconds
	Nodes               []FederationNode `mapstructure:"nodes"`
}

// FederationNode describes a remote node participating in federation.
type FederationNode struct {
	ID       string `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"` // "primary" | "secondary" | "edge"
	Endpoint string `mapstructure:"endpoint"`
	BearerKey string `mapstructure:"bearerKey"`
}

// SystemConfig holds system resource monitoring configuration
type SystemConfig struct {
	Enabled         bool      `mapstructure:"enabled"`
	CollectInterval int       `mapstructure:"collectInterval"` // seconds
	StoreInterval   int       `mapstructure:"storeInterval"`   // seconds
	SSH             SSHConfig `mapstructure:"ssh"`
}

// SSHConfig holds SSH-specific configuration
type SSHConfig struct {
	ConnectionTimeout int `mapstructure:"connectionTimeout"` // seconds
	CommandTimeout    int `mapstructure:"commandTimeout"`    // seconds
	MaxReconnects     int `mapstructure:"maxReconnectAttempts"`
	KeepAliveInterval int `mapstructure:"keepAliveInterval"` // seconds
}

// SecurityConfig holds encryption configuration
type SecurityConfig struct {
	EncryptionKey string `mapstructure:"encryptionKey"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
}

// ServiceConfig holds service monitoring configuration
type ServiceConfig struct {
	ID             string            `mapstructure:"id"`
	Name           string            `mapstructure:"name"`
	Type           string            `mapstructure:"type"` // "http" or "tcp"
	URL            string            `mapstructure:"url"`
	Method         string            `mapstructure:"method"`
	Host           string            `mapstructure:"host"`
	Port           int               `mapstructure:"port"`
	Interval       int               `mapstructure:"interval"` // seconds
	Timeout        int               `mapstructure:"timeout"`  // milliseconds
	ExpectedStatus int               `mapstructure:"expectedStatus"`
	Headers        map[string]string `mapstructure:"headers"`
	Tags           []string          `mapstructure:"tags"`
}

// AlertsConfig holds alerting configuration
type AlertsConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures int           `mapstructure:"consecutiveFailures"`
	LogAlertCooldown    int           `mapstructure:"logAlertCooldown"` // minutes, dedup cooldown for log alerts
	Channels            AlertChannels `mapstructure:"channels"`
}

// AlertChannels holds different alert channel configurations
type AlertChannels struct {
	Slack     SlackConfig     `mapstructure:"slack"`
	Email     EmailConfig     `mapstructure:"email"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	PagerDuty PagerDutyConfig `mapstructure:"pagerduty"`
	SMS       SMSConfig       `mapstructure:"sms"`
}

// SlackConfig holds Slack configuration
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhookUrl"`
	BotToken   string `mapstructure:"botToken"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig holds a generic outbound webhook configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// PagerDutyConfig holds PagerDuty Events API v2 configuration.
type PagerDutyConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	RoutingKey     string `mapstructure:"routingKey"`
	EventsEndpoint string `mapstructure:"eventsEndpoint"`
}

// SMSConfig holds an SMS gateway webhook configuration.
type SMSConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	GatewayURL  string   `mapstructure:"gatewayUrl"`
	Recipients  []string `mapstructure:"recipients"`
}

// EmailConfig holds email configuration
type EmailConfig struct {
	Enabled    bool       `mapstructure:"enabled"`
	SMTP       SMTPConfig `mapstructure:"smtp"`
	Recipients []string   `mapstructure:"recipients"`
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// RetentionConfig holds data retention configuration
type RetentionConfig struct {
	Metrics       string `mapstructure:"metrics"`
	Logs          string `mapstructure:"logs"`
	SystemMetrics string `mapstructure:"systemMetrics"`
}

// Global config instance
var cfg *Config
var viperInstance *viper.Viper

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viperInstance = viper.New()
	v := viperInstance

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.mode", "production")
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./data/monitoring.db")
	v.SetDefault("alerts.enabled", false)
	v.SetDefault("alerts.consecutiveFailures", 3)
	v.SetDefault("alerts.logAlertCooldown", 5)
	v.SetDefault("system.enabled", true)
	v.SetDefault("system.collectInterval", 5)
	v.SetDefault("system.storeInterval", 60)
	v.SetDefault("system.ssh.connectionTimeout", 10)
	v.SetDefault("system.ssh.commandTimeout", 5)
	v.SetDefault("system.ssh.maxReconnectAttempts", 10)
	v.SetDefault("system.ssh.keepAliveInterval", 30)
	v.SetDefault("retention.metrics", "7d")
	v.SetDefault("retention.logs", "3d")
	v.SetDefault("retention.systemMetrics", "7d")
	v.SetDefault("alertEngine.enabled", true)
	v.SetDefault("alertEngine.evaluationInterval", 30)
	v.SetDefault("alertEngine.correlationWindow", 300)
	v.SetDefault("alertEngine.dynamicThresholdTtl", 300)
	v.SetDefault("alertEngine.defaultSensitivity", 2.0)
	v.SetDefault("selfHealing.enabled", true)
	v.SetDefault("selfHealing.checkInterval", 60)
	v.SetDefault("selfHealing.maxRecoveryAttempts", 3)
	v.SetDefault("selfHealing.recoveryCooldown", 300)
	v.SetDefault("selfHealing.blacklistThreshold", 5)
	v.SetDefault("selfHealing.maintenanceWindowCron", "0 0 3 * * *")
	v.SetDefault("selfHealing.logRotationMaxSizeMb", 100)
	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.workDir", "./data/backups")
	v.SetDefault("backup.cloudUseSsl", true)
	v.SetDefault("federation.enabled", false)
	v.SetDefault("federation.localNodeId", "local")
	v.SetDefault("federation.metricInterval", 60)
	v.SetDefault("federation.healthCheckInterval", 30)
	v.SetDefault("federation.alertInterval", 120)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	// Environment variable overrides
	v.SetEnvPrefix("MT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Set default values for services
	for i := range cfg.Services {
		if cfg.Services[i].Method == "" {
			cfg.Services[i].Method = "GET"
		}
		if cfg.Services[i].Interval == 0 {
			cfg.Services[i].Interval = 30
		}
		if cfg.Services[i].Timeout == 0 {
			cfg.Services[i].Timeout = 5000
		}
		if cfg.Services[i].ExpectedStatus == 0 {
			cfg.Services[i].ExpectedStatus = 200
		}
	}

	return cfg, nil
}

// Get returns the global config instance
func Get() *Config {
	return cfg
}

// UpdateSettings updates mutable config fields in memory and persists to config.json
func UpdateSettings(consecutiveFailures int, metricsRetention, logsRetention string) error {
	if viperInstance == nil || cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	viperInstance.Set("alerts.consecutiveFailures", consecutiveFailures)
	viperInstance.Set("retention.metrics", metricsRetention)
	viperInstance.Set("retention.logs", logsRetention)
	cfg.Alerts.ConsecutiveFailures = consecutiveFailures
	cfg.Retention.Metrics = metricsRetention
	cfg.Retention.Logs = logsRetention
	return viperInstance.WriteConfig()
}

// GetRetentionDuration parses retention string to duration
func GetRetentionDuration(retention string) time.Duration {
	retention = strings.TrimSpace(strings.ToLower(retention))

	var multiplier time.Duration
	var value int

	if strings.HasSuffix(retention, "d") {
		multiplier = 24 * time.Hour
		fmt.Sscanf(retention, "%dd", &value)
	} else if strings.HasSuffix(retention, "h") {
		multiplier = time.Hour
		fmt.Sscanf(retention, "%dh", &value)
	} else if strings.HasSuffix(retention, "m") {
		multiplier = time.Minute
		fmt.Sscanf(retention, "%dm", &value)
	} else {
		// Default to days
		fmt.Sscanf(retention, "%d", &value)
		multiplier = 24 * time.Hour
	}

	if value <= 0 {
		value = 7 // Default 7 days
	}

	return time.Duration(value) * multiplier
}
