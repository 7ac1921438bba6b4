package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	LogLevel  string          `yaml:"log_level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RabbitMQConfig configures the optional alert-event publisher. An empty URL
// disables event publishing entirely.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type SMTPConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	From        string        `yaml:"from"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// FetchConfig selects and configures the fetch strategy. Strategy is either
// "browser" (headless Chrome) or "rendersvc" (managed rendering service).
type FetchConfig struct {
	Strategy          string        `yaml:"strategy"`
	ReadinessSelector string        `yaml:"readiness_selector"`
	ReadinessTimeout  time.Duration `yaml:"readiness_timeout"`
	MinDelay          time.Duration `yaml:"min_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	UserAgent         string        `yaml:"user_agent"`
	RenderSvc         RenderSvcConfig `yaml:"rendersvc"`
}

type RenderSvcConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	APIKey      string        `yaml:"api_key"`
	CountryCode string        `yaml:"country_code"`
	WaitMillis  int           `yaml:"wait_millis"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ReconcileConfig struct {
	Interval        time.Duration `yaml:"interval"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`
	BlockedBackoff  time.Duration `yaml:"blocked_backoff"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Fetch.Strategy {
	case "", "browser", "rendersvc":
	default:
		return fmt.Errorf("unknown fetch strategy %q", c.Fetch.Strategy)
	}
	if c.Fetch.Strategy == "rendersvc" && c.Fetch.RenderSvc.APIKey == "" {
		return fmt.Errorf("rendersvc strategy requires an api key")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "pricepulse"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "price_drops"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "price_drop_alerts"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.DialTimeout == 0 {
		c.SMTP.DialTimeout = 15 * time.Second
	}
	if c.Fetch.Strategy == "" {
		c.Fetch.Strategy = "browser"
	}
	if c.Fetch.ReadinessSelector == "" {
		c.Fetch.ReadinessSelector = "#productTitle, h1#title"
	}
	if c.Fetch.ReadinessTimeout == 0 {
		c.Fetch.ReadinessTimeout = 10 * time.Second
	}
	if c.Fetch.MinDelay == 0 {
		c.Fetch.MinDelay = 2 * time.Second
	}
	if c.Fetch.MaxDelay == 0 {
		c.Fetch.MaxDelay = 4 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	}
	if c.Fetch.RenderSvc.Endpoint == "" {
		c.Fetch.RenderSvc.Endpoint = "https://app.scrapingbee.com/api/v1/"
	}
	if c.Fetch.RenderSvc.CountryCode == "" {
		c.Fetch.RenderSvc.CountryCode = "us"
	}
	if c.Fetch.RenderSvc.WaitMillis == 0 {
		c.Fetch.RenderSvc.WaitMillis = 5000
	}
	if c.Fetch.RenderSvc.Timeout == 0 {
		c.Fetch.RenderSvc.Timeout = 90 * time.Second
	}
	if c.Reconcile.Interval == 0 {
		c.Reconcile.Interval = 30 * time.Minute
	}
	if c.Reconcile.FetchTimeout == 0 {
		c.Reconcile.FetchTimeout = 2 * time.Minute
	}
	if c.Reconcile.DispatchTimeout == 0 {
		c.Reconcile.DispatchTimeout = 30 * time.Second
	}
	if c.Reconcile.BlockedBackoff == 0 {
		c.Reconcile.BlockedBackoff = 6 * time.Hour
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
