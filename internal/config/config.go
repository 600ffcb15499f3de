package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const montrealDataset = "http://donnees.ville.montreal.qc.ca/dataset/f170fecc-18db-44bc-b4fe-5b0b6d2c7297/resource/"

// Config holds the application configuration
type Config struct {
	Sources      SourcesConfig  `yaml:"sources"`
	Cache        string         `yaml:"cache,omitempty"`         // "sqlite" (default), "memory" or "none"
	DBPath       string         `yaml:"db_path,omitempty"`       // SQLite cache file (fallback: data.db)
	FetchTimeout time.Duration  `yaml:"fetch_timeout,omitempty"` // Whole-build timeout (fallback: 2m)
	Server       ServerConfig   `yaml:"server,omitempty"`
	MQTT         MQTTConfig     `yaml:"mqtt,omitempty"`
	InfluxDB     InfluxDBConfig `yaml:"influxdb,omitempty"`
	Kafka        KafkaConfig    `yaml:"kafka,omitempty"`
}

// SourcesConfig lists the CSV resources to fetch
type SourcesConfig struct {
	Locations LocationsSource `yaml:"locations"`
	Counts    []CountsSource  `yaml:"counts"`
}

// LocationsSource describes the counter locations CSV and its column labels
type LocationsSource struct {
	URL      string          `yaml:"url"`
	Encoding string          `yaml:"encoding,omitempty"` // "latin1" (default) or "utf8"
	Columns  LocationColumns `yaml:"columns,omitempty"`
}

// LocationColumns maps source column labels to location fields
type LocationColumns struct {
	Name      string `yaml:"name,omitempty"`      // fallback: nom_comptage
	AltName   string `yaml:"alt_name,omitempty"`  // fallback: nom
	Longitude string `yaml:"longitude,omitempty"` // fallback: coord_X
	Latitude  string `yaml:"latitude,omitempty"`  // fallback: coord_Y
}

// CountsSource is one yearly counts CSV
type CountsSource struct {
	Year       int    `yaml:"year"`
	URL        string `yaml:"url"`
	Encoding   string `yaml:"encoding,omitempty"`    // "utf8" (default) or "latin1"
	DateColumn string `yaml:"date_column,omitempty"` // fallback: Date
}

// ServerConfig holds dashboard settings
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr,omitempty"` // fallback: :8080
	Animation  string `yaml:"animation,omitempty"`   // none, slow, medium (default), fast
}

// MQTTConfig holds MQTT broker settings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // fallback: velocount
}

// InfluxDBConfig holds InfluxDB v2 settings
type InfluxDBConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url"`
	Org         string `yaml:"org"`
	Token       string `yaml:"token"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement,omitempty"` // fallback: bicycle_monthly_counts
}

// KafkaConfig holds Kafka producer settings
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic,omitempty"` // fallback: bicycle-monthly-counts
}

// Load reads the config file and applies environment overrides
func Load(configPath string) (*Config, error) {
	cfg, err := LoadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads the config file alone, without environment overrides
func LoadFile(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// Defaults only
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

func (c *Config) applyEnv() {
	c.Server.ListenAddr = getEnv("VELOCOUNT_LISTEN_ADDR", c.Server.ListenAddr)
	c.Server.Animation = getEnv("VELOCOUNT_ANIMATION", c.Server.Animation)
	c.DBPath = getEnv("VELOCOUNT_DB_PATH", c.DBPath)
	c.Cache = getEnv("VELOCOUNT_CACHE", c.Cache)
	c.FetchTimeout = getEnvDuration("VELOCOUNT_FETCH_TIMEOUT", c.FetchTimeout)
	if brokers := getEnv("VELOCOUNT_KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
	c.InfluxDB.Token = getEnv("VELOCOUNT_INFLUX_TOKEN", c.InfluxDB.Token)
	c.MQTT.Password = getEnv("VELOCOUNT_MQTT_PASSWORD", c.MQTT.Password)
}

// GetLocationsSource returns the configured locations source, falling back to
// the Montreal open data resource
func (c *Config) GetLocationsSource() LocationsSource {
	src := c.Sources.Locations
	if src.URL == "" {
		src.URL = montrealDataset + "c7d0546a-a218-479e-bc9f-ce8f13ca972c/download/localisationcompteursvelo2015.csv"
	}
	if src.Encoding == "" {
		src.Encoding = "latin1"
	}
	if src.Columns.Name == "" {
		src.Columns.Name = "nom_comptage"
	}
	if src.Columns.AltName == "" {
		src.Columns.AltName = "nom"
	}
	if src.Columns.Longitude == "" {
		src.Columns.Longitude = "coord_X"
	}
	if src.Columns.Latitude == "" {
		src.Columns.Latitude = "coord_Y"
	}
	return src
}

// GetCountsSources returns the configured yearly count sources, falling back
// to the Montreal 2015-2018 resources
func (c *Config) GetCountsSources() []CountsSource {
	sources := c.Sources.Counts
	if len(sources) == 0 {
		sources = []CountsSource{
			{Year: 2018, URL: montrealDataset + "eea2434f-32b3-4dc5-9035-f1642509f0e7/download/comptage_velo_2018.csv"},
			{Year: 2017, URL: montrealDataset + "83063700-8fe7-4e6f-8c4b-ed55f4602514/download/comptagevelo2017.csv"},
			{Year: 2016, URL: montrealDataset + "6caecdd0-e5ac-48c1-a0cc-5b537936d5f6/download/comptagevelo20162.csv"},
			{Year: 2015, URL: montrealDataset + "64c26fd3-0bdf-45f8-92c6-715a9c852a7b/download/comptagevelo20152.csv"},
		}
	}

	result := make([]CountsSource, len(sources))
	for i, src := range sources {
		if src.Encoding == "" {
			src.Encoding = "utf8"
		}
		if src.DateColumn == "" {
			src.DateColumn = "Date"
		}
		result[i] = src
	}
	return result
}

// GetCache returns the cache kind with a default of sqlite
func (c *Config) GetCache() string {
	if c.Cache == "" {
		return "sqlite"
	}
	return c.Cache
}

// GetDBPath returns the SQLite cache path with a default of data.db
func (c *Config) GetDBPath() string {
	if c.DBPath == "" {
		return "data.db"
	}
	return c.DBPath
}

// GetFetchTimeout returns the build timeout with a default of 2 minutes
func (c *Config) GetFetchTimeout() time.Duration {
	if c.FetchTimeout <= 0 {
		return 2 * time.Minute
	}
	return c.FetchTimeout
}

// GetListenAddr returns the dashboard address with a default of :8080
func (c *Config) GetListenAddr() string {
	if c.Server.ListenAddr == "" {
		return ":8080"
	}
	return c.Server.ListenAddr
}

// GetAnimation returns the animation speed name with a default of medium
func (c *Config) GetAnimation() string {
	if c.Server.Animation == "" {
		return "medium"
	}
	return c.Server.Animation
}

// GetTopicPrefix returns the MQTT topic prefix with a default of velocount
func (c *MQTTConfig) GetTopicPrefix() string {
	if c.TopicPrefix == "" {
		return "velocount"
	}
	return c.TopicPrefix
}

// GetMeasurement returns the InfluxDB measurement name
func (c *InfluxDBConfig) GetMeasurement() string {
	if c.Measurement == "" {
		return "bicycle_monthly_counts"
	}
	return c.Measurement
}

// GetTopic returns the Kafka topic name
func (c *KafkaConfig) GetTopic() string {
	if c.Topic == "" {
		return "bicycle-monthly-counts"
	}
	return c.Topic
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
