package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	ISchool  ISchoolConfig  `yaml:"ischool"`
	Importer ImporterConfig `yaml:"importer"`
	Workers  WorkersConfig  `yaml:"workers"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Charset            string        `yaml:"charset"`
	ParseTime          bool          `yaml:"parse_time"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
}

type RedisConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
	ImportQueue string `yaml:"import_queue"`
	ExportQueue string `yaml:"export_queue"`
	DLQSuffix   string `yaml:"dlq_suffix"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type ISchoolConfig struct {
	BaseURL        string        `yaml:"base_url"`
	AuthEndpoint   string        `yaml:"auth_endpoint"`
	ScoresEndpoint string        `yaml:"scores_endpoint"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	TokenExpires   time.Duration `yaml:"token_expires"`
	Timeout        time.Duration `yaml:"timeout"`
	BatchSize      int           `yaml:"batch_size"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
}

// CourseCreationMode selects how the Courses stage behaves. In "explicit"
// mode the pipeline inserts course rows itself; in "trigger-assisted" mode
// the database creates course rows alongside classes and the pipeline only
// patches teacher assignments onto them.
type CourseCreationMode string

const (
	CourseCreationExplicit        CourseCreationMode = "explicit"
	CourseCreationTriggerAssisted CourseCreationMode = "trigger-assisted"
)

type ImporterConfig struct {
	ChunkSize          int                `yaml:"chunk_size"`
	RetryAttempts      int                `yaml:"retry_attempts"`
	RetryDelay         time.Duration      `yaml:"retry_delay"`
	ChunkDelay         time.Duration      `yaml:"chunk_delay"`
	LookupLimit        int                `yaml:"lookup_limit"`
	CourseCreationMode CourseCreationMode `yaml:"course_creation_mode"`
}

type WorkersConfig struct {
	Import ImportWorkerConfig `yaml:"import"`
	Export ExportWorkerConfig `yaml:"export"`
}

type ImportWorkerConfig struct {
	Count int `yaml:"count"`
}

type ExportWorkerConfig struct {
	Count int `yaml:"count"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Importer.ApplyDefaults()

	return &config, nil
}

// ApplyDefaults fills in zero-valued importer tunables.
func (c *ImporterConfig) ApplyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 100
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.ChunkDelay <= 0 {
		c.ChunkDelay = 100 * time.Millisecond
	}
	if c.LookupLimit <= 0 {
		c.LookupLimit = 1000
	}
	if c.CourseCreationMode == "" {
		c.CourseCreationMode = CourseCreationExplicit
	}
}

func DefaultImporter() ImporterConfig {
	var c ImporterConfig
	c.ApplyDefaults()
	return c
}

// MySQL DSN format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port,
		c.Database.Name, c.Database.Charset, c.Database.ParseTime, c.Database.Loc)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
