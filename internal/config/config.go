package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Host     string `mapstructure:"DB_HOST"`
	User     string `mapstructure:"DB_USER"`
	Password string `mapstructure:"DB_PASSWORD"`
	Name     string `mapstructure:"DB_NAME"`
	DBPort   string `mapstructure:"DB_PORT"`
	SSLMode  string `mapstructure:"DB_SSLMODE"`

	ServerPort string `mapstructure:"SERVER_PORT"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3BucketName      string `mapstructure:"S3_BUCKET_NAME"`
	S3Protocol        string `mapstructure:"S3_PROTOCOL"`

	AttachmentsField        string        `mapstructure:"ATTACHMENTS_FIELD"`
	AttachmentsPath         string        `mapstructure:"ATTACHMENTS_S3_PATH"`
	AttachmentsAllowedTypes string        `mapstructure:"ATTACHMENTS_ALLOWED_TYPES"`
	AttachmentsDatePrefix   string        `mapstructure:"ATTACHMENTS_DATE_PREFIX"`
	AttachmentsPrefix       string        `mapstructure:"ATTACHMENTS_PREFIX"`
	AttachmentsOverwrite    bool          `mapstructure:"ATTACHMENTS_OVERWRITE"`
	MaxUploadConcurrency    int           `mapstructure:"MAX_UPLOAD_CONCURRENCY"`
	MaxUploadMemory         int64         `mapstructure:"MAX_UPLOAD_MEMORY"`
	UploadReportTTL         time.Duration `mapstructure:"UPLOAD_REPORT_TTL"`
	PresignTTL              time.Duration `mapstructure:"PRESIGN_TTL"`

	WSAllowedOrigins string `mapstructure:"WS_ALLOWED_ORIGINS"`
}

func Load() (*Config, error) {
	viper.AddConfigPath("./")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("ATTACHMENTS_FIELD", "files")
	viper.SetDefault("ATTACHMENTS_S3_PATH", "attachments")
	viper.SetDefault("ATTACHMENTS_OVERWRITE", true)
	viper.SetDefault("MAX_UPLOAD_CONCURRENCY", 0)
	viper.SetDefault("MAX_UPLOAD_MEMORY", 32<<20)
	viper.SetDefault("UPLOAD_REPORT_TTL", 24*time.Hour)
	viper.SetDefault("PRESIGN_TTL", 15*time.Minute)
}

func (cfg *Config) Validate() error {
	if cfg.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if cfg.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if cfg.DBPort == "" {
		return fmt.Errorf("DB_PORT is required")
	}

	if cfg.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if cfg.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	return nil
}

// DSN строка подключения к Postgres
func (cfg *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.DBPort, cfg.SSLMode)
}

// AllowedTypes разбирает ATTACHMENTS_ALLOWED_TYPES ("image/png,image/jpeg")
func (cfg *Config) AllowedTypes() []string {
	return splitList(cfg.AttachmentsAllowedTypes)
}

// AllowedOrigins разбирает WS_ALLOWED_ORIGINS; пустой список разрешает все
func (cfg *Config) AllowedOrigins() []string {
	return splitList(cfg.WSAllowedOrigins)
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
