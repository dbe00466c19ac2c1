package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	defaultImageMaxBytes    = 10 << 20
	defaultDocumentMaxBytes = 50 << 20
	defaultPriceFileMaxMB   = 10
)

type Config struct {
	ServicePort      string
	MetricsPort      string
	Environment      string
	PostgreSQLConfig PostgreSQLConfig
	JWTSecret        string
	KafkaConfig      KafkaConfig
	TracingConfig    TracingConfig
	StorageConfig    StorageConfig
	UploadConfig     UploadConfig
	ImageConfig      ImageConfig
	CatalogConfig    CatalogConfig
}

type PostgreSQLConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUsername string
	DBPassword string
}

type KafkaConfig struct {
	BrokerAddress   string
	BrokerTopic     string
	BrokerPartition int
}

type TracingConfig struct {
	CollectorHost string
}

type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	PublicURL       string
	UseSSL          bool
}

type UploadConfig struct {
	ImageMaxBytes     int64
	DocumentMaxBytes  int64
	PriceFileMaxBytes int64
	// RateLimit is requests per second per client on upload endpoints.
	RateLimit float64
}

type ImageConfig struct {
	MaxWidth         int
	MaxHeight        int
	Quality          int
	ThumbnailQuality int
}

type CatalogConfig struct {
	DefaultCurrency string
}

func CreateNewConfig() *Config {
	godotenv.Load(".env")

	conf := Config{
		ServicePort: os.Getenv("SERVICE_PORT"),
		MetricsPort: os.Getenv("METRICS_PORT"),
		Environment: os.Getenv("ENVIRONMENT"),
		PostgreSQLConfig: PostgreSQLConfig{
			DBHost:     os.Getenv("DB_HOST"),
			DBName:     os.Getenv("DB_NAME"),
			DBPort:     os.Getenv("DB_PORT"),
			DBUsername: os.Getenv("DB_USERNAME"),
			DBPassword: os.Getenv("DB_PASSWORD"),
		},
		JWTSecret: os.Getenv("JWT_SECRET"),
		KafkaConfig: KafkaConfig{
			BrokerAddress:   os.Getenv("BROKER_ADDRESS"),
			BrokerTopic:     os.Getenv("BROKER_TOPIC"),
			BrokerPartition: getEnvInt("BROKER_PARTITION", 0),
		},
		TracingConfig: TracingConfig{
			CollectorHost: os.Getenv("COLLECTOR_HOST"),
		},
		StorageConfig: StorageConfig{
			Endpoint:        os.Getenv("STORAGE_ENDPOINT"),
			AccessKeyID:     os.Getenv("STORAGE_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("STORAGE_SECRET_ACCESS_KEY"),
			Bucket:          os.Getenv("STORAGE_BUCKET"),
			Region:          getEnv("STORAGE_REGION", "auto"),
			PublicURL:       os.Getenv("STORAGE_PUBLIC_URL"),
			UseSSL:          getEnv("STORAGE_USE_SSL", "true") == "true",
		},
		UploadConfig: UploadConfig{
			ImageMaxBytes:     int64(getEnvInt("UPLOAD_IMAGE_MAX_MB", defaultImageMaxBytes>>20)) << 20,
			DocumentMaxBytes:  int64(getEnvInt("UPLOAD_DOCUMENT_MAX_MB", defaultDocumentMaxBytes>>20)) << 20,
			PriceFileMaxBytes: int64(getEnvInt("UPLOAD_PRICE_FILE_MAX_MB", defaultPriceFileMaxMB)) << 20,
			RateLimit:         getEnvFloat("UPLOAD_RATE_LIMIT", 5),
		},
		ImageConfig: ImageConfig{
			MaxWidth:         getEnvInt("IMAGE_MAX_WIDTH", 2048),
			MaxHeight:        getEnvInt("IMAGE_MAX_HEIGHT", 2048),
			Quality:          getEnvInt("IMAGE_QUALITY", 85),
			ThumbnailQuality: getEnvInt("IMAGE_THUMBNAIL_QUALITY", 80),
		},
		CatalogConfig: CatalogConfig{
			DefaultCurrency: getEnv("DEFAULT_CURRENCY", "RUB"),
		},
	}

	return &conf
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}
