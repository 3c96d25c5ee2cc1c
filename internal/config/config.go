package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort             string
	AppEnv              string
	AWSRegion           string
	AWSEndpointURL      string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID      string
	AWSSecretKey        string
	DynamoTables        DynamoTables
	CacheDriver         string // "redis" | "dynamo" | "memory"
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	DeliveryDriver      string // "smtp" | "sns"
	DeliveryWorkers     int
	DeliveryBuffer      int
	SNSRegion           string
	SNSDeliveryTopicARN string
	SMTPHost            string
	SMTPPort            int
	SMTPFrom            string
	SMTPUsername        string
	SMTPPassword        string
	JWTPrivateKeyPath   string
	JWTExpiryMinutes    int
	OTP                 OTP
	AllowedOrigins      []string // CORS allowed origins
	TrustedProxies      []string // IPs or CIDRs whose X-Forwarded-For is honoured
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users     string
	Passcodes string
}

// OTP holds the passcode settings for the verify-email purpose.
type OTP struct {
	VerifyEmailLength int
	VerifyEmailMode   string // "numeric" | "alphabetic" | "alphanumeric"
	ExpireMinutes     int
	ResendMinutes     int
	EmailSubject      string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:     getEnv("DYNAMO_TABLE_USERS", "users"),
			Passcodes: getEnv("DYNAMO_TABLE_PASSCODES", "passcodes"),
		},
		CacheDriver:         getEnv("CACHE_DRIVER", "redis"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		DeliveryDriver:      getEnv("DELIVERY_DRIVER", "smtp"),
		DeliveryWorkers:     getEnvInt("DELIVERY_WORKERS", 2),
		DeliveryBuffer:      getEnvInt("DELIVERY_BUFFER", 100),
		SNSRegion:           getEnv("SNS_REGION", "us-east-1"),
		SNSDeliveryTopicARN: getEnv("SNS_DELIVERY_TOPIC_ARN", ""),
		SMTPHost:            getEnv("SMTP_HOST", "localhost"),
		SMTPPort:            getEnvInt("SMTP_PORT", 1025),
		SMTPFrom:            getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		JWTPrivateKeyPath:   getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTExpiryMinutes:    getEnvInt("JWT_EXPIRY_MINUTES", 30),
		OTP: OTP{
			VerifyEmailLength: getEnvPositiveInt("OTP_VERIFY_EMAIL_LENGTH", 6),
			VerifyEmailMode:   getEnv("OTP_VERIFY_EMAIL_MODE", "numeric"),
			ExpireMinutes:     getEnvPositiveInt("OTP_EXPIRE_MINUTES", 10),
			ResendMinutes:     getEnvNonNegativeInt("OTP_RESEND_MINUTES", 1),
			EmailSubject:      getEnv("OTP_EMAIL_SUBJECT", "Verify your email"),
		},
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvPositiveInt is getEnvInt that also falls back on zero or negative values.
func getEnvPositiveInt(key string, fallback int) int {
	if n := getEnvInt(key, fallback); n > 0 {
		return n
	}
	return fallback
}

// getEnvNonNegativeInt is getEnvInt that falls back on negative values. Zero is kept.
func getEnvNonNegativeInt(key string, fallback int) int {
	if n := getEnvInt(key, fallback); n >= 0 {
		return n
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}
