package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	JWT      JWTConfig
	Gateway  GatewayConfig
	Booking  BookingConfig
	Escrow   EscrowConfig
}

type AppConfig struct {
	Port           string
	Env            string
	Timezone       string
	LogLevel       string
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	SlotCacheTTL time.Duration
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// JWTConfig verifies tokens minted by the identity service. An empty Issuer
// skips the iss check.
type JWTConfig struct {
	Secret string
	Issuer string
	Leeway time.Duration
}

type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// BookingConfig drives the booking coordinator and its cleanup sweep.
type BookingConfig struct {
	PendingTimeout          time.Duration
	CleanupSchedule         string
	DoctorRescheduleNotice  time.Duration
	PatientRescheduleNotice time.Duration
}

type EscrowConfig struct {
	ReleaseSchedule       string
	RefundRetrySchedule   string
	HoldPeriod            time.Duration
	DefaultCommissionRate decimal.Decimal
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_TIMEZONE", "UTC")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("JWT_LEEWAY", "30s")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SLOT_CACHE_TTL", "5m")
	viper.SetDefault("NOTIFICATION_EXCHANGE", "healthcare.events")
	viper.SetDefault("PAYMENT_GATEWAY_TIMEOUT", "10s")
	viper.SetDefault("BOOKING_PENDING_TIMEOUT", "15m")
	viper.SetDefault("BOOKING_CLEANUP_SCHEDULE", "@every 5m")
	viper.SetDefault("DOCTOR_RESCHEDULE_NOTICE", "1h")
	viper.SetDefault("PATIENT_RESCHEDULE_NOTICE", "20h")
	viper.SetDefault("ESCROW_RELEASE_SCHEDULE", "@every 1h")
	viper.SetDefault("REFUND_RETRY_SCHEDULE", "@every 15m")
	viper.SetDefault("ESCROW_HOLD_PERIOD", "24h")
	viper.SetDefault("DEFAULT_COMMISSION_RATE", "20")
}

func LoadConfig() (*Config, error) {
	setDefaults()
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// The .env file is optional; environment variables alone are enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	commissionRate, err := decimal.NewFromString(viper.GetString("DEFAULT_COMMISSION_RATE"))
	if err != nil {
		return nil, err
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errors.New("DEFAULT_COMMISSION_RATE must be between 0 and 100")
	}

	config := &Config{
		App: AppConfig{
			Port:           viper.GetString("APP_PORT"),
			Env:            viper.GetString("APP_ENV"),
			Timezone:       viper.GetString("APP_TIMEZONE"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:         viper.GetString("REDIS_HOST"),
			Port:         viper.GetString("REDIS_PORT"),
			Password:     viper.GetString("REDIS_PASSWORD"),
			DB:           viper.GetInt("REDIS_DB"),
			SlotCacheTTL: viper.GetDuration("SLOT_CACHE_TTL"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      viper.GetString("RABBITMQ_URL"),
			Exchange: viper.GetString("NOTIFICATION_EXCHANGE"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
			Issuer: viper.GetString("JWT_ISSUER"),
			Leeway: viper.GetDuration("JWT_LEEWAY"),
		},
		Gateway: GatewayConfig{
			BaseURL: viper.GetString("PAYMENT_GATEWAY_BASE_URL"),
			APIKey:  viper.GetString("PAYMENT_GATEWAY_API_KEY"),
			Timeout: viper.GetDuration("PAYMENT_GATEWAY_TIMEOUT"),
		},
		Booking: BookingConfig{
			PendingTimeout:          viper.GetDuration("BOOKING_PENDING_TIMEOUT"),
			CleanupSchedule:         viper.GetString("BOOKING_CLEANUP_SCHEDULE"),
			DoctorRescheduleNotice:  viper.GetDuration("DOCTOR_RESCHEDULE_NOTICE"),
			PatientRescheduleNotice: viper.GetDuration("PATIENT_RESCHEDULE_NOTICE"),
		},
		Escrow: EscrowConfig{
			ReleaseSchedule:       viper.GetString("ESCROW_RELEASE_SCHEDULE"),
			RefundRetrySchedule:   viper.GetString("REFUND_RETRY_SCHEDULE"),
			HoldPeriod:            viper.GetDuration("ESCROW_HOLD_PERIOD"),
			DefaultCommissionRate: commissionRate,
		},
	}

	return config, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
