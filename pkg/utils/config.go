package utils

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Booking   BookingConfig
	Stripe    StripeConfig
	PayPal    PayPalConfig
	Mpesa     MpesaConfig
	Signaling SignalingConfig
	Broker    BrokerConfig
}

type AppConfig struct {
	Name        string
	Port        string
	Debug       bool
	LogPath     string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	MaxConns    int32
	AutoMigrate bool
}

type BookingConfig struct {
	// SessionPrice in minor units, used when a booking omits the amount
	SessionPrice    int64
	ProviderTimeout time.Duration
}

type StripeConfig struct {
	SecretKey   string
	Currency    string
	ProductName string
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	Env          string
	Currency     string
}

type MpesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	Env            string
	CallbackURL    string
	StrictMatch    bool
}

type SignalingConfig struct {
	SendBuffer   int
	PingInterval time.Duration
	ReadLimit    int64
}

type BrokerConfig struct {
	URL      string
	Exchange string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "kids-tutoring")
	viper.SetDefault("PORT", "4000")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_AUTO_MIGRATE", true)
	viper.SetDefault("SESSION_PRICE", 10000)
	viper.SetDefault("PROVIDER_TIMEOUT_SECONDS", 15)
	viper.SetDefault("STRIPE_CURRENCY", "usd")
	viper.SetDefault("STRIPE_PRODUCT_NAME", "Tutoring sessions (5)")
	viper.SetDefault("PAYPAL_ENV", "sandbox")
	viper.SetDefault("PAYPAL_CURRENCY", "USD")
	viper.SetDefault("MPESA_ENV", "sandbox")
	viper.SetDefault("MPESA_STRICT_MATCH", false)
	viper.SetDefault("WS_SEND_BUFFER", 64)
	viper.SetDefault("WS_PING_SECONDS", 54)
	viper.SetDefault("WS_READ_LIMIT", 65536)
	viper.SetDefault("PAYMENT_EXCHANGE", "payments")

	// .env is optional, plain environment variables are enough in containers
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:        viper.GetString("APP_NAME"),
			Port:        viper.GetString("PORT"),
			Debug:       viper.GetBool("DEBUG"),
			LogPath:     viper.GetString("LOG_PATH"),
			CORSOrigins: splitList(viper.GetString("CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			Name:        viper.GetString("DB_NAME"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASS"),
			MaxConns:    viper.GetInt32("DB_MAX_CONNS"),
			AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Booking: BookingConfig{
			SessionPrice:    viper.GetInt64("SESSION_PRICE"),
			ProviderTimeout: time.Duration(viper.GetInt("PROVIDER_TIMEOUT_SECONDS")) * time.Second,
		},
		Stripe: StripeConfig{
			SecretKey:   viper.GetString("STRIPE_SECRET_KEY"),
			Currency:    viper.GetString("STRIPE_CURRENCY"),
			ProductName: viper.GetString("STRIPE_PRODUCT_NAME"),
		},
		PayPal: PayPalConfig{
			ClientID:     viper.GetString("PAYPAL_CLIENT_ID"),
			ClientSecret: viper.GetString("PAYPAL_CLIENT_SECRET"),
			Env:          viper.GetString("PAYPAL_ENV"),
			Currency:     viper.GetString("PAYPAL_CURRENCY"),
		},
		Mpesa: MpesaConfig{
			ConsumerKey:    viper.GetString("MPESA_CONSUMER_KEY"),
			ConsumerSecret: viper.GetString("MPESA_CONSUMER_SECRET"),
			Shortcode:      viper.GetString("MPESA_SHORTCODE"),
			Passkey:        viper.GetString("MPESA_PASSKEY"),
			Env:            viper.GetString("MPESA_ENV"),
			CallbackURL:    viper.GetString("MPESA_CALLBACK_URL"),
			StrictMatch:    viper.GetBool("MPESA_STRICT_MATCH"),
		},
		Signaling: SignalingConfig{
			SendBuffer:   viper.GetInt("WS_SEND_BUFFER"),
			PingInterval: time.Duration(viper.GetInt("WS_PING_SECONDS")) * time.Second,
			ReadLimit:    viper.GetInt64("WS_READ_LIMIT"),
		},
		Broker: BrokerConfig{
			URL:      viper.GetString("RABBIT_URL"),
			Exchange: viper.GetString("PAYMENT_EXCHANGE"),
		},
	}

	return config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
