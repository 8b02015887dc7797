package config

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Load reads the .env file and binds the environment variables the
// service uses. Environment variables always override file values.
func Load() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		logrus.WithError(err).Info("config file not found, using environment and defaults")
	}

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	viper.BindEnv("payments.webhook_secret", "CASHFREE_WEBHOOK_SECRET")
	viper.BindEnv("payments.checkout_url", "CASHFREE_CHECKOUT_URL")
	viper.BindEnv("payments.currency", "PAYMENTS_CURRENCY")

	viper.BindEnv("server.port", "PORT")

	viper.SetDefault("payments.checkout_url", "https://payments.cashfree.com/order")
	viper.SetDefault("payments.currency", "INR")
	viper.SetDefault("server.port", "8080")
}
