package config

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/wildwest/orderbot/pkg/logger"
)

// Bot holds the settings the conversation side of the service cannot
// run without. Everything else is read ad hoc through viper.
type Bot struct {
	AdminID             int64  `mapstructure:"admin_id" validate:"required"`
	AdminPageSize       int    `mapstructure:"admin_page_size" validate:"omitempty,min=1"`
	DispatchConcurrency int    `mapstructure:"dispatch_concurrency" validate:"omitempty,min=1"`
	SweepInterval       string `mapstructure:"sweep_interval"`
}

func MustInit() {
	if err := godotenv.Load("./.env"); err != nil {
		panic("error while loading .env file: " + err.Error())
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/orderbot")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	mustValidate()
	SetupLogger()
}

func mustValidate() {
	var bot Bot
	if err := viper.UnmarshalKey("bot", &bot); err != nil {
		panic("error while parsing bot config: " + err.Error())
	}
	if err := validator.New().Struct(bot); err != nil {
		panic("invalid bot config: " + err.Error())
	}
}

func SetupLogger() {
	handler := logger.NewHandler(nil)
	log := slog.New(handler)
	slog.SetDefault(log)
}
