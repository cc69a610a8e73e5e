// Package config provides configuration loading and validation for the
// shelter bot. Values come from defaults, an optional config.yaml, and
// BOT_-prefixed environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration sections.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
}

// LogConfig controls the root slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token and user-facing message templates.
type TelegramConfig struct {
	Token    string   `mapstructure:"token" validate:"required"`
	Messages Messages `mapstructure:"messages"`
}

// Messages holds the user-visible strings sent by the bot. They are
// configurable so deployments can localize without a rebuild.
type Messages struct {
	Welcome        string `mapstructure:"welcome"`
	MainMenu       string `mapstructure:"main_menu"`
	ChooseFilter   string `mapstructure:"choose_filter"`
	NoAnimals      string `mapstructure:"no_animals"`
	NoMatches      string `mapstructure:"no_matches"`
	NeedFilter     string `mapstructure:"need_filter"`
	AskMinAge      string `mapstructure:"ask_min_age"`
	AskMaxAge      string `mapstructure:"ask_max_age"`
	AskSex         string `mapstructure:"ask_sex"`
	AskName        string `mapstructure:"ask_name"`
	EmptyName      string `mapstructure:"empty_name"`
	BadAgeOrder    string `mapstructure:"bad_age_order"`
	MinAgeTooHigh  string `mapstructure:"min_age_too_high"`
	AskChannel     string `mapstructure:"ask_channel"`
	BadChannel     string `mapstructure:"bad_channel"`
	AskSchedule    string `mapstructure:"ask_schedule"`
	ChannelSaved   string `mapstructure:"channel_saved"`
	ChannelRemoved string `mapstructure:"channel_removed"`
	NoChannels     string `mapstructure:"no_channels"`
	GeneralError   string `mapstructure:"general_error"`
}

// DatabaseConfig holds SQLite connection settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// BroadcastConfig holds settings for the channel broadcast scheduler.
type BroadcastConfig struct {
	// FallbackURL is used as the card link when an animal's description
	// does not look like a URL.
	FallbackURL string `mapstructure:"fallback_url" validate:"url"`
}

// Load reads configuration from config.yaml (optional) and the environment,
// applies defaults, and validates the result.
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("BOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine, defaults plus env cover everything.
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", false)

	// Registered empty so AutomaticEnv can fill it; validation rejects a
	// missing token.
	viper.SetDefault("telegram.token", "")

	viper.SetDefault("database.path", "animals.db")

	viper.SetDefault("broadcast.fallback_url", "https://less-homeless.com")

	viper.SetDefault("telegram.messages.welcome", "Welcome! This bot helps you find shelter pets looking for a home.")
	viper.SetDefault("telegram.messages.main_menu", "Main menu:")
	viper.SetDefault("telegram.messages.choose_filter", "Choose a filter:")
	viper.SetDefault("telegram.messages.no_animals", "No animals in the database yet.")
	viper.SetDefault("telegram.messages.no_matches", "No animals match these filters. Try changing them!")
	viper.SetDefault("telegram.messages.need_filter", "Pick at least one filter first!")
	viper.SetDefault("telegram.messages.ask_min_age", "Pick a minimum age:")
	viper.SetDefault("telegram.messages.ask_max_age", "Pick a maximum age:")
	viper.SetDefault("telegram.messages.ask_sex", "Pick a sex:")
	viper.SetDefault("telegram.messages.ask_name", "Type the animal's name (or part of it):")
	viper.SetDefault("telegram.messages.empty_name", "The name cannot be empty. Try again.")
	viper.SetDefault("telegram.messages.bad_age_order", "The maximum age must not be below the minimum!")
	viper.SetDefault("telegram.messages.min_age_too_high", "No animal is that old. Pick a lower minimum.")
	viper.SetDefault("telegram.messages.ask_channel", "Send the channel or group link (for example, @channel_name):")
	viper.SetDefault("telegram.messages.bad_channel", "The channel link must start with '@'. Please send a valid link.")
	viper.SetDefault("telegram.messages.ask_schedule", "When should I post? Use 'daily at HH:MM' or 'weekly on <day> at HH:MM'.")
	viper.SetDefault("telegram.messages.channel_saved", "Channel saved. Broadcasts are scheduled.")
	viper.SetDefault("telegram.messages.channel_removed", "Channel removed.")
	viper.SetDefault("telegram.messages.no_channels", "No channels configured yet.")
	viper.SetDefault("telegram.messages.general_error", "Something went wrong. Please try again later.")
}
