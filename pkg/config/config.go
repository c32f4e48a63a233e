package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	API      APIConfig      `mapstructure:"api"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// ChannelID is either a numeric -100... id or an @username.
	ChannelID        string `mapstructure:"channel_id"`
	PostScheduleTime string `mapstructure:"post_schedule_time"`
	FallbackTime     string `mapstructure:"fallback_time"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type APIConfig struct {
	Port        int   `mapstructure:"port"`
	OwnerUserID int64 `mapstructure:"owner_user_id"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	return DatabaseConfig{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("telegram.fallback_time", "23:00")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "db/collect.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("api.port", 8080)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if dbPath := v.GetString("DB_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}

	if token := v.GetString("BOT_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if channel := v.GetString("CHANNEL_ID"); channel != "" {
		config.Telegram.ChannelID = channel
	}

	if schedule := v.GetString("POST_SCHEDULE_TIME"); schedule != "" {
		config.Telegram.PostScheduleTime = schedule
	}

	if fallback := v.GetString("FALLBACK_TIME"); fallback != "" {
		config.Telegram.FallbackTime = fallback
	}

	if owner := v.GetInt64("RAW_OWNER_USER_ID"); owner != 0 {
		config.API.OwnerUserID = owner
	}

	if port := v.GetInt("COLLECT_API_PORT"); port != 0 {
		config.API.Port = port
	}

	return &config, nil
}
