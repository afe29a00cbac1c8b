package chilltimer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DatabasePathKey        = "CHILL_DB_PATH"
	LogLevelKey            = "CHILL_LOG_LEVEL"
	LogFileKey             = "CHILL_LOG_FILE"
	DurationMinutesKey     = "CHILL_DURATION_MINUTES"
	GongVolumeKey          = "CHILL_GONG_VOLUME"
	DiscordTokenKey        = "CHILL_DISCORD_TOKEN"
	DiscordGuildIDKey      = "CHILL_DISCORD_GUILD_ID"
	DiscordTextChannelKey  = "CHILL_DISCORD_TEXT_CHANNEL_ID"
	DiscordVoiceChannelKey = "CHILL_DISCORD_VOICE_CHANNEL_ID"
	GongOpusPathKey        = "CHILL_GONG_OPUS_PATH"
	OtelEndpointKey        = "CHILL_OTEL_ENDPOINT"
	OtelInsecureKey        = "CHILL_OTEL_INSECURE"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Discord  DiscordConfig  `yaml:"discord"`
	Otel     OtelConfig     `yaml:"otel"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig.File receives logs while the terminal UI owns the screen.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultsConfig seeds settings when none are stored yet.
type DefaultsConfig struct {
	DurationMinutes int     `yaml:"duration_minutes"`
	GongVolume      float64 `yaml:"gong_volume"`
}

type DiscordConfig struct {
	Token          string `yaml:"token"`
	GuildID        string `yaml:"guild_id"`
	TextChannelID  string `yaml:"text_channel_id"`
	VoiceChannelID string `yaml:"voice_channel_id"`
	GongOpusPath   string `yaml:"gong_opus_path"`
}

func (c DiscordConfig) Enabled() bool {
	return c.Token != ""
}

type OtelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

func (c OtelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c Config) Settings() Settings {
	return Settings{
		DurationMinutes: c.Defaults.DurationMinutes,
		GongVolume:      c.Defaults.GongVolume,
	}.Normalize()
}

// LoadConfig reads the optional YAML file at yamlPath, then the optional env file,
// then lets CHILL_* environment variables override what the file set.
func LoadConfig(envFile, yamlPath string) (Config, error) {
	config := Config{
		Database: DatabaseConfig{Path: "chill.db"},
		Log:      LogConfig{Level: "info", File: "chill.log"},
		Defaults: DefaultsConfig{
			DurationMinutes: DefaultDurationMinutes,
			GongVolume:      DefaultGongVolume,
		},
	}

	if yamlPath != "" {
		raw, err := os.ReadFile(yamlPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(raw, &config); err != nil {
				return Config{}, fmt.Errorf("unmarshal config file %s: %w", yamlPath, err)
			}
		}
	}

	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	setString(&config.Database.Path, DatabasePathKey)
	setString(&config.Log.Level, LogLevelKey)
	setString(&config.Log.File, LogFileKey)
	setString(&config.Discord.Token, DiscordTokenKey)
	setString(&config.Discord.GuildID, DiscordGuildIDKey)
	setString(&config.Discord.TextChannelID, DiscordTextChannelKey)
	setString(&config.Discord.VoiceChannelID, DiscordVoiceChannelKey)
	setString(&config.Discord.GongOpusPath, GongOpusPathKey)
	setString(&config.Otel.Endpoint, OtelEndpointKey)

	if v := os.Getenv(DurationMinutesKey); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", DurationMinutesKey, err)
		}
		config.Defaults.DurationMinutes = minutes
	}
	if v := os.Getenv(GongVolumeKey); v != "" {
		volume, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", GongVolumeKey, err)
		}
		config.Defaults.GongVolume = volume
	}
	if v := os.Getenv(OtelInsecureKey); v != "" {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", OtelInsecureKey, err)
		}
		config.Otel.Insecure = insecure
	}

	if config.Database.Path == "" {
		return Config{}, fmt.Errorf("required config: database path (%s)", DatabasePathKey)
	}
	if config.Discord.Enabled() && config.Discord.TextChannelID == "" && config.Discord.VoiceChannelID == "" {
		return Config{}, fmt.Errorf("discord token set without %s or %s", DiscordTextChannelKey, DiscordVoiceChannelKey)
	}

	return config, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
