package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken      string         `yaml:"discord_token"`
	DatabasePath      string         `yaml:"database_path"`
	LogLevel          string         `yaml:"log_level"`
	DefaultLanguage   string         `yaml:"default_language"`
	DefaultLogChannel string         `yaml:"default_log_channel"`
	RetentionDays     int            `yaml:"retention_days"`
	HTTP              HTTPConfig     `yaml:"http"`
	OAuth             OAuthConfig    `yaml:"oauth"`
	TTS               TTSConfig      `yaml:"tts"`
	Vox               VoxConfig      `yaml:"vox"`
	Playback          PlaybackConfig `yaml:"playback"`
	Sounds            SoundConfig    `yaml:"sounds"`
}

type HTTPConfig struct {
	Addr            string `yaml:"addr"`
	BootstrapToken  string `yaml:"bootstrap_token"`
	ShutdownSeconds int    `yaml:"shutdown_seconds"`
}

type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

type TTSConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	Voice          string  `yaml:"voice"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerMinute  float64 `yaml:"rate_per_minute"`
	Burst          int     `yaml:"burst"`
	MaxChars       int     `yaml:"max_chars"`
}

type VoxConfig struct {
	SoundRoot  string `yaml:"sound_root"`
	DefaultSet string `yaml:"default_set"`
	MaxWords   int    `yaml:"max_words"`
}

type PlaybackConfig struct {
	IdleDisconnectSeconds int `yaml:"idle_disconnect_seconds"`
	Bitrate               int `yaml:"bitrate"`
}

type SoundConfig struct {
	UploadDir    string `yaml:"upload_dir"`
	MaxSizeBytes int64  `yaml:"max_size_bytes"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:    "/data/bastion.db",
		LogLevel:        "info",
		DefaultLanguage: "en",
		RetentionDays:   30,
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownSeconds: 10,
		},
		OAuth: OAuthConfig{
			RedirectURL: "http://localhost:8080/auth/discord/callback",
		},
		TTS: TTSConfig{
			Endpoint:       "http://localhost:5002/api/tts",
			Voice:          "en_US-standard",
			TimeoutSeconds: 15,
			RatePerMinute:  6,
			Burst:          2,
			MaxChars:       500,
		},
		Vox: VoxConfig{
			SoundRoot:  "/data/vox",
			DefaultSet: "default",
			MaxWords:   64,
		},
		Playback: PlaybackConfig{
			IdleDisconnectSeconds: 120,
			Bitrate:               64,
		},
		Sounds: SoundConfig{
			UploadDir:    "/data/sounds",
			MaxSizeBytes: 8 << 20,
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultLanguage = envString("DEFAULT_LANGUAGE", cfg.DefaultLanguage)
	cfg.DefaultLogChannel = envString("DEFAULT_LOG_CHANNEL", cfg.DefaultLogChannel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.HTTP.Addr = envString("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.BootstrapToken = envString("HTTP_BOOTSTRAP_TOKEN", cfg.HTTP.BootstrapToken)
	cfg.HTTP.ShutdownSeconds = envInt("HTTP_SHUTDOWN_SECONDS", cfg.HTTP.ShutdownSeconds)
	cfg.OAuth.ClientID = envString("OAUTH_CLIENT_ID", cfg.OAuth.ClientID)
	cfg.OAuth.ClientSecret = envString("OAUTH_CLIENT_SECRET", cfg.OAuth.ClientSecret)
	cfg.OAuth.RedirectURL = envString("OAUTH_REDIRECT_URL", cfg.OAuth.RedirectURL)
	cfg.TTS.Endpoint = envString("TTS_ENDPOINT", cfg.TTS.Endpoint)
	cfg.TTS.Voice = envString("TTS_VOICE", cfg.TTS.Voice)
	cfg.TTS.TimeoutSeconds = envInt("TTS_TIMEOUT_SECONDS", cfg.TTS.TimeoutSeconds)
	cfg.TTS.RatePerMinute = envFloat("TTS_RATE_PER_MINUTE", cfg.TTS.RatePerMinute)
	cfg.TTS.Burst = envInt("TTS_BURST", cfg.TTS.Burst)
	cfg.TTS.MaxChars = envInt("TTS_MAX_CHARS", cfg.TTS.MaxChars)
	cfg.Vox.SoundRoot = envString("VOX_SOUND_ROOT", cfg.Vox.SoundRoot)
	cfg.Vox.DefaultSet = envString("VOX_DEFAULT_SET", cfg.Vox.DefaultSet)
	cfg.Vox.MaxWords = envInt("VOX_MAX_WORDS", cfg.Vox.MaxWords)
	cfg.Playback.IdleDisconnectSeconds = envInt("PLAYBACK_IDLE_DISCONNECT_SECONDS", cfg.Playback.IdleDisconnectSeconds)
	cfg.Playback.Bitrate = envInt("PLAYBACK_BITRATE", cfg.Playback.Bitrate)
	cfg.Sounds.UploadDir = envString("SOUNDS_UPLOAD_DIR", cfg.Sounds.UploadDir)
	cfg.Sounds.MaxSizeBytes = envInt64("SOUNDS_MAX_SIZE_BYTES", cfg.Sounds.MaxSizeBytes)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
