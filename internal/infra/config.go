package infra

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Config represents application configuration loaded from environment variables.
// Values from the optional YAML file named by STUDIO_CONFIG_FILE act as
// defaults that the environment overrides.
type Config struct {
	AppEnv               string
	Port                 string
	DatabaseURL          string
	StorageBaseURL       string
	StoragePath          string
	ImageSourceAllowlist []string
	DefaultLocale        string
	CORSOrigins          []string
	GeminiAPIKey         string
	GeminiBaseURL        string
	GeminiTextModel      string
	GeminiImageModel     string
	GeminiVideoModel     string
	VideoPollInterval    time.Duration
	GenerationTimeout    time.Duration
	SessionIdleTTL       time.Duration
	MaxUploadBytes       int64
	KafkaBrokers         []string
	KafkaTopic           string
	HTTPReadTimeout      time.Duration
	HTTPWriteTimeout     time.Duration
	HTTPIdleTimeout      time.Duration
	RateLimitPerMin      int
}

type fileConfig struct {
	AppEnv         string   `yaml:"app_env"`
	Port           string   `yaml:"port"`
	DatabaseURL    string   `yaml:"database_url"`
	StorageBaseURL string   `yaml:"storage_base_url"`
	StoragePath    string   `yaml:"storage_path"`
	DefaultLocale  string   `yaml:"default_locale"`
	CORSOrigins    []string `yaml:"cors_origins"`
	Gemini         struct {
		BaseURL    string `yaml:"base_url"`
		TextModel  string `yaml:"text_model"`
		ImageModel string `yaml:"image_model"`
		VideoModel string `yaml:"video_model"`
	} `yaml:"gemini"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	fc, err := loadConfigFile(os.Getenv("STUDIO_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	port := getEnv("PORT", or(fc.Port, "8080"))
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", or(fc.AppEnv, "development")),
		Port:              port,
		DatabaseURL:       getEnv("DATABASE_URL", fc.DatabaseURL),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", or(fc.StorageBaseURL, "http://localhost:"+port+"/static")),
		StoragePath:       getEnv("STORAGE_PATH", or(fc.StoragePath, "./data/assets")),
		DefaultLocale:     getEnv("DEFAULT_LOCALE", or(fc.DefaultLocale, "en")),
		CORSOrigins:       getEnvList("CORS_ALLOWED_ORIGINS", fc.CORSOrigins),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", or(fc.Gemini.BaseURL, "https://generativelanguage.googleapis.com/v1beta")),
		GeminiTextModel:   getEnv("GEMINI_TEXT_MODEL", or(fc.Gemini.TextModel, "gemini-2.5-flash")),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", or(fc.Gemini.ImageModel, "gemini-3-pro-image-preview")),
		GeminiVideoModel:  getEnv("GEMINI_VIDEO_MODEL", or(fc.Gemini.VideoModel, "veo-3.1-fast-generate-preview")),
		VideoPollInterval: time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 5)),
		GenerationTimeout: time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 600)),
		SessionIdleTTL:    time.Minute * time.Duration(getEnvInt("SESSION_IDLE_TTL_MINUTES", 240)),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 32)) << 20,
		KafkaBrokers:      getEnvList("KAFKA_BROKERS", fc.Kafka.Brokers),
		KafkaTopic:        getEnv("KAFKA_TOPIC", or(fc.Kafka.Topic, "studio.asset-jobs")),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	allow, err := buildAllowlist(cfg.StorageBaseURL, os.Getenv("IMAGE_SOURCE_HOST_ALLOWLIST"))
	if err != nil {
		return nil, err
	}
	cfg.ImageSourceAllowlist = allow

	if cfg.VideoPollInterval <= 0 {
		return nil, fmt.Errorf("VIDEO_POLL_INTERVAL_SECONDS must be positive")
	}

	return cfg, nil
}

func loadConfigFile(path string) (fileConfig, error) {
	var fc fileConfig
	path = strings.TrimSpace(path)
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

// buildAllowlist returns the hosts the exporter may fetch from: the storage
// host plus any extra comma-separated hosts, sorted and de-duplicated.
func buildAllowlist(storageBaseURL, extra string) ([]string, error) {
	u, err := url.Parse(storageBaseURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("STORAGE_BASE_URL is invalid: %q", storageBaseURL)
	}
	set := map[string]struct{}{strings.ToLower(u.Hostname()): {}}
	for _, h := range strings.Split(extra, ",") {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			set[h] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
