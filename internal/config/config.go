package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zhouzirui/secret-keeper/backend/internal/model/persona"
)

// Provider names accepted by WIZARD_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderGenAI  = "genai"
	ProviderArk    = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Session SessionConfig
	Log     LogConfig
}

var validate = validator.New()

// Load 从环境变量加载配置。缺失的模型凭证不会导致失败，而是在创建会话时暴露给用户。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{Server: server, AI: ai, Session: session, Log: loadLogConfig()}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string `validate:"required"`
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider     string   `validate:"oneof=gemini genai ark"`
	GeminiAPIKey string
	ArkAPIKey    string
	ArkBaseURL   string
	ArkRegion    string
	Model        string
	Temperature  *float64 `validate:"omitempty,gte=0,lte=2"`
	TopP         *float64 `validate:"omitempty,gt=0,lte=1"`
	TopK         *int     `validate:"omitempty,gte=1"`
	MaxTokens    *int     `validate:"omitempty,gte=1"`
}

// Credential returns the API key for the selected provider. It may be empty.
func (c AIConfig) Credential() string {
	if c.Provider == ProviderArk {
		return c.ArkAPIKey
	}
	return c.GeminiAPIKey
}

// Apply overlays model and sampling overrides onto a persona.
func (c AIConfig) Apply(p persona.Persona) persona.Persona {
	o := persona.Overrides{Model: c.Model}
	if c.Temperature != nil {
		v := float32(*c.Temperature)
		o.Temperature = &v
	}
	if c.TopP != nil {
		v := float32(*c.TopP)
		o.TopP = &v
	}
	if c.TopK != nil {
		v := int32(*c.TopK)
		o.TopK = &v
	}
	if c.MaxTokens != nil {
		v := int32(*c.MaxTokens)
		o.MaxOutputTokens = &v
	}
	return persona.Override(p, o)
}

// Personas applies the overrides to every persona in seed.
func (c AIConfig) Personas(seed []persona.Persona) []persona.Persona {
	out := make([]persona.Persona, 0, len(seed))
	for _, p := range seed {
		out = append(out, c.Apply(p))
	}
	return out
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("WIZARD_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("WIZARD_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	topK, err := parseOptionalIntEnv("WIZARD_TOP_K")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("WIZARD_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	geminiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if geminiKey == "" {
		geminiKey = strings.TrimSpace(os.Getenv("NEXT_PUBLIC_GEMINI_API_KEY"))
	}

	return AIConfig{
		Provider:     strings.ToLower(getEnvOrDefault("WIZARD_PROVIDER", ProviderGemini)),
		GeminiAPIKey: geminiKey,
		ArkAPIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkBaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:    getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Model:        strings.TrimSpace(os.Getenv("WIZARD_MODEL")),
		Temperature:  temperature,
		TopP:         topP,
		TopK:         topK,
		MaxTokens:    maxTokens,
	}, nil
}

// SessionConfig 控制网页会话在内存中的保留时间。
type SessionConfig struct {
	TTL             time.Duration `validate:"gt=0"`
	CleanupInterval time.Duration `validate:"gt=0"`
}

func loadSessionConfig() (SessionConfig, error) {
	ttl, err := parseDurationEnv("SESSION_TTL", time.Hour)
	if err != nil {
		return SessionConfig{}, err
	}
	cleanup, err := parseDurationEnv("SESSION_CLEANUP_INTERVAL", 10*time.Minute)
	if err != nil {
		return SessionConfig{}, err
	}
	return SessionConfig{TTL: ttl, CleanupInterval: cleanup}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=console json"`
	File   string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "console")),
		File:   strings.TrimSpace(os.Getenv("LOG_FILE")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
