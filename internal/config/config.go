package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"

	SpeechModeRelay = "relay"
	SpeechModeCloud = "cloud"
	SpeechModeOff   = "off"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Speech    SpeechConfig
	Animation AnimationConfig
	Log       LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses configuration from an explicit environment map.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	addr, err := normalizeAddr(c.Server.Port)
	if err != nil {
		return err
	}
	c.Server.Addr = addr

	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	switch c.AI.Provider {
	case ProviderGemini, ProviderArk:
	default:
		return fmt.Errorf("invalid AI_PROVIDER value: %q", c.AI.Provider)
	}

	c.Speech.Mode = strings.ToLower(strings.TrimSpace(c.Speech.Mode))
	switch c.Speech.Mode {
	case SpeechModeRelay, SpeechModeCloud, SpeechModeOff:
	default:
		return fmt.Errorf("invalid SPEECH_MODE value: %q", c.Speech.Mode)
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive, got %s", c.AI.Timeout)
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Addr string
}

// normalizeAddr 解析服务器监听地址。
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider     string        `env:"AI_PROVIDER" envDefault:"gemini"`
	APIKey       string        `env:"API_KEY"`
	GeminiAPIKey string        `env:"GEMINI_API_KEY"`
	GeminiModel  string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	Temperature  float32       `env:"AI_TEMPERATURE" envDefault:"0.7"`
	Timeout      time.Duration `env:"AI_TIMEOUT" envDefault:"30s"`
	MaxRetries   uint64        `env:"AI_MAX_RETRIES" envDefault:"1"`
	Ark          ArkConfig
}

// GeminiKey prefers API_KEY and falls back to GEMINI_API_KEY.
func (c AIConfig) GeminiKey() string {
	if key := strings.TrimSpace(c.APIKey); key != "" {
		return key
	}
	return strings.TrimSpace(c.GeminiAPIKey)
}

// Enabled 表示所选提供方是否具备必需的凭证。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Ark.Enabled()
	default:
		return c.GeminiKey() != "" && c.GeminiModel != ""
	}
}

// ArkConfig 描述火山方舟模型配置。
type ArkConfig struct {
	APIKey    string   `env:"ARK_API_KEY"`
	AccessKey string   `env:"ARK_ACCESS_KEY"`
	SecretKey string   `env:"ARK_SECRET_KEY"`
	Model     string   `env:"ARK_MODEL"`
	BaseURL   string   `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region    string   `env:"ARK_REGION" envDefault:"cn-beijing"`
	TopP      *float32 `env:"ARK_TOP_P"`
	MaxTokens *int     `env:"ARK_MAX_TOKENS"`
}

// Enabled 表示是否提供了必需的密钥。
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c ArkConfig) NewChatModel(ctx context.Context, temperature float32) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: &temperature,
		TopP:        c.TopP,
	})
}

// SpeechConfig 描述语音输出相关配置。
type SpeechConfig struct {
	Mode            string        `env:"SPEECH_MODE" envDefault:"relay"`
	PreferredVoices []string      `env:"SPEECH_PREFERRED_VOICES" envSeparator:"," envDefault:"Google US English,Samantha"`
	AppID           string        `env:"SPEECH_APP_ID"`
	AccessToken     string        `env:"SPEECH_ACCESS_TOKEN"`
	TTSVoices       []string      `env:"SPEECH_TTS_VOICES" envSeparator:","`
	TTSResourceID   string        `env:"SPEECH_TTS_RESOURCE_ID"`
	TTSLanguage     string        `env:"SPEECH_TTS_LANGUAGE" envDefault:"en-US"`
	Timeout         time.Duration `env:"SPEECH_TIMEOUT" envDefault:"30s"`
}

// CloudEnabled 表示云端合成凭证是否齐全。
func (c SpeechConfig) CloudEnabled() bool {
	return c.AppID != "" && c.AccessToken != ""
}

// AnimationConfig 描述帧循环配置。
type AnimationConfig struct {
	FPS int `env:"ANIMATION_FPS" envDefault:"30"`
}

// LogConfig 描述日志配置。
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}
