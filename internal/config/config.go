package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/helpchat/internal/client"
)

// DefaultWelcome 是面板首次打开时展示的欢迎语。
const DefaultWelcome = "Hi👋, I am CloudDefense.AI assistant. How can I help you today?"

// Config 聚合后端与挂件的全部配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Assistant AssistantConfig
	Widget    WidgetConfig
	LogLevel  zerolog.Level
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	assistant, err := loadAssistantConfig()
	if err != nil {
		return nil, err
	}

	widget, err := loadWidgetConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Assistant: assistant,
		Widget:    widget,
		LogLevel:  ParseLogLevel(os.Getenv("LOG_LEVEL")),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "5000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":5000" 或 "127.0.0.1:5000"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述回答问题所用的大模型配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY and ARK_MODEL, or ARK_ACCESS_KEY and ARK_SECRET_KEY")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// AssistantConfig 控制欢迎语、文档标题以及参考资料文件。
type AssistantConfig struct {
	Welcome   string
	Title     string
	RulesFile string
	// InventoryFile 为空时不做错误配置分析。
	InventoryFile string
	// ChunkSize 和 MaxTurns 为 0 时使用服务默认值。
	ChunkSize int
	MaxTurns  int
}

func loadAssistantConfig() (AssistantConfig, error) {
	chunkSize, err := parseOptionalPositiveIntEnv("ASSISTANT_CHUNK_SIZE")
	if err != nil {
		return AssistantConfig{}, err
	}

	maxTurns, err := parseOptionalPositiveIntEnv("ASSISTANT_MAX_TURNS")
	if err != nil {
		return AssistantConfig{}, err
	}

	return AssistantConfig{
		Welcome:       getEnvOrDefault("ASSISTANT_WELCOME", DefaultWelcome),
		Title:         getEnvOrDefault("ASSISTANT_TITLE", "CloudDefense.AI Assistant"),
		RulesFile:     strings.TrimSpace(os.Getenv("ASSISTANT_RULES_FILE")),
		InventoryFile: strings.TrimSpace(os.Getenv("ASSISTANT_INVENTORY_FILE")),
		ChunkSize:     chunkSize,
		MaxTurns:      maxTurns,
	}, nil
}

// WidgetConfig 描述终端挂件如何访问助手服务。
type WidgetConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func loadWidgetConfig() (WidgetConfig, error) {
	timeout, err := parseOptionalDurationEnv("WIDGET_TIMEOUT")
	if err != nil {
		return WidgetConfig{}, err
	}

	cfg := WidgetConfig{
		Endpoint: getEnvOrDefault("WIDGET_ENDPOINT", client.DefaultBaseURL),
	}
	if timeout != nil {
		cfg.Timeout = *timeout
	}
	return cfg, nil
}

// ParseLogLevel 将日志级别名称转换为 zerolog 级别，默认 info。
func ParseLogLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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

func parseOptionalPositiveIntEnv(key string) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil || val == nil {
		return 0, err
	}
	if *val <= 0 {
		return 0, fmt.Errorf("invalid %s value %d: must be positive", key, *val)
	}
	return *val, nil
}

func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}

	val, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
