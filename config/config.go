package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Storage  StorageConfig  `mapstructure:"storage"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Email    EmailConfig    `mapstructure:"email"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Tiers    TiersConfig    `mapstructure:"tiers"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Payments PaymentsConfig `mapstructure:"payments"`
	AI       AIConfig       `mapstructure:"ai"`
	Report   ReportConfig   `mapstructure:"report"`
}

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`
	PublicBaseURL string `mapstructure:"public_base_url"` // 前端地址，用于升级链接和分享链接
}

// IsRelease 生产模式下不向客户端暴露内部错误信息
func (c ServerConfig) IsRelease() bool {
	return c.Mode == "release"
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql | postgres | sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Provider        string        `mapstructure:"provider"` // s3 | oss
	Bucket          string        `mapstructure:"bucket"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UsePathStyle    bool          `mapstructure:"use_path_style"`
	SignedURLTTL    time.Duration `mapstructure:"signed_url_ttl"`
	AnonymousPrefix string        `mapstructure:"anonymous_prefix"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	AIQueue    string `mapstructure:"ai_queue"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// TiersConfig 每个等级的每日分析次数上限
type TiersConfig struct {
	DailyLimits map[string]int `mapstructure:"daily_limits"`
}

type UploadConfig struct {
	MaxSize          int64    `mapstructure:"max_size"` // 最大文件大小（字节）
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types"`
}

type ScoringConfig struct {
	JDMaxChars int `mapstructure:"jd_max_chars"`
}

type PaymentsConfig struct {
	Currency string         `mapstructure:"currency"`
	Razorpay RazorpayConfig `mapstructure:"razorpay"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Plans    []PlanConfig   `mapstructure:"plans"`
}

type RazorpayConfig struct {
	KeyID         string `mapstructure:"key_id"`
	KeySecret     string `mapstructure:"key_secret"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type PlanConfig struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	Amount       int64  `mapstructure:"amount"` // 最小货币单位（分 / paise）
	Currency     string `mapstructure:"currency"`
	DurationDays int    `mapstructure:"duration_days"`
}

type AIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ReportConfig struct {
	URLTTL   time.Duration `mapstructure:"url_ttl"`
	ShareTTL time.Duration `mapstructure:"share_ttl"`
}

// DefaultDailyLimits 未配置时使用的等级上限
var DefaultDailyLimits = map[string]int{
	"anonymous": 1,
	"free":      3,
	"premium":   999,
	"admin":     999,
}

// TierLimit 返回等级的每日上限，未知等级按 free 处理
func (c *Config) TierLimit(tier string) int {
	if limit, ok := c.Tiers.DailyLimits[tier]; ok {
		return limit
	}
	if limit, ok := DefaultDailyLimits[tier]; ok {
		return limit
	}
	if limit, ok := c.Tiers.DailyLimits["free"]; ok {
		return limit
	}
	return DefaultDailyLimits["free"]
}

// Plan 根据 ID 查找套餐
func (c *Config) Plan(id string) (PlanConfig, bool) {
	for _, p := range c.Payments.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return PlanConfig{}, false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.signed_url_ttl", time.Hour)
	v.SetDefault("storage.anonymous_prefix", "anonymous")
	v.SetDefault("queue.ai_queue", "ai_jobs")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("tiers.daily_limits", DefaultDailyLimits)
	v.SetDefault("upload.max_size", 5*1024*1024)
	v.SetDefault("upload.allowed_mime_types", []string{
		"application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	})
	v.SetDefault("scoring.jd_max_chars", 10000)
	v.SetDefault("payments.currency", "INR")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("report.url_ttl", time.Hour)
	v.SetDefault("report.share_ttl", 7*24*time.Hour)
}

func Load(configPath string) (*Config, error) {
	// .env 中的密钥以环境变量形式注入，存在时才加载
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
