package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Log          LogConfig          `mapstructure:"log"`
	Admin        AdminConfig        `mapstructure:"admin"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Notification NotificationConfig `mapstructure:"notification"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, postgres, sqlite
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

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// AdminConfig 管理员白名单（精确匹配邮箱）
type AdminConfig struct {
	Emails []string `mapstructure:"emails"`
}

type PaymentConfig struct {
	Currency    string            `mapstructure:"currency"`
	MoneyFusion MoneyFusionConfig `mapstructure:"moneyfusion"`
}

type MoneyFusionConfig struct {
	APIURL         string `mapstructure:"api_url"`
	StatusURL      string `mapstructure:"status_url"`
	PublicBaseURL  string `mapstructure:"public_base_url"` // 用于拼接 return_url / webhook_url
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	VerifyWebhook  bool   `mapstructure:"verify_webhook"` // 回调到达后向服务商二次确认
}

type SubscriptionConfig struct {
	Plans             map[string]PlanConfig `mapstructure:"plans"`
	WebhookPeriodDays int                   `mapstructure:"webhook_period_days"`
	CommissionRate    float64               `mapstructure:"commission_rate"`
	ExpirySweepMinute int                   `mapstructure:"expiry_sweep_minutes"`
}

type PlanConfig struct {
	Price       int64  `mapstructure:"price"`
	DisplayName string `mapstructure:"display_name"`
	Description string `mapstructure:"description"`
}

type NotificationConfig struct {
	FanoutQueue string `mapstructure:"fanout_queue"`
	Channel     string `mapstructure:"channel"`
	MaxWorkers  int    `mapstructure:"max_workers"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return decode(v)
}

// Watch 监听配置文件变化，变化后重新解析并回调（用于热更新管理员白名单）
func Watch(configPath string, onChange func(*Config)) error {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Admin.Emails = splitEmails(cfg.Admin.Emails)
	return &cfg, nil
}

// splitEmails 兼容环境变量 ADMIN_EMAILS="a@x.com,b@y.com" 的写法
func splitEmails(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, e := range strings.Split(item, ",") {
			if e = strings.TrimSpace(e); e != "" {
				out = append(out, e)
			}
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("jwt.expire_hours", 168)
	v.SetDefault("payment.currency", "XOF")
	v.SetDefault("payment.moneyfusion.status_url", "https://www.pay.moneyfusion.net/paiementNotif")
	v.SetDefault("payment.moneyfusion.timeout_seconds", 15)
	v.SetDefault("subscription.webhook_period_days", 30)
	v.SetDefault("subscription.commission_rate", 0.30)
	v.SetDefault("subscription.expiry_sweep_minutes", 60)
	v.SetDefault("subscription.plans", map[string]interface{}{
		"basic": map[string]interface{}{"price": 500, "display_name": "BASIC"},
		"pro":   map[string]interface{}{"price": 8900, "display_name": "PRO"},
		"vip":   map[string]interface{}{"price": 19000, "display_name": "VIP"},
	})
	v.SetDefault("notification.fanout_queue", "prono_fanout")
	v.SetDefault("notification.channel", "user_notifications")
	v.SetDefault("notification.max_workers", 2)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// ProviderTimeout 服务商请求超时
func (c *MoneyFusionConfig) ProviderTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
