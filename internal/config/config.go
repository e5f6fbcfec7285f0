package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
)

const defaultSecret = "your-secret-key-change-in-production"

// Config 应用配置
type Config struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	AppSecret string `env:"APP_SECRET" envDefault:"your-secret-key-change-in-production"`
	Port      string `env:"PORT" envDefault:"8000"`
	SiteName  string `env:"SITE_NAME" envDefault:"Kino"`
	SiteUrl   string `env:"SITE_URL" envDefault:"http://localhost:8000"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"` // postgres | sqlite
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBName     string `env:"DB_NAME" envDefault:"moviesite"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"moviesite.db"`

	MediaRoot       string        `env:"MEDIA_ROOT" envDefault:"./media"`
	PageSize        int           `env:"PAGE_SIZE" envDefault:"3"`
	JWTExpiryHours  int           `env:"JWT_EXPIRY_HOURS" envDefault:"72"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h"`

	// 启动时创建的初始管理员（可选）
	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %q", cfg.DBDriver)
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = 3
	}

	if cfg.IsProduction() && cfg.AppSecret == defaultSecret {
		log.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	return cfg, nil
}

// IsProduction 是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DatabaseURL 拼接 postgres 连接串
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// JWTExpiry API Token 有效期
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}
