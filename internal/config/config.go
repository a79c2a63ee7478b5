package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LoyaltyEvents string `mapstructure:"loyalty_events"`
	EmailOut      string `mapstructure:"email_out"`
}

type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

type BusinessConfig struct {
	VisitWindowHours     int   `mapstructure:"visit_window_hours"`     // 到店去重窗口，默认4小时
	BirthdayBonusPoints  int64 `mapstructure:"birthday_bonus_points"`  // 生日奖励积分，默认15
	DefaultVoucherTTLSec int64 `mapstructure:"default_voucher_ttl_sec"` // 收银端签发积分券的默认有效期
	VerifyTokenTTLMin    int   `mapstructure:"verify_token_ttl_min"`   // 邮箱验证令牌有效期（分钟）
	MaxRetryCount        int   `mapstructure:"max_retry_count"`        // 出站消息最大重试次数
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("business.visit_window_hours", 4)
	viper.SetDefault("business.birthday_bonus_points", 15)
	viper.SetDefault("business.default_voucher_ttl_sec", 3600)
	viper.SetDefault("business.verify_token_ttl_min", 30)
	viper.SetDefault("business.max_retry_count", 3)
	viper.SetDefault("jwt.expire_minutes", 43200)

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
