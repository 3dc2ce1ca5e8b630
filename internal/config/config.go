package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"carparts-be/internal/service"
	"carparts-be/internal/service/game"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const ENV_PREFIX = "CARPARTS"

type GameConfig struct {
	MaxPlayers        int           `mapstructure:"max_players"`
	MinPlayers        int           `mapstructure:"min_players"`
	DistributionDelay time.Duration `mapstructure:"distribution_delay"`
	RevealDelay       time.Duration `mapstructure:"reveal_delay"`
	NegotiationRange  float64       `mapstructure:"negotiation_range"`
	FinishedRoomTTL   time.Duration `mapstructure:"finished_room_ttl"`
	RoomCodeLength    int           `mapstructure:"room_code_length"`
}

type GatewayConfig struct {
	MessageRate       float64       `mapstructure:"message_rate"`
	MessageBurst      int           `mapstructure:"message_burst"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `mapstructure:"heartbeat_timeout"`
}

type HTTPConfig struct {
	RequestRate  float64 `mapstructure:"request_rate"`
	RequestBurst int     `mapstructure:"request_burst"`
}

type AppConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	// 为空时不托管前端静态文件
	StaticDir string `mapstructure:"static_dir"`

	Game    GameConfig    `mapstructure:"game"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	HTTP    HTTPConfig    `mapstructure:"http"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

// InitConfig 加载配置，失败时直接退出
func InitConfig() *AppConfig {
	// .env 不存在时忽略
	_ = godotenv.Load()

	loaded, err := Load(os.Getenv(ENV_PREFIX + "_CONFIG"))
	if err != nil {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}

	cfg = loaded

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("static_dir", "")

	v.SetDefault("game.max_players", game.HARD_MAX_PLAYERS)
	v.SetDefault("game.min_players", 3)
	v.SetDefault("game.distribution_delay", "3s")
	v.SetDefault("game.reveal_delay", "3s")
	v.SetDefault("game.negotiation_range", 0.0)
	v.SetDefault("game.finished_room_ttl", "10m")
	v.SetDefault("game.room_code_length", 6)

	v.SetDefault("gateway.message_rate", 20.0)
	v.SetDefault("gateway.message_burst", 40)
	v.SetDefault("gateway.heartbeat_interval", "30s")
	v.SetDefault("gateway.heartbeat_timeout", "45s")

	v.SetDefault("http.request_rate", 5.0)
	v.SetDefault("http.request_burst", 20)
}

// Load 按 环境变量 > 配置文件 > 默认值 的优先级读取配置，
// configPath 为空时在当前目录查找 app_config.*
func Load(configPath string) (*AppConfig, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("app_config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		zap.S().Infof("使用配置文件 %s", v.ConfigFileUsed())
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}

	return &config, nil
}

func (c *AppConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}

	g := c.Game
	if g.MinPlayers < 3 {
		return fmt.Errorf("game.min_players must be at least 3, got %d", g.MinPlayers)
	}
	if g.MaxPlayers < g.MinPlayers || g.MaxPlayers > game.HARD_MAX_PLAYERS {
		return fmt.Errorf("game.max_players must be between %d and %d, got %d",
			g.MinPlayers, game.HARD_MAX_PLAYERS, g.MaxPlayers)
	}
	if g.DistributionDelay < 0 || g.RevealDelay < 0 || g.FinishedRoomTTL < 0 {
		return errors.New("game delays must not be negative")
	}
	if g.NegotiationRange < 0 {
		return errors.New("game.negotiation_range must not be negative")
	}
	if g.RoomCodeLength < 3 || g.RoomCodeLength > 16 {
		return fmt.Errorf("game.room_code_length must be between 3 and 16, got %d", g.RoomCodeLength)
	}

	if c.Gateway.MessageRate <= 0 || c.Gateway.MessageBurst <= 0 {
		return errors.New("gateway rate limit must be positive")
	}
	if c.Gateway.HeartbeatInterval <= 0 || c.Gateway.HeartbeatTimeout <= c.Gateway.HeartbeatInterval {
		return errors.New("gateway.heartbeat_timeout must exceed gateway.heartbeat_interval")
	}

	if c.HTTP.RequestRate <= 0 || c.HTTP.RequestBurst <= 0 {
		return errors.New("http rate limit must be positive")
	}

	return nil
}

// RoomOptions 转换为房间注册表的参数
func (c *AppConfig) RoomOptions() service.Options {
	opts := service.DefaultOptions()

	opts.Settings = game.Settings{
		MaxPlayers:        c.Game.MaxPlayers,
		MinPlayers:        c.Game.MinPlayers,
		DistributionDelay: c.Game.DistributionDelay,
		RevealDelay:       c.Game.RevealDelay,
		NegotiationRange:  c.Game.NegotiationRange,
	}
	opts.FinishedRoomTTL = c.Game.FinishedRoomTTL
	opts.RoomCodeLength = c.Game.RoomCodeLength

	return opts
}
