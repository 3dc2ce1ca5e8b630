package main

import (
	"carparts-be/internal/api/http"
	"carparts-be/internal/config"
	"carparts-be/internal/logger"
	"carparts-be/internal/service"
	"carparts-be/internal/state"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel, cfg.LogFormat)
	defer zap.L().Sync()

	// 组装应用状态
	appState := state.NewAppState(
		cfg,
		service.NewRoomService(cfg.RoomOptions()),
	)
	defer appState.Close()

	// 启动服务器
	if err := http.RunServer(appState); err != nil {
		zap.L().Error("服务器异常退出", zap.Error(err))
	}
}
