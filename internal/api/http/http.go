package http

import (
	"fmt"

	"carparts-be/internal/api/http/websocket"
	"carparts-be/internal/state"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// NewApp 注册所有路由
func NewApp(appState *state.AppState) *iris.Application {
	app := iris.Default()

	if dir := appState.Cfg.StaticDir; dir != "" {
		app.HandleDir(
			"/",
			iris.Dir(dir),
			iris.DirOptions{
				IndexName: "index.html",
				SPA:       true,
				Compress:  true,
			},
		)
	}

	limiter := NewRateLimiter(
		appState.Cfg.HTTP.RequestRate,
		appState.Cfg.HTTP.RequestBurst,
	)

	api := app.Party("/api/v1")

	api.Get("/health", Health(appState))

	rooms := api.Party("/rooms", limiter.Handler())
	rooms.Post("/code", GenerateRoomCode(appState))
	rooms.Get("/{code:string}", GetRoom(appState))

	api.Get("/ws", limiter.Handler(), websocket.JoinGame(appState))

	return app
}

func RunServer(appState *state.AppState) error {
	app := NewApp(appState)

	addr := fmt.Sprintf(
		"%s:%d",
		appState.Cfg.Host,
		appState.Cfg.Port,
	)

	zap.S().Infof("服务器监听 %s", addr)

	return app.Listen(addr, iris.WithoutServerError(iris.ErrServerClosed))
}
