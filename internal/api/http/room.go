package http

import (
	"errors"
	"time"

	"carparts-be/internal/service/dto"
	"carparts-be/internal/service/game"
	"carparts-be/internal/state"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

func Health(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		ctx.Header("X-Uptime", time.Since(appState.StartedAt).Round(time.Second).String())
		ctx.JSON(dto.HealthResponse{
			Status: "ok",
			Rooms:  appState.RoomSvc.RoomCount(),
		})
	}
}

func GenerateRoomCode(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		code, err := appState.RoomSvc.GenerateCode()
		if err != nil {
			zap.L().Warn("生成房间号失败", zap.Error(err))

			ctx.StatusCode(iris.StatusServiceUnavailable)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(dto.RoomCodeResponse{
			RoomCode: code,
		})
	}
}

func GetRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		summary, err := appState.RoomSvc.Summary(ctx.Params().Get("code"))
		if err != nil {
			status := iris.StatusBadRequest
			if errors.Is(err, game.ErrRoomNotFound) {
				status = iris.StatusNotFound
			}

			ctx.StatusCode(status)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(summary)
	}
}
