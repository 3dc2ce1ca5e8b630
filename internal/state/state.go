package state

import (
	"time"

	"carparts-be/internal/config"
	"carparts-be/internal/service"
)

type AppState struct {
	Cfg     *config.AppConfig
	RoomSvc *service.RoomService

	StartedAt time.Time
}

func NewAppState(
	cfg *config.AppConfig,
	roomSvc *service.RoomService,
) *AppState {
	return &AppState{
		Cfg:       cfg,
		RoomSvc:   roomSvc,
		StartedAt: time.Now(),
	}
}

// Close 释放应用持有的资源，关闭所有房间
func (s *AppState) Close() {
	if s.RoomSvc != nil {
		s.RoomSvc.Close()
	}
}
