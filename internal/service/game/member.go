package game

import (
	"slices"

	"go.uber.org/zap"
)

// onPlayerLeave 在任何阶段都可以处理：主动离开和断线是同一套逻辑
func onPlayerLeave(room *Room, playerID string, switchTo func(string)) error {
	player := room.RemovePlayer(playerID)
	if player == nil {
		return ErrNotInRoom
	}

	wasLeader := player.IsLeader()

	if room.PendingTarget == playerID {
		room.PendingTarget = ""
	}

	// 离开玩家交出的零件不再计入本轮
	room.CollectedParts = slices.DeleteFunc(room.CollectedParts, func(cp CollectedPart) bool {
		return cp.PlayerID == playerID
	})

	sendResp(player, WrapResponse(
		RESP_LEFT_ROOM,
		LeftRoomResponse{
			RoomCode: room.Code,
		},
	))

	var newHostID string

	if player.IsHost && len(room.Players) > 0 {
		successor := room.OrderedPlayers()[0]
		successor.IsHost = true
		newHostID = successor.ID

		zap.L().Info(
			"房主离开，转移房主",
			zap.String("room_code", room.Code),
			zap.String("old_host_id", player.ID),
			zap.String("new_host_id", successor.ID),
		)
	}

	zap.L().Info(
		"玩家离开房间",
		zap.String("room_code", room.Code),
		zap.String("player_id", player.ID),
		zap.String("player_name", player.Name),
		zap.String("phase", room.Phase),
		zap.Int("players", len(room.Players)),
	)

	if len(room.Players) == 0 {
		return nil
	}

	room.BroadcastResp(WrapResponse(
		RESP_PLAYER_LEFT,
		PlayerLeftResponse{
			PlayerID:   player.ID,
			PlayerName: player.Name,
			NewHostID:  newHostID,
		},
	))

	if !room.IsActive() || !player.IsAlive {
		room.BroadcastState(RESP_ROOM_STATE)
		return nil
	}

	if gameOver(room) {
		switchTo(PHASE_FINISHED)
		return nil
	}

	// 队长离开后没有人能推进本轮，只能重新分配
	if wasLeader {
		redeal(room, switchTo)
		return nil
	}

	room.BroadcastState(RESP_ROOM_STATE)

	return nil
}

func onPlayerMove(room *Room, playerID string, req *PlayerMoveRequest) error {
	player, ok := room.Players[playerID]
	if !ok {
		return ErrNotInRoom
	}

	player.Position = req.Position
	player.Rotation = req.Rotation

	room.BroadcastExcept(player.ID, WrapResponse(
		RESP_PLAYER_MOVED,
		PlayerMovedResponse{
			PlayerID: player.ID,
			Position: player.Position,
			Rotation: player.Rotation,
		},
	))

	return nil
}

// onVoiceSignal 语音信令原样转发给目标玩家
func onVoiceSignal(room *Room, playerID string, req *VoiceSignalRequest) error {
	if _, ok := room.Players[playerID]; !ok {
		return ErrNotInRoom
	}

	if _, ok := room.Players[req.TargetPlayerID]; !ok || req.TargetPlayerID == playerID {
		return ErrInvalidTarget
	}

	room.UnicastResp(req.TargetPlayerID, WrapResponse(
		RESP_VOICE_SIGNAL,
		VoiceSignalResponse{
			FromPlayerID: playerID,
			Signal:       req.Signal,
		},
	))

	return nil
}
