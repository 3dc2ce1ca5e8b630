package game

import (
	"slices"

	"go.uber.org/zap"
)

// assembleCar 公开本轮所有零件的真假，返回是否组装成功。
// 没有收集任何零件时视为成功。
func assembleCar(room *Room, callerID string) (bool, error) {
	leader, ok := room.Players[callerID]
	if !ok || !leader.IsLeader() {
		return false, ErrNotLeaderAssemble
	}

	allGenuine := true
	for _, cp := range room.CollectedParts {
		if !cp.IsGenuine {
			allGenuine = false
			break
		}
	}

	room.PendingTarget = ""
	room.AssemblySucceeded = allGenuine

	room.BroadcastResp(WrapResponse(
		RESP_ASSEMBLY_RESULT,
		AssemblyResultResponse{
			Success:       allGenuine,
			RevealedParts: slices.Clone(room.CollectedParts),
		},
	))

	zap.L().Info(
		"队长尝试组装",
		zap.String("room_code", room.Code),
		zap.Int("round", room.RoundNumber),
		zap.Bool("success", allGenuine),
	)

	return allGenuine, nil
}

// eliminationCandidates 除队长以外的存活玩家
func eliminationCandidates(room *Room, leaderID string) []PublicPlayer {
	candidates := make([]PublicPlayer, 0, len(room.Players))
	for _, p := range room.AlivePlayers() {
		if p.ID != leaderID {
			candidates = append(candidates, publicPlayer(p))
		}
	}

	return candidates
}

// eliminatePlayer 淘汰目标玩家并返回是否满足结束条件
func eliminatePlayer(room *Room, callerID string, targetID string) (bool, error) {
	leader, ok := room.Players[callerID]
	if !ok || !leader.IsLeader() {
		return false, ErrNotLeaderEliminate
	}

	target, ok := room.Players[targetID]
	if !ok || !target.IsAlive || target.ID == leader.ID {
		return false, ErrInvalidTarget
	}

	target.IsAlive = false
	target.Part = ""

	room.UnicastResp(target.ID, WrapResponse(
		RESP_ELIMINATED,
		EliminatedResponse{
			ByPlayerID: leader.ID,
		},
	))

	zap.L().Info(
		"玩家被淘汰",
		zap.String("room_code", room.Code),
		zap.String("player_id", target.ID),
		zap.String("player_name", target.Name),
		zap.Int("alive", room.AliveCount()),
	)

	return gameOver(room), nil
}

func gameOver(room *Room) bool {
	return room.AliveCount() <= 2
}

// declareWinners 存活玩家即为胜者
func declareWinners(room *Room) []Winner {
	alive := room.AlivePlayers()

	room.Winners = make([]string, 0, len(alive))
	winners := make([]Winner, 0, len(alive))

	for _, p := range alive {
		room.Winners = append(room.Winners, p.ID)
		winners = append(winners, Winner{ID: p.ID, Name: p.Name})
	}

	return winners
}
