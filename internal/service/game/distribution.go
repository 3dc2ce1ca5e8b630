package game

import (
	"math/rand/v2"

	"go.uber.org/zap"
)

// PartsFor 返回 aliveCount 名玩家对应的零件组合：
// 底盘、发动机、变速箱各一个，其余都是车轮
func PartsFor(aliveCount int) ([]string, error) {
	if aliveCount < 3 {
		return nil, ErrNotEnoughPlayers
	}

	parts := make([]string, 0, aliveCount)
	parts = append(parts, PART_CHASSIS, PART_ENGINE, PART_GEARBOX)

	for range aliveCount - 3 {
		parts = append(parts, PART_WHEEL)
	}

	return parts, nil
}

// Distribute 返回洗牌后的零件序列
func Distribute(aliveCount int, rng *rand.Rand) ([]string, error) {
	parts, err := PartsFor(aliveCount)
	if err != nil {
		return nil, err
	}

	// Fisher-Yates
	rng.Shuffle(len(parts), func(i, j int) {
		parts[i], parts[j] = parts[j], parts[i]
	})

	return parts, nil
}

// dealRound 清空本轮数据，按加入顺序为存活玩家重新分配零件，
// 并私下通知每名玩家自己的零件
func dealRound(room *Room) error {
	alive := room.AlivePlayers()

	parts, err := Distribute(len(alive), room.rng)
	if err != nil {
		return err
	}

	room.resetRound()

	for _, p := range room.Players {
		if !p.IsAlive {
			p.Part = ""
		}
	}

	for i, p := range alive {
		p.Part = parts[i]
	}

	for _, p := range alive {
		room.UnicastResp(p.ID, WrapResponse(
			RESP_PART_ASSIGNED,
			PartAssignedResponse{
				Part:        p.Part,
				IsLeader:    p.Part == PART_CHASSIS,
				RoundNumber: room.RoundNumber,
			},
		))
	}

	if leader := room.Leader(); leader != nil {
		zap.L().Info(
			"零件分配完成",
			zap.String("room_code", room.Code),
			zap.Int("round", room.RoundNumber),
			zap.Int("alive", len(alive)),
			zap.String("leader_id", leader.ID),
		)
	}

	return nil
}
