package game

import "math"

// 车辆零件，CHASSIS 的持有者即为本轮的队长
const (
	PART_CHASSIS = "chassis"
	PART_ENGINE  = "engine"
	PART_GEARBOX = "gearbox"
	PART_WHEEL   = "wheel"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Rotation struct {
	Y float64 `json:"y"`
}

type Player struct {
	ID     string `json:"id"`
	ConnID string `json:"-"`
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
	// 空字符串表示尚未分配或已被淘汰
	Part    string `json:"-"`
	IsAlive bool   `json:"is_alive"`

	Position Position `json:"position"`
	Rotation Rotation `json:"rotation"`

	RespCh chan ResponseWrapper `json:"-"`
}

func (p *Player) IsLeader() bool {
	return p.IsAlive && p.Part == PART_CHASSIS
}

// CollectedPart 是队长在本轮收集到的零件，IsGenuine 只在组装时公开
type CollectedPart struct {
	PlayerID  string `json:"player_id"`
	Part      string `json:"part"`
	IsGenuine bool   `json:"is_genuine"`
}

// 新玩家出生在半径为 5 的圆上
func spawnPosition(index int) Position {
	angle := float64(index) * math.Pi * 2 / 8
	return Position{
		X: math.Sin(angle) * 5,
		Y: 1.6,
		Z: math.Cos(angle) * 5,
	}
}

// 开局时所有存活玩家按人数均匀围成一圈
func seatPosition(index, total int) (Position, Rotation) {
	angle := float64(index) * math.Pi * 2 / float64(total)
	return Position{
			X: math.Sin(angle) * 5,
			Y: 0.8,
			Z: math.Cos(angle) * 5,
		}, Rotation{
			Y: -angle,
		}
}

// 只比较水平面上的距离
func planarDistance(a, b Position) float64 {
	return math.Hypot(a.X-b.X, a.Z-b.Z)
}
