package game

import (
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// 游戏阶段：
// 1. 等待阶段（Waiting）：玩家加入房间，等待房主开始游戏
// 2. 分配阶段（Distribution）：为存活玩家分配零件，短暂停留后进入协商
// 3. 协商阶段（Negotiation）：队长向其他玩家索要零件，最后尝试组装
// 4. 组装阶段（Assembly）：公开所有零件的真假，决定淘汰或重新分配
// 5. 淘汰阶段（Elimination）：组装成功后由队长淘汰一名玩家
// 6. 结束阶段（Finished）：存活玩家不超过两人，游戏结束
const (
	PHASE_WAITING      = "waiting"
	PHASE_DISTRIBUTION = "distribution"
	PHASE_NEGOTIATION  = "negotiation"
	PHASE_ASSEMBLY     = "assembly"
	PHASE_ELIMINATION  = "elimination"
	PHASE_FINISHED     = "finished"
)

const HARD_MAX_PLAYERS = 8

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{3,16}$`)

// NormalizeRoomCode 房间号不区分大小写
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

type Settings struct {
	MaxPlayers        int
	MinPlayers        int
	DistributionDelay time.Duration
	RevealDelay       time.Duration
	// 大于 0 时服务端按最近一次上报的坐标校验协商距离
	NegotiationRange float64
	// 非 0 时使用固定种子，便于复现发牌结果
	Seed uint64
}

func DefaultSettings() Settings {
	return Settings{
		MaxPlayers:        HARD_MAX_PLAYERS,
		MinPlayers:        3,
		DistributionDelay: 3 * time.Second,
		RevealDelay:       3 * time.Second,
	}
}

type Room struct {
	Code        string
	Phase       string
	Players     map[string]*Player
	RoundNumber int
	// 本轮队长收集到的零件，按收集顺序排列
	CollectedParts []CollectedPart
	Winners        []string
	// 最近一次协商的目标，只有该玩家可以回应
	PendingTarget string
	// 最近一次组装的结果，在组装阶段的延时结束后使用
	AssemblySucceeded bool

	Settings Settings

	TmoCh    chan RequestWrapper
	Timer    *time.Timer
	timerSeq uint64

	// 加入顺序，决定房主继承顺序和零件分配顺序
	order []string
	rng   *rand.Rand
}

func NewRoom(code string, settings Settings) *Room {
	var rng *rand.Rand
	if settings.Seed != 0 {
		rng = rand.New(rand.NewPCG(settings.Seed, settings.Seed^0x9e3779b97f4a7c15))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if settings.MaxPlayers <= 0 || settings.MaxPlayers > HARD_MAX_PLAYERS {
		settings.MaxPlayers = HARD_MAX_PLAYERS
	}
	if settings.MinPlayers < 3 {
		settings.MinPlayers = 3
	}

	return &Room{
		Code:     code,
		Phase:    PHASE_WAITING,
		Players:  make(map[string]*Player),
		Settings: settings,
		TmoCh:    make(chan RequestWrapper, 8),
		rng:      rng,
	}
}

func (r *Room) AddPlayer(p *Player) {
	r.Players[p.ID] = p
	r.order = append(r.order, p.ID)
}

func (r *Room) RemovePlayer(playerID string) *Player {
	p, ok := r.Players[playerID]
	if !ok {
		return nil
	}

	delete(r.Players, playerID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool {
		return id == playerID
	})

	return p
}

// OrderedPlayers 按加入顺序返回所有玩家
func (r *Room) OrderedPlayers() []*Player {
	players := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.Players[id]; ok {
			players = append(players, p)
		}
	}

	return players
}

func (r *Room) AlivePlayers() []*Player {
	return slices.DeleteFunc(r.OrderedPlayers(), func(p *Player) bool {
		return !p.IsAlive
	})
}

func (r *Room) AliveCount() int {
	count := 0
	for _, p := range r.Players {
		if p.IsAlive {
			count++
		}
	}

	return count
}

func (r *Room) Host() *Player {
	for _, p := range r.Players {
		if p.IsHost {
			return p
		}
	}

	return nil
}

func (r *Room) Leader() *Player {
	for _, p := range r.Players {
		if p.IsLeader() {
			return p
		}
	}

	return nil
}

func (r *Room) FindByName(name string) *Player {
	for _, p := range r.Players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}

	return nil
}

func (r *Room) hasCollectedFrom(playerID string) bool {
	return slices.ContainsFunc(r.CollectedParts, func(cp CollectedPart) bool {
		return cp.PlayerID == playerID
	})
}

func (r *Room) resetRound() {
	r.CollectedParts = nil
	r.PendingTarget = ""
	r.AssemblySucceeded = false
}

// IsActive 游戏是否处于进行中的阶段
func (r *Room) IsActive() bool {
	switch r.Phase {
	case PHASE_DISTRIBUTION, PHASE_NEGOTIATION, PHASE_ASSEMBLY, PHASE_ELIMINATION:
		return true
	}

	return false
}

func (r *Room) BroadcastResp(resp ResponseWrapper) {
	for _, p := range r.OrderedPlayers() {
		sendResp(p, resp)
	}
}

func (r *Room) BroadcastExcept(exceptID string, resp ResponseWrapper) {
	for _, p := range r.OrderedPlayers() {
		if p.ID == exceptID {
			continue
		}
		sendResp(p, resp)
	}
}

func (r *Room) UnicastResp(playerID string, resp ResponseWrapper) {
	player, ok := r.Players[playerID]
	if !ok {
		zap.L().Warn(
			"无法找到玩家进行单播响应",
			zap.String("room_code", r.Code),
			zap.String("player_id", playerID),
		)
		return
	}

	sendResp(player, resp)
}

func sendResp(p *Player, resp ResponseWrapper) {
	if p.RespCh == nil {
		return
	}

	select {
	case p.RespCh <- resp:
	default:
		zap.L().Warn(
			"发送响应失败：玩家响应通道已满",
			zap.String("player_id", p.ID),
			zap.String("response_type", resp.RespType),
		)
	}
}

func publicPlayer(p *Player) PublicPlayer {
	return PublicPlayer{
		ID:       p.ID,
		Name:     p.Name,
		IsHost:   p.IsHost,
		IsAlive:  p.IsAlive,
		Position: p.Position,
		Rotation: p.Rotation,
	}
}

// PublicState 房间的公开视图，不包含任何零件真假和非队长玩家的零件
func (r *Room) PublicState() RoomStateResponse {
	state := RoomStateResponse{
		RoomCode:       r.Code,
		Phase:          r.Phase,
		RoundNumber:    r.RoundNumber,
		MaxPlayers:     r.Settings.MaxPlayers,
		Players:        make([]PublicPlayer, 0, len(r.Players)),
		CollectedParts: make([]PublicCollectedPart, 0, len(r.CollectedParts)),
		Winners:        slices.Clone(r.Winners),
	}

	for _, p := range r.OrderedPlayers() {
		state.Players = append(state.Players, publicPlayer(p))
		if p.IsHost {
			state.HostID = p.ID
		}
		if p.IsLeader() {
			state.LeaderID = p.ID
		}
	}

	for _, cp := range r.CollectedParts {
		state.CollectedParts = append(state.CollectedParts, PublicCollectedPart{
			PlayerID: cp.PlayerID,
			Part:     cp.Part,
		})
	}

	return state
}

func (r *Room) BroadcastState(respType string) {
	r.BroadcastResp(WrapResponse(respType, r.PublicState()))
}

// RoomSnapshot 是房间的完整副本，只供服务端内部使用
type RoomSnapshot struct {
	Code           string
	Phase          string
	RoundNumber    int
	HostID         string
	LeaderID       string
	PendingTarget  string
	Players        []Player
	CollectedParts []CollectedPart
	Winners        []string
}

func (s RoomSnapshot) Player(playerID string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == playerID {
			return p, true
		}
	}

	return Player{}, false
}

func (s RoomSnapshot) AliveIDs() []string {
	ids := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		if p.IsAlive {
			ids = append(ids, p.ID)
		}
	}

	return ids
}

func (r *Room) Snapshot() RoomSnapshot {
	snap := RoomSnapshot{
		Code:           r.Code,
		Phase:          r.Phase,
		RoundNumber:    r.RoundNumber,
		PendingTarget:  r.PendingTarget,
		Players:        make([]Player, 0, len(r.Players)),
		CollectedParts: slices.Clone(r.CollectedParts),
		Winners:        slices.Clone(r.Winners),
	}

	for _, p := range r.OrderedPlayers() {
		cp := *p
		cp.RespCh = nil
		snap.Players = append(snap.Players, cp)

		if p.IsHost {
			snap.HostID = p.ID
		}
		if p.IsLeader() {
			snap.LeaderID = p.ID
		}
	}

	return snap
}

// SetTimeout 定时器触发后向 TmoCh 投递超时请求，由房间的事件循环串行处理
func (r *Room) SetTimeout(d time.Duration) {
	r.ClearTimeout()

	r.timerSeq++

	tmo := RequestWrapper{
		ReqType: REQ_TIMEOUT,
		NativeData: &TimeoutRequest{
			Stage: r.Phase,
			Seq:   r.timerSeq,
		},
	}

	tmoCh := r.TmoCh
	code := r.Code

	r.Timer = time.AfterFunc(d, func() {
		select {
		case tmoCh <- tmo:
		default:
			zap.L().Warn("超时通道已满，丢弃超时事件", zap.String("room_code", code))
		}
	})
}

func (r *Room) ClearTimeout() {
	if r.Timer == nil {
		return
	}

	r.Timer.Stop()
	r.Timer = nil
	// 已经投递但尚未处理的超时事件随之失效
	r.timerSeq++
}

func (r *Room) isCurrentTimeout(tmo *TimeoutRequest) bool {
	return tmo.Seq == r.timerSeq && tmo.Stage == r.Phase
}
