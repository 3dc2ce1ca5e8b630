package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"carparts-be/internal/service/dto"
	"carparts-be/internal/service/game"

	"go.uber.org/zap"
)

var ErrNoFreeRoomCode = errors.New("no free room code")

type Options struct {
	Settings        game.Settings
	FinishedRoomTTL time.Duration
	CleanupInterval time.Duration
	RoomCodeLength  int
	// 等待房间处理加入、离开请求的最长时间
	RequestTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Settings:        game.DefaultSettings(),
		FinishedRoomTTL: 10 * time.Minute,
		CleanupInterval: time.Minute,
		RoomCodeLength:  6,
		RequestTimeout:  5 * time.Second,
	}
}

// RoomService 是房间注册表，维护房间号到房间状态机的映射
type RoomService struct {
	opts  Options
	state *roomServiceState
}

type roomServiceState struct {
	mu sync.RWMutex

	rooms map[string]*game.GameMachine

	cleanUpDone chan struct{}
	closeOnce   sync.Once
}

// Membership 是一条连接与房间内玩家之间的绑定
type Membership struct {
	Machine  *game.GameMachine
	RoomCode string
	PlayerID string
}

func NewRoomService(opts Options) *RoomService {
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}
	if opts.RoomCodeLength < 3 {
		opts.RoomCodeLength = 6
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	state := &roomServiceState{
		rooms:       make(map[string]*game.GameMachine),
		cleanUpDone: make(chan struct{}),
	}

	rs := &RoomService{
		opts:  opts,
		state: state,
	}

	// 启动一个 goroutine 定期清理已经结束的房间
	go rs.startCleanupLoop()

	return rs
}

func (rs *RoomService) startCleanupLoop() {
	ticker := time.NewTicker(rs.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rs.state.cleanUpDone:
			return

		case <-ticker.C:
			rs.cleanup(time.Now())
		}
	}
}

func (rs *RoomService) cleanup(now time.Time) {
	rs.state.mu.Lock()
	defer rs.state.mu.Unlock()

	for code, gm := range rs.state.rooms {
		if !rs.isRoomExpired(gm, now) {
			continue
		}

		zap.S().Infof("房间 %s 已失效，开始清理", code)

		gm.Stop()
		delete(rs.state.rooms, code)
	}
}

func (rs *RoomService) isRoomExpired(gm *game.GameMachine, now time.Time) bool {
	select {
	case <-gm.Done():
		return true
	default:
	}

	if !gm.IsFinished() || rs.opts.FinishedRoomTTL <= 0 {
		return false
	}

	return now.Sub(gm.FinishedAt()) >= rs.opts.FinishedRoomTTL
}

// release 由房间状态机在人数归零时调用
func (rs *RoomService) release(gm *game.GameMachine) {
	rs.state.mu.Lock()
	defer rs.state.mu.Unlock()

	if current, ok := rs.state.rooms[gm.Code()]; ok && current == gm {
		delete(rs.state.rooms, gm.Code())
		zap.S().Infof("房间 %s 已无玩家，删除房间", gm.Code())
	}
}

// Close 关闭清理协程和所有房间
func (rs *RoomService) Close() {
	rs.state.closeOnce.Do(func() {
		close(rs.state.cleanUpDone)

		rs.state.mu.Lock()
		defer rs.state.mu.Unlock()

		for code, gm := range rs.state.rooms {
			gm.Stop()
			delete(rs.state.rooms, code)
		}
	})
}

func validateJoin(req *game.JoinRoomRequest) error {
	req.RoomCode = game.NormalizeRoomCode(req.RoomCode)
	req.PlayerName = strings.TrimSpace(req.PlayerName)

	if !game.ValidRoomCode(req.RoomCode) {
		return game.ErrInvalidRoomCode
	}
	if req.PlayerName == "" {
		return game.ErrEmptyName
	}
	if req.PlayerID == "" {
		req.PlayerID = game.GenID()
	}

	return nil
}

// CreateRoom 创建房间并让请求者作为房主加入
func (rs *RoomService) CreateRoom(req game.JoinRoomRequest) (Membership, error) {
	if err := validateJoin(&req); err != nil {
		return Membership{}, err
	}

	rs.state.mu.Lock()

	if existing, ok := rs.state.rooms[req.RoomCode]; ok {
		select {
		case <-existing.Done():
			delete(rs.state.rooms, req.RoomCode)
		default:
			rs.state.mu.Unlock()
			return Membership{}, game.ErrRoomExists
		}
	}

	gm := game.NewGameMachine(req.RoomCode, rs.opts.Settings, rs.release)

	// 房主在事件循环启动前加入，房间对外可见时一定已经有房主
	err := gm.Bootstrap(game.RequestWrapper{
		ReqType:    game.REQ_JOIN_ROOM,
		NativeData: &req,
	})
	if err != nil {
		rs.state.mu.Unlock()
		return Membership{}, err
	}

	rs.state.rooms[req.RoomCode] = gm

	rs.state.mu.Unlock()

	go gm.Start()

	zap.S().Infof("房间 %s 由 %s 创建", req.RoomCode, req.PlayerName)

	return Membership{
		Machine:  gm,
		RoomCode: req.RoomCode,
		PlayerID: req.PlayerID,
	}, nil
}

func (rs *RoomService) JoinRoom(ctx context.Context, req game.JoinRoomRequest) (Membership, error) {
	if err := validateJoin(&req); err != nil {
		return Membership{}, err
	}

	gm, err := rs.GetRoom(req.RoomCode)
	if err != nil {
		return Membership{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, rs.opts.RequestTimeout)
	defer cancel()

	zap.S().Debugf("房间 %s 收到加入请求：%s", req.RoomCode, req.PlayerName)

	err = gm.Exec(ctx, game.RequestWrapper{
		ReqType:    game.REQ_JOIN_ROOM,
		NativeData: &req,
	})
	if err != nil {
		zap.S().Debugf("房间 %s 处理 %s 加入失败：%v", req.RoomCode, req.PlayerName, err)
		return Membership{}, err
	}

	return Membership{
		Machine:  gm,
		RoomCode: req.RoomCode,
		PlayerID: req.PlayerID,
	}, nil
}

// Leave 主动离开或断线，房间为空时由状态机自行通知注册表删除
func (rs *RoomService) Leave(ctx context.Context, m Membership) error {
	if m.Machine == nil {
		return game.ErrNotInRoom
	}

	ctx, cancel := context.WithTimeout(ctx, rs.opts.RequestTimeout)
	defer cancel()

	return m.Machine.Exec(ctx, game.RequestWrapper{
		ReqType:  game.REQ_LEAVE_ROOM,
		PlayerID: m.PlayerID,
	})
}

func (rs *RoomService) GetRoom(code string) (*game.GameMachine, error) {
	code = game.NormalizeRoomCode(code)

	rs.state.mu.RLock()
	gm, ok := rs.state.rooms[code]
	rs.state.mu.RUnlock()

	if !ok {
		return nil, game.ErrRoomNotFound
	}

	return gm, nil
}

func (rs *RoomService) Summary(code string) (dto.RoomSummary, error) {
	gm, err := rs.GetRoom(code)
	if err != nil {
		return dto.RoomSummary{}, err
	}

	phase := gm.Phase()
	count := gm.PlayerCount()

	return dto.RoomSummary{
		RoomCode:    gm.Code(),
		Phase:       phase,
		PlayerCount: count,
		MaxPlayers:  gm.MaxPlayers(),
		Joinable:    phase == game.PHASE_WAITING && count < gm.MaxPlayers(),
	}, nil
}

// GenerateCode 生成一个当前未被占用的房间号
func (rs *RoomService) GenerateCode() (string, error) {
	for range 16 {
		code := game.GenRoomCode(rs.opts.RoomCodeLength)
		if _, err := rs.GetRoom(code); errors.Is(err, game.ErrRoomNotFound) {
			return code, nil
		}
	}

	return "", ErrNoFreeRoomCode
}

func (rs *RoomService) RoomCount() int {
	rs.state.mu.RLock()
	defer rs.state.mu.RUnlock()

	return len(rs.state.rooms)
}
