package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// GameMachine 是房间的状态机，房间内所有请求和定时器事件都在同一个协程里串行处理
type GameMachine struct {
	room    *Room
	handler StageHandler
	// 这是所有的用户的请求汇总的通道
	reqCh chan RequestWrapper
	// 外部要求关闭房间
	stopCh   chan struct{}
	stopOnce sync.Once
	// 事件循环退出后关闭
	exitedCh chan struct{}
	// 房间人数归零时回调，由注册表负责移除
	onEmpty func(gm *GameMachine)

	createdAt time.Time

	// 供其他协程读取的只读视图
	phase       atomic.Value
	playerCount atomic.Int32
	finishedAt  atomic.Int64
}

func NewGameMachine(code string, settings Settings, onEmpty func(gm *GameMachine)) *GameMachine {
	gm := &GameMachine{
		room:      NewRoom(code, settings),
		handler:   NewWaitStageHandler(),
		reqCh:     make(chan RequestWrapper, 64),
		stopCh:    make(chan struct{}),
		exitedCh:  make(chan struct{}),
		onEmpty:   onEmpty,
		createdAt: time.Now(),
	}

	gm.handler.SetOnSwitch(gm.switchTo)
	gm.publish()

	return gm
}

func (gm *GameMachine) switchTo(nextStage string) {
	gm.room.Phase = nextStage
}

func (gm *GameMachine) Code() string {
	return gm.room.Code
}

// Bootstrap 在事件循环启动之前同步处理一个请求，用于创建房间时加入房主
func (gm *GameMachine) Bootstrap(req RequestWrapper) error {
	err := gm.dispatch(req)
	gm.settle()
	gm.publish()

	return err
}

func (gm *GameMachine) Start() {
	defer func() {
		gm.room.ClearTimeout()
		close(gm.exitedCh)

		zap.L().Info(
			"房间状态机已结束",
			zap.String("room_code", gm.room.Code),
		)
	}()

	// 执行初始 handler 的 OnEnter
	gm.handler.OnEnter(gm.room)
	gm.settle()

	for {
		var req RequestWrapper

		select {
		case req = <-gm.reqCh:
			zap.L().Debug(
				"接收到客户端请求",
				zap.String("room_code", gm.room.Code),
				zap.String("request_type", req.ReqType),
				zap.String("player_id", req.PlayerID),
			)
		case req = <-gm.room.TmoCh:
			zap.L().Debug(
				"接收到超时事件",
				zap.String("room_code", gm.room.Code),
				zap.String("stage", gm.handler.Stage()),
			)
		case <-gm.stopCh:
			zap.L().Info(
				"收到退出信号，关闭房间",
				zap.String("room_code", gm.room.Code),
			)
			gm.room.BroadcastResp(WrapResponse(
				RESP_LEFT_ROOM,
				LeftRoomResponse{
					RoomCode: gm.room.Code,
					Reason:   "room closed",
				},
			))
			return
		}

		err := gm.dispatch(req)
		if err != nil {
			zap.L().Debug(
				"处理请求失败",
				zap.Error(err),
				zap.String("stage", gm.handler.Stage()),
				zap.String("request_type", req.ReqType),
				zap.String("player_id", req.PlayerID),
			)
		}

		gm.settle()
		gm.publish()
		gm.reply(req, err)

		if len(gm.room.Players) == 0 {
			zap.L().Info("房间已空", zap.String("room_code", gm.room.Code))

			if gm.onEmpty != nil {
				gm.onEmpty(gm)
			}
			return
		}
	}
}

func (gm *GameMachine) dispatch(req RequestWrapper) error {
	room := gm.room

	switch req.ReqType {
	case REQ_SNAPSHOT:
		if snapReq, ok := req.NativeData.(*snapshotRequest); ok {
			snapReq.resultCh <- room.Snapshot()
		}
		return nil

	case REQ_TIMEOUT:
		tmo, ok := req.NativeData.(*TimeoutRequest)
		if !ok || !room.isCurrentTimeout(tmo) {
			return nil
		}
		return gm.handler.OnHandle(room, req)

	case REQ_JOIN_ROOM:
		return gm.handler.OnHandle(room, req)
	}

	if _, ok := room.Players[req.PlayerID]; !ok {
		return ErrNotInRoom
	}

	switch req.ReqType {
	case REQ_LEAVE_ROOM:
		return onPlayerLeave(room, req.PlayerID, gm.switchTo)

	case REQ_PLAYER_MOVE:
		moveReq, err := UnwrapRequest[PlayerMoveRequest](req)
		if err != nil {
			return err
		}
		return onPlayerMove(room, req.PlayerID, moveReq)

	case REQ_VOICE_SIGNAL:
		signalReq, err := UnwrapRequest[VoiceSignalRequest](req)
		if err != nil {
			return err
		}
		return onVoiceSignal(room, req.PlayerID, signalReq)
	}

	return gm.handler.OnHandle(room, req)
}

// reply 错误只返回给发起请求的玩家
func (gm *GameMachine) reply(req RequestWrapper, err error) {
	if req.replyCh != nil {
		req.replyCh <- err
		return
	}

	if err != nil && req.PlayerID != "" {
		if _, ok := gm.room.Players[req.PlayerID]; ok {
			gm.room.UnicastResp(req.PlayerID, WrapErrResponse(err))
		}
	}
}

// settle 根据房间阶段切换 handler，OnEnter 自身也可能继续切换阶段
func (gm *GameMachine) settle() {
	for gm.room.Phase != gm.handler.Stage() {
		from := gm.handler.Stage()

		// 执行当前 handler 的 OnExit
		gm.handler.OnExit(gm.room)

		newHandler := newStageHandler(gm.room.Phase)
		if newHandler == nil {
			zap.L().Error(
				"未知的游戏阶段",
				zap.String("room_code", gm.room.Code),
				zap.String("stage", gm.room.Phase),
			)
			gm.room.Phase = from
			return
		}

		newHandler.SetOnSwitch(gm.switchTo)
		gm.handler = newHandler

		zap.L().Info(
			"房间阶段切换",
			zap.String("room_code", gm.room.Code),
			zap.String("from", from),
			zap.String("to", gm.room.Phase),
		)

		gm.handler.OnEnter(gm.room)
	}
}

func (gm *GameMachine) publish() {
	gm.phase.Store(gm.room.Phase)
	gm.playerCount.Store(int32(len(gm.room.Players)))

	if gm.room.Phase == PHASE_FINISHED {
		gm.finishedAt.CompareAndSwap(0, time.Now().UnixNano())
	}
}

// Submit 非阻塞地投递请求，处理失败时错误会单播给请求者
func (gm *GameMachine) Submit(req RequestWrapper) error {
	select {
	case <-gm.exitedCh:
		return ErrRoomNotFound
	default:
	}

	select {
	case gm.reqCh <- req:
		return nil
	case <-gm.exitedCh:
		return ErrRoomNotFound
	default:
		zap.L().Warn(
			"房间请求通道已满",
			zap.String("room_code", gm.room.Code),
			zap.String("request_type", req.ReqType),
		)
		return ErrRoomBusy
	}
}

// Exec 投递请求并等待处理结果
func (gm *GameMachine) Exec(ctx context.Context, req RequestWrapper) error {
	req.replyCh = make(chan error, 1)

	select {
	case <-gm.exitedCh:
		return ErrRoomNotFound
	default:
	}

	select {
	case gm.reqCh <- req:
	case <-gm.exitedCh:
		return ErrRoomNotFound
	case <-ctx.Done():
		return ErrRoomBusy
	}

	select {
	case err := <-req.replyCh:
		return err
	case <-gm.exitedCh:
		// 最后一名玩家离开时，结果在循环退出前已经写入
		select {
		case err := <-req.replyCh:
			return err
		default:
			return ErrRoomNotFound
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot 在事件循环内复制一份房间状态
func (gm *GameMachine) Snapshot(ctx context.Context) (RoomSnapshot, error) {
	resultCh := make(chan RoomSnapshot, 1)

	err := gm.Exec(ctx, RequestWrapper{
		ReqType:    REQ_SNAPSHOT,
		NativeData: &snapshotRequest{resultCh: resultCh},
	})
	if err != nil {
		return RoomSnapshot{}, err
	}

	return <-resultCh, nil
}

func (gm *GameMachine) Stop() {
	gm.stopOnce.Do(func() {
		close(gm.stopCh)
	})
}

func (gm *GameMachine) Done() <-chan struct{} {
	return gm.exitedCh
}

func (gm *GameMachine) Phase() string {
	phase, _ := gm.phase.Load().(string)
	return phase
}

func (gm *GameMachine) PlayerCount() int {
	return int(gm.playerCount.Load())
}

func (gm *GameMachine) IsFinished() bool {
	return gm.Phase() == PHASE_FINISHED
}

// FinishedAt 进入结束阶段的时间，尚未结束时为零值
func (gm *GameMachine) FinishedAt() time.Time {
	ns := gm.finishedAt.Load()
	if ns == 0 {
		return time.Time{}
	}

	return time.Unix(0, ns)
}

func (gm *GameMachine) CreatedAt() time.Time {
	return gm.createdAt
}

func (gm *GameMachine) MaxPlayers() int {
	return gm.room.Settings.MaxPlayers
}
