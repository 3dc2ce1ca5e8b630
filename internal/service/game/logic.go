package game

import (
	"strings"

	"go.uber.org/zap"
)

type StageHandler interface {
	Stage() string

	OnEnter(room *Room)
	OnHandle(room *Room, req RequestWrapper) error
	OnExit(room *Room)

	SetOnSwitch(func(nextStage string))
}

type stageSwitch struct {
	onSwitch func(string)
}

func (s *stageSwitch) SetOnSwitch(onSwitch func(string)) {
	s.onSwitch = onSwitch
}

func (s *stageSwitch) switchTo(nextStage string) {
	if s.onSwitch != nil {
		s.onSwitch(nextStage)
	}
}

func newStageHandler(stage string) StageHandler {
	switch stage {
	case PHASE_WAITING:
		return NewWaitStageHandler()
	case PHASE_DISTRIBUTION:
		return NewDistributionStageHandler()
	case PHASE_NEGOTIATION:
		return NewNegotiationStageHandler()
	case PHASE_ASSEMBLY:
		return NewAssemblyStageHandler()
	case PHASE_ELIMINATION:
		return NewEliminationStageHandler()
	case PHASE_FINISHED:
		return NewFinishStageHandler()
	}

	return nil
}

// 非本阶段的请求统一返回的错误
func rejectOutOfPhase(room *Room, req RequestWrapper) error {
	switch req.ReqType {
	case REQ_JOIN_ROOM:
		if room.Phase == PHASE_FINISHED {
			return ErrGameFinished
		}
		return ErrGameInProgress
	case REQ_START_GAME:
		if room.Phase == PHASE_FINISHED {
			return ErrGameFinished
		}
		return ErrGameInProgress
	case REQ_REQUEST_NEGOTIATION, REQ_RESPOND_NEGOTIATION,
		REQ_ASSEMBLE_CAR, REQ_ELIMINATE_PLAYER:
		if room.Phase == PHASE_FINISHED {
			return ErrGameFinished
		}
		return ErrWrongPhase
	case REQ_TIMEOUT:
		return nil
	}

	return ErrUnknownRequest
}

// ===== 等待阶段 =====

type waitStageHandler struct {
	stageSwitch
}

func NewWaitStageHandler() *waitStageHandler {
	return &waitStageHandler{}
}

func (wsh *waitStageHandler) Stage() string {
	return PHASE_WAITING
}

func (wsh *waitStageHandler) OnEnter(room *Room) {}

func (wsh *waitStageHandler) OnHandle(room *Room, req RequestWrapper) error {
	switch req.ReqType {
	case REQ_JOIN_ROOM:
		joinReq, err := UnwrapRequest[JoinRoomRequest](req)
		if err != nil {
			return err
		}
		return onPlayerJoin(room, joinReq)

	case REQ_START_GAME:
		host := room.Host()
		if host == nil || host.ID != req.PlayerID {
			return ErrNotHost
		}

		if len(room.Players) < room.Settings.MinPlayers {
			return ErrNotEnoughPlayers
		}

		zap.L().Info(
			"房主开始游戏",
			zap.String("room_code", room.Code),
			zap.Int("players", len(room.Players)),
		)

		wsh.switchTo(PHASE_DISTRIBUTION)
		return nil
	}

	return rejectOutOfPhase(room, req)
}

func (wsh *waitStageHandler) OnExit(room *Room) {}

func onPlayerJoin(room *Room, req *JoinRoomRequest) error {
	name := strings.TrimSpace(req.PlayerName)
	if name == "" {
		return ErrEmptyName
	}

	if len(room.Players) >= room.Settings.MaxPlayers {
		return ErrRoomFull
	}

	if room.FindByName(name) != nil {
		return ErrNameTaken
	}

	playerID := req.PlayerID
	if playerID == "" {
		playerID = GenID()
	}

	if _, exists := room.Players[playerID]; exists {
		return ErrAlreadyInRoom
	}

	player := &Player{
		ID:       playerID,
		ConnID:   req.ConnID,
		Name:     name,
		IsAlive:  true,
		Position: spawnPosition(len(room.Players)),
		RespCh:   req.RespCh,
	}

	// 房间里始终有且只有一名房主
	if room.Host() == nil {
		player.IsHost = true
	}

	existing := room.OrderedPlayers()
	room.AddPlayer(player)

	zap.L().Info(
		"玩家加入房间",
		zap.String("room_code", room.Code),
		zap.String("player_id", player.ID),
		zap.String("player_name", player.Name),
		zap.Bool("host", player.IsHost),
		zap.Int("players", len(room.Players)),
	)

	room.UnicastResp(player.ID, WrapResponse(
		RESP_JOINED,
		JoinedResponse{
			RoomCode: room.Code,
			PlayerID: player.ID,
		},
	))

	room.BroadcastState(RESP_ROOM_STATE)

	// 新玩家需要知道已有玩家的位置
	for _, p := range existing {
		room.UnicastResp(player.ID, WrapResponse(
			RESP_PLAYER_MOVED,
			PlayerMovedResponse{
				PlayerID: p.ID,
				Position: p.Position,
				Rotation: p.Rotation,
			},
		))
	}

	return nil
}

// ===== 分配阶段 =====

type distributionStageHandler struct {
	stageSwitch
}

func NewDistributionStageHandler() *distributionStageHandler {
	return &distributionStageHandler{}
}

func (dsh *distributionStageHandler) Stage() string {
	return PHASE_DISTRIBUTION
}

func (dsh *distributionStageHandler) OnEnter(room *Room) {
	room.RoundNumber = 1
	room.Winners = nil

	alive := room.AlivePlayers()
	for i, p := range alive {
		p.Position, p.Rotation = seatPosition(i, len(alive))
	}

	if err := dealRound(room); err != nil {
		// 开始游戏前已经校验过人数，这里只可能是人数在同一时刻发生了变化
		zap.L().Error(
			"分配零件失败，回到等待阶段",
			zap.String("room_code", room.Code),
			zap.Error(err),
		)
		room.RoundNumber = 0
		dsh.switchTo(PHASE_WAITING)
		return
	}

	room.BroadcastState(RESP_ROOM_STATE)

	if room.Settings.DistributionDelay <= 0 {
		dsh.beginNegotiation(room)
		return
	}

	room.SetTimeout(room.Settings.DistributionDelay)
}

func (dsh *distributionStageHandler) OnHandle(room *Room, req RequestWrapper) error {
	if req.ReqType == REQ_TIMEOUT {
		room.Timer = nil
		dsh.beginNegotiation(room)
		return nil
	}

	return rejectOutOfPhase(room, req)
}

func (dsh *distributionStageHandler) beginNegotiation(room *Room) {
	dsh.switchTo(PHASE_NEGOTIATION)
	room.BroadcastState(RESP_ROOM_STATE)
}

func (dsh *distributionStageHandler) OnExit(room *Room) {
	room.ClearTimeout()
}

// ===== 协商阶段 =====

type negotiationStageHandler struct {
	stageSwitch
}

func NewNegotiationStageHandler() *negotiationStageHandler {
	return &negotiationStageHandler{}
}

func (nsh *negotiationStageHandler) Stage() string {
	return PHASE_NEGOTIATION
}

func (nsh *negotiationStageHandler) OnEnter(room *Room) {}

func (nsh *negotiationStageHandler) OnHandle(room *Room, req RequestWrapper) error {
	switch req.ReqType {
	case REQ_REQUEST_NEGOTIATION:
		negReq, err := UnwrapRequest[RequestNegotiationRequest](req)
		if err != nil {
			return err
		}
		return requestNegotiation(room, req.PlayerID, negReq)

	case REQ_RESPOND_NEGOTIATION:
		respReq, err := UnwrapRequest[RespondNegotiationRequest](req)
		if err != nil {
			return err
		}
		return respondToNegotiation(room, req.PlayerID, respReq)

	case REQ_ASSEMBLE_CAR:
		if _, err := assembleCar(room, req.PlayerID); err != nil {
			return err
		}
		nsh.switchTo(PHASE_ASSEMBLY)
		return nil
	}

	return rejectOutOfPhase(room, req)
}

func (nsh *negotiationStageHandler) OnExit(room *Room) {
	room.PendingTarget = ""
}

// ===== 组装阶段 =====

// 组装阶段只是公开结果后的短暂停留
type assemblyStageHandler struct {
	stageSwitch
}

func NewAssemblyStageHandler() *assemblyStageHandler {
	return &assemblyStageHandler{}
}

func (ash *assemblyStageHandler) Stage() string {
	return PHASE_ASSEMBLY
}

func (ash *assemblyStageHandler) OnEnter(room *Room) {
	if room.Settings.RevealDelay <= 0 {
		ash.resolve(room)
		return
	}

	room.SetTimeout(room.Settings.RevealDelay)
}

func (ash *assemblyStageHandler) OnHandle(room *Room, req RequestWrapper) error {
	if req.ReqType == REQ_TIMEOUT {
		room.Timer = nil
		ash.resolve(room)
		return nil
	}

	return rejectOutOfPhase(room, req)
}

func (ash *assemblyStageHandler) resolve(room *Room) {
	if room.AssemblySucceeded {
		ash.switchTo(PHASE_ELIMINATION)
		return
	}

	redeal(room, ash.switchTo)
}

func (ash *assemblyStageHandler) OnExit(room *Room) {
	room.ClearTimeout()
}

// redeal 在同一轮次内重新分配零件并回到协商阶段
func redeal(room *Room, switchTo func(string)) {
	if err := dealRound(room); err != nil {
		zap.L().Error(
			"重新分配零件失败",
			zap.String("room_code", room.Code),
			zap.Error(err),
		)
		switchTo(PHASE_FINISHED)
		return
	}

	switchTo(PHASE_NEGOTIATION)

	room.BroadcastState(RESP_ROOM_STATE)
	room.BroadcastResp(WrapResponse(
		RESP_ROUND_RESET,
		RoundResetResponse{
			RoundNumber: room.RoundNumber,
		},
	))
}

// ===== 淘汰阶段 =====

type eliminationStageHandler struct {
	stageSwitch
}

func NewEliminationStageHandler() *eliminationStageHandler {
	return &eliminationStageHandler{}
}

func (esh *eliminationStageHandler) Stage() string {
	return PHASE_ELIMINATION
}

func (esh *eliminationStageHandler) OnEnter(room *Room) {
	room.BroadcastState(RESP_ROOM_STATE)

	leader := room.Leader()
	if leader == nil {
		return
	}

	room.UnicastResp(leader.ID, WrapResponse(
		RESP_CHOOSE_ELIMINATION,
		ChooseEliminationResponse{
			AlivePlayers: eliminationCandidates(room, leader.ID),
		},
	))
}

func (esh *eliminationStageHandler) OnHandle(room *Room, req RequestWrapper) error {
	if req.ReqType != REQ_ELIMINATE_PLAYER {
		return rejectOutOfPhase(room, req)
	}

	elimReq, err := UnwrapRequest[EliminatePlayerRequest](req)
	if err != nil {
		return err
	}

	finished, err := eliminatePlayer(room, req.PlayerID, elimReq.TargetPlayerID)
	if err != nil {
		return err
	}

	if finished {
		esh.switchTo(PHASE_FINISHED)
		return nil
	}

	room.RoundNumber++

	if err := dealRound(room); err != nil {
		esh.switchTo(PHASE_FINISHED)
		return nil
	}

	esh.switchTo(PHASE_NEGOTIATION)
	room.BroadcastState(RESP_NEXT_ROUND)

	return nil
}

func (esh *eliminationStageHandler) OnExit(room *Room) {}

// ===== 结束阶段 =====

type finishStageHandler struct {
	stageSwitch
}

func NewFinishStageHandler() *finishStageHandler {
	return &finishStageHandler{}
}

func (fsh *finishStageHandler) Stage() string {
	return PHASE_FINISHED
}

func (fsh *finishStageHandler) OnEnter(room *Room) {
	room.ClearTimeout()

	winners := declareWinners(room)
	room.resetRound()

	zap.L().Info(
		"游戏结束",
		zap.String("room_code", room.Code),
		zap.Int("round", room.RoundNumber),
		zap.Strings("winners", room.Winners),
	)

	room.BroadcastState(RESP_ROOM_STATE)
	room.BroadcastResp(WrapResponse(
		RESP_GAME_OVER,
		GameOverResponse{
			Winners: winners,
		},
	))
}

func (fsh *finishStageHandler) OnHandle(room *Room, req RequestWrapper) error {
	return rejectOutOfPhase(room, req)
}

func (fsh *finishStageHandler) OnExit(room *Room) {}
