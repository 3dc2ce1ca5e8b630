package game

import "errors"

// 所有校验错误的文本都会原样发送给客户端，作为机器可读的失败原因
var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomExists           = errors.New("room already exists")
	ErrRoomFull             = errors.New("room full")
	ErrRoomBusy             = errors.New("room busy")
	ErrInvalidRoomCode      = errors.New("invalid room code")
	ErrRoomMismatch         = errors.New("not in this room")
	ErrEmptyName            = errors.New("player name required")
	ErrNameTaken            = errors.New("name already taken")
	ErrNotInRoom            = errors.New("not in a room")
	ErrAlreadyInRoom        = errors.New("already in a room")
	ErrNotEnoughPlayers     = errors.New("not enough players")
	ErrNotHost              = errors.New("only host may start")
	ErrGameInProgress       = errors.New("game already started")
	ErrGameFinished         = errors.New("game finished")
	ErrWrongPhase           = errors.New("wrong phase")
	ErrNotLeaderNegotiate   = errors.New("only leader may negotiate")
	ErrNotLeaderAssemble    = errors.New("only leader may assemble")
	ErrNotLeaderEliminate   = errors.New("only leader may eliminate")
	ErrInvalidTarget        = errors.New("invalid target")
	ErrTooFar               = errors.New("player too far")
	ErrNotNegotiationTarget = errors.New("not the negotiation target")
	ErrInconsistentResponse = errors.New("inconsistent response")
	ErrAlreadyGave          = errors.New("part already given this round")
	ErrTallyFull            = errors.New("tally full")
	ErrUnknownRequest       = errors.New("unknown request")
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrRateLimited          = errors.New("rate limited")
)
