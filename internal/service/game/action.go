package game

import "encoding/json"

// ===== 客户端请求 =====

type CreateRoomRequest struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

// 加入请求由网关构造后通过 NativeData 传入，因为它携带了连接的响应通道
type JoinRoomRequest struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`

	PlayerID string               `json:"-"`
	ConnID   string               `json:"-"`
	RespCh   chan ResponseWrapper `json:"-"`
}

type StartGameRequest struct {
	RoomCode string `json:"room_code"`
}

type RequestNegotiationRequest struct {
	RoomCode       string `json:"room_code"`
	TargetPlayerID string `json:"target_player_id"`
	// 由渲染层给出的距离判断，缺省视为满足
	InRange *bool `json:"in_range,omitempty"`
}

type RespondNegotiationRequest struct {
	RoomCode     string `json:"room_code"`
	FromPlayerID string `json:"from_player_id"`
	Give         bool   `json:"give"`
	IsGenuine    bool   `json:"is_genuine"`
}

type AssembleCarRequest struct {
	RoomCode string `json:"room_code"`
}

type EliminatePlayerRequest struct {
	RoomCode       string `json:"room_code"`
	TargetPlayerID string `json:"target_player_id"`
}

type PlayerMoveRequest struct {
	RoomCode string   `json:"room_code"`
	Position Position `json:"position"`
	Rotation Rotation `json:"rotation"`
}

type VoiceSignalRequest struct {
	RoomCode       string          `json:"room_code"`
	TargetPlayerID string          `json:"target_player_id"`
	Signal         json.RawMessage `json:"signal"`
}

type LeaveRoomRequest struct {
	RoomCode string `json:"room_code"`
}

type TimeoutRequest struct {
	Stage string
	Seq   uint64
}

type snapshotRequest struct {
	resultCh chan RoomSnapshot
}

// ===== 服务端响应 =====

type JoinedResponse struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
}

type PublicPlayer struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	IsHost   bool     `json:"is_host"`
	IsAlive  bool     `json:"is_alive"`
	Position Position `json:"position"`
	Rotation Rotation `json:"rotation"`
}

type PublicCollectedPart struct {
	PlayerID string `json:"player_id"`
	Part     string `json:"part"`
}

type RoomStateResponse struct {
	RoomCode       string                `json:"room_code"`
	Phase          string                `json:"phase"`
	RoundNumber    int                   `json:"round_number"`
	MaxPlayers     int                   `json:"max_players"`
	HostID         string                `json:"host_id"`
	LeaderID       string                `json:"leader_id,omitempty"`
	Players        []PublicPlayer        `json:"players"`
	CollectedParts []PublicCollectedPart `json:"collected_parts"`
	Winners        []string              `json:"winners,omitempty"`
}

type PartAssignedResponse struct {
	Part        string `json:"part"`
	IsLeader    bool   `json:"is_leader"`
	RoundNumber int    `json:"round_number"`
}

type NegotiationRequestResponse struct {
	FromPlayerID   string `json:"from_player_id"`
	FromPlayerName string `json:"from_player_name"`
}

type NegotiationRejectedResponse struct {
	ByPlayerID   string `json:"by_player_id"`
	ByPlayerName string `json:"by_player_name"`
}

type PartCollectedResponse struct {
	PlayerID       string `json:"player_id"`
	PlayerName     string `json:"player_name"`
	Part           string `json:"part"`
	CollectedCount int    `json:"collected_count"`
}

type AssemblyResultResponse struct {
	Success       bool            `json:"success"`
	RevealedParts []CollectedPart `json:"revealed_parts"`
}

type ChooseEliminationResponse struct {
	AlivePlayers []PublicPlayer `json:"alive_players"`
}

type EliminatedResponse struct {
	ByPlayerID string `json:"by_player_id"`
}

type RoundResetResponse struct {
	RoundNumber int `json:"round_number"`
}

type Winner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type GameOverResponse struct {
	Winners []Winner `json:"winners"`
}

type PlayerLeftResponse struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	NewHostID  string `json:"new_host_id,omitempty"`
}

type PlayerMovedResponse struct {
	PlayerID string   `json:"player_id"`
	Position Position `json:"position"`
	Rotation Rotation `json:"rotation"`
}

type VoiceSignalResponse struct {
	FromPlayerID string          `json:"from_player_id"`
	Signal       json.RawMessage `json:"signal"`
}

type LeftRoomResponse struct {
	RoomCode string `json:"room_code"`
	Reason   string `json:"reason,omitempty"`
}
