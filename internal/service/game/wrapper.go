package game

import (
	"encoding/json"

	"go.uber.org/zap"
)

// 请求类型
const (
	REQ_CREATE_ROOM         = "CreateRoom"
	REQ_JOIN_ROOM           = "JoinRoom"
	REQ_START_GAME          = "StartGame"
	REQ_REQUEST_NEGOTIATION = "RequestNegotiation"
	REQ_RESPOND_NEGOTIATION = "RespondNegotiation"
	REQ_ASSEMBLE_CAR        = "AssembleCar"
	REQ_ELIMINATE_PLAYER    = "EliminatePlayer"
	REQ_PLAYER_MOVE         = "PlayerMove"
	REQ_VOICE_SIGNAL        = "VoiceSignal"
	REQ_LEAVE_ROOM          = "LeaveRoom"

	// 以下请求只在服务端内部产生
	REQ_TIMEOUT  = "Timeout"
	REQ_SNAPSHOT = "Snapshot"
)

type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`

	// 由网关根据连接绑定关系填写，客户端无法伪造
	PlayerID string `json:"-"`
	// 服务端内部请求直接携带结构体（例如包含通道的加入请求）
	NativeData any `json:"-"`

	replyCh chan error
}

// UnwrapRequest 解析请求负载，优先使用服务端内部传入的结构体
func UnwrapRequest[T any](wrapper RequestWrapper) (*T, error) {
	if native, ok := wrapper.NativeData.(*T); ok && native != nil {
		return native, nil
	}

	var req T

	if len(wrapper.Data) == 0 {
		return &req, nil
	}

	if err := json.Unmarshal(wrapper.Data, &req); err != nil {
		zap.L().Debug(
			"解析请求负载失败",
			zap.String("request_type", wrapper.ReqType),
			zap.Error(err),
		)
		return nil, ErrInvalidPayload
	}

	return &req, nil
}

// PeekRoomCode 读取请求负载中的房间号，不关心具体请求类型
func PeekRoomCode(wrapper RequestWrapper) string {
	var scoped struct {
		RoomCode string `json:"room_code"`
	}

	if len(wrapper.Data) == 0 {
		return ""
	}

	_ = json.Unmarshal(wrapper.Data, &scoped)

	return NormalizeRoomCode(scoped.RoomCode)
}

// 响应类型
const (
	RESP_ERROR                = "Error"
	RESP_JOINED               = "Joined"
	RESP_ROOM_STATE           = "RoomState"
	RESP_PART_ASSIGNED        = "PartAssigned"
	RESP_NEGOTIATION_REQUEST  = "NegotiationRequest"
	RESP_NEGOTIATION_REJECTED = "NegotiationRejected"
	RESP_PART_COLLECTED       = "PartCollected"
	RESP_ASSEMBLY_RESULT      = "AssemblyResult"
	RESP_CHOOSE_ELIMINATION   = "ChooseElimination"
	RESP_ELIMINATED           = "Eliminated"
	RESP_NEXT_ROUND           = "NextRound"
	RESP_ROUND_RESET          = "RoundReset"
	RESP_GAME_OVER            = "GameOver"
	RESP_PLAYER_LEFT          = "PlayerLeft"
	RESP_PLAYER_MOVED         = "PlayerMoved"
	RESP_VOICE_SIGNAL         = "VoiceSignal"
	RESP_LEFT_ROOM            = "LeftRoom"
)

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data"`
	ErrMsg   string `json:"error_message,omitempty"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapErrResponse(err error) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   err.Error(),
	}
}
