package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"carparts-be/internal/service"
	"carparts-be/internal/service/game"
	"carparts-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func JoinGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		ServeGame(appState, ctx.ResponseWriter(), ctx.Request())
	}
}

// session 是一条连接的全部状态，只在读协程中修改
type session struct {
	roomSvc  *service.RoomService
	connID   string
	clientIP string

	respCh  chan game.ResponseWrapper
	limiter *rate.Limiter

	// 未加入房间时为空
	member *service.Membership
}

func ServeGame(appState *state.AppState, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Error("升级到WebSocket失败", zap.Error(err))
		return
	}

	defer conn.Close()

	gw := appState.Cfg.Gateway

	interval := gw.HeartbeatInterval
	if interval <= 0 {
		interval = DEFAULT_HEARTBEAT_INTERVAL
	}
	timeout := gw.HeartbeatTimeout
	if timeout <= interval {
		timeout = DEFAULT_HEARTBEAT_TIMEOUT
	}

	conn.SetReadLimit(MAX_MESSAGE_SIZE)
	conn.SetReadDeadline(time.Now().Add(timeout))
	conn.SetPongHandler(heartbeatHandler(conn, timeout))

	s := &session{
		roomSvc:  appState.RoomSvc,
		connID:   game.GenID(),
		clientIP: r.RemoteAddr,
		respCh:   make(chan game.ResponseWrapper, RESP_BUFFER_SIZE),
		limiter:  rate.NewLimiter(rate.Limit(gw.MessageRate), gw.MessageBurst),
	}

	zap.L().Info(
		"WebSocket连接建立",
		zap.String("client_ip", s.clientIP),
		zap.String("conn_id", s.connID),
	)

	// 写协程的退出信号
	writeDoneCh := make(chan struct{})
	writerExitedCh := make(chan struct{})

	go s.writeLoop(conn, interval, writeDoneCh, writerExitedCh)

	defer func() {
		// 断线等同于离开房间
		s.leave(false)

		close(writeDoneCh)
		<-writerExitedCh

		zap.L().Info(
			"WebSocket连接关闭",
			zap.String("client_ip", s.clientIP),
			zap.String("conn_id", s.connID),
		)
	}()

	// 读取协程（主协程）
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				zap.L().Debug(
					"读取消息失败",
					zap.String("client_ip", s.clientIP),
					zap.Error(err),
				)
			}

			return
		}

		s.handleMessage(msg)
	}
}

func (s *session) writeLoop(conn *websocket.Conn, interval time.Duration, doneCh <-chan struct{}, exitedCh chan<- struct{}) {
	defer close(exitedCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-doneCh:
			return

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.L().Debug(
					"发送心跳失败",
					zap.String("client_ip", s.clientIP),
					zap.Error(err),
				)
				// 关闭连接让读协程退出
				conn.Close()
				return
			}

		case resp := <-s.respCh:
			conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if err := conn.WriteJSON(resp); err != nil {
				zap.L().Debug(
					"发送消息失败",
					zap.String("client_ip", s.clientIP),
					zap.Error(err),
				)
				conn.Close()
				return
			}
		}
	}
}

func (s *session) sendErr(err error) {
	select {
	case s.respCh <- game.WrapErrResponse(err):
	default:
		zap.L().Warn(
			"发送错误响应失败：响应通道已满",
			zap.String("conn_id", s.connID),
		)
	}
}

func (s *session) handleMessage(msg []byte) {
	if !s.limiter.Allow() {
		s.sendErr(game.ErrRateLimited)
		return
	}

	var wrapper game.RequestWrapper

	if err := json.Unmarshal(msg, &wrapper); err != nil {
		zap.L().Debug(
			"解析请求失败",
			zap.String("client_ip", s.clientIP),
			zap.Error(err),
		)
		s.sendErr(game.ErrInvalidPayload)
		return
	}

	switch wrapper.ReqType {
	case game.REQ_CREATE_ROOM, game.REQ_JOIN_ROOM:
		s.bind(wrapper)

	case game.REQ_LEAVE_ROOM:
		s.leave(true)

	case game.REQ_TIMEOUT, game.REQ_SNAPSHOT, "":
		s.sendErr(game.ErrUnknownRequest)

	default:
		s.forward(wrapper)
	}
}

// bind 创建或加入房间，成功后连接与玩家绑定
func (s *session) bind(wrapper game.RequestWrapper) {
	if s.member != nil {
		select {
		case <-s.member.Machine.Done():
			// 房间已被注册表关闭
			s.member = nil
		default:
		}
	}

	if s.member != nil {
		s.sendErr(game.ErrAlreadyInRoom)
		return
	}

	req, err := game.UnwrapRequest[game.CreateRoomRequest](wrapper)
	if err != nil {
		s.sendErr(err)
		return
	}

	joinReq := game.JoinRoomRequest{
		RoomCode:   req.RoomCode,
		PlayerName: req.PlayerName,
		PlayerID:   game.GenID(),
		ConnID:     s.connID,
		RespCh:     s.respCh,
	}

	var member service.Membership

	if wrapper.ReqType == game.REQ_CREATE_ROOM {
		member, err = s.roomSvc.CreateRoom(joinReq)
	} else {
		member, err = s.roomSvc.JoinRoom(context.Background(), joinReq)
	}

	if err != nil {
		zap.L().Debug(
			"加入房间失败",
			zap.String("client_ip", s.clientIP),
			zap.String("request_type", wrapper.ReqType),
			zap.Error(err),
		)
		s.sendErr(err)
		return
	}

	s.member = &member

	zap.L().Info(
		"玩家成功加入房间",
		zap.String("client_ip", s.clientIP),
		zap.String("room_code", member.RoomCode),
		zap.String("player_id", member.PlayerID),
	)
}

// forward 把游戏请求转发给所在房间，错误由房间单播回来
func (s *session) forward(wrapper game.RequestWrapper) {
	if s.member == nil {
		s.sendErr(game.ErrNotInRoom)
		return
	}

	if code := game.PeekRoomCode(wrapper); code != "" && code != s.member.RoomCode {
		s.sendErr(game.ErrRoomMismatch)
		return
	}

	wrapper.PlayerID = s.member.PlayerID

	if err := s.member.Machine.Submit(wrapper); err != nil {
		if errors.Is(err, game.ErrRoomNotFound) {
			s.member = nil
		}
		s.sendErr(err)
	}
}

func (s *session) leave(explicit bool) {
	if s.member == nil {
		if explicit {
			s.sendErr(game.ErrNotInRoom)
		}
		return
	}

	member := *s.member
	s.member = nil

	err := s.roomSvc.Leave(context.Background(), member)
	if err != nil && !errors.Is(err, game.ErrRoomNotFound) && !errors.Is(err, game.ErrNotInRoom) {
		zap.L().Warn(
			"离开房间失败",
			zap.String("room_code", member.RoomCode),
			zap.String("player_id", member.PlayerID),
			zap.Error(err),
		)
	}

	if err != nil && explicit {
		s.sendErr(err)
	}
}
