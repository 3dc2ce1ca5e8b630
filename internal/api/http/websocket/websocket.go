package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// NOTE: 暂时允许所有来源
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	// 未配置时使用的心跳间隔
	DEFAULT_HEARTBEAT_INTERVAL = 30 * time.Second
	// 未配置时使用的心跳超时时间
	DEFAULT_HEARTBEAT_TIMEOUT = 45 * time.Second
	// 单次写入的最长时间
	WRITE_TIMEOUT = 10 * time.Second
	// 单条客户端消息的最大字节数
	MAX_MESSAGE_SIZE = 16 * 1024
	// 每个连接缓存的待发送响应数量
	RESP_BUFFER_SIZE = 64
)

var heartbeatHandler = func(conn *websocket.Conn, timeout time.Duration) func(string) error {
	return func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeout))
	}
}
