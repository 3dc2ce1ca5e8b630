package game

import (
	"crypto/rand"
	"encoding/json"
	"math/big"

	"github.com/google/uuid"
)

func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	return id.String()
}

const roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenRoomCode 生成便于手动输入的房间号
func GenRoomCode(length int) string {
	code := make([]byte, length)
	limit := big.NewInt(int64(len(roomCodeCharset)))

	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			panic("Failed to generate room code: " + err.Error())
		}
		code[i] = roomCodeCharset[n.Int64()]
	}

	return string(code)
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("Failed to marshal: " + err.Error())
	}

	return data
}
