package dto

// 房间的公开摘要，供大厅页面在加入前查询
type RoomSummary struct {
	RoomCode    string `json:"room_code"`
	Phase       string `json:"phase"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	Joinable    bool   `json:"joinable"`
}

type RoomCodeResponse struct {
	RoomCode string `json:"room_code"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}
