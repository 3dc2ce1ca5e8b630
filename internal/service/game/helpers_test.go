package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testRoomCode = "ABCDEF"

func instantSettings() Settings {
	settings := DefaultSettings()
	settings.DistributionDelay = 0
	settings.RevealDelay = 0
	settings.Seed = 42

	return settings
}

func drain(ch chan ResponseWrapper) []ResponseWrapper {
	var out []ResponseWrapper
	for {
		select {
		case resp := <-ch:
			out = append(out, resp)
		default:
			return out
		}
	}
}

func ofType(resps []ResponseWrapper, respType string) []ResponseWrapper {
	var out []ResponseWrapper
	for _, resp := range resps {
		if resp.RespType == respType {
			out = append(out, resp)
		}
	}

	return out
}

// ===== 直接操作 Room 的测试 =====

// newTestRoom 构造一个已开局、处于协商阶段的房间
func newTestRoom(t *testing.T, names ...string) *Room {
	t.Helper()

	room := NewRoom(testRoomCode, instantSettings())
	for _, name := range names {
		player := &Player{
			ID:      "id-" + name,
			Name:    name,
			IsAlive: true,
			RespCh:  make(chan ResponseWrapper, 256),
		}
		if len(room.Players) == 0 {
			player.IsHost = true
		}
		room.AddPlayer(player)
	}

	room.RoundNumber = 1
	require.NoError(t, dealRound(room))
	room.Phase = PHASE_NEGOTIATION

	for _, p := range room.Players {
		drain(p.RespCh)
	}

	return room
}

func nonLeaders(room *Room) []*Player {
	var out []*Player
	for _, p := range room.AlivePlayers() {
		if !p.IsLeader() {
			out = append(out, p)
		}
	}

	return out
}

func wrap(reqType string, playerID string, payload any) RequestWrapper {
	return RequestWrapper{
		ReqType:  reqType,
		Data:     mustMarshal(payload),
		PlayerID: playerID,
	}
}

// ===== 通过状态机的测试 =====

type testClient struct {
	id   string
	name string
	ch   chan ResponseWrapper
}

func (c *testClient) drain() []ResponseWrapper {
	return drain(c.ch)
}

func startMachine(t *testing.T, settings Settings) *GameMachine {
	t.Helper()

	gm := NewGameMachine(testRoomCode, settings, nil)
	go gm.Start()
	t.Cleanup(gm.Stop)

	return gm
}

func joinMachine(t *testing.T, gm *GameMachine, name string) *testClient {
	t.Helper()

	client := &testClient{
		id:   GenID(),
		name: name,
		ch:   make(chan ResponseWrapper, 256),
	}

	err := gm.Exec(testCtx(t), RequestWrapper{
		ReqType: REQ_JOIN_ROOM,
		NativeData: &JoinRoomRequest{
			RoomCode:   testRoomCode,
			PlayerName: name,
			PlayerID:   client.id,
			RespCh:     client.ch,
		},
	})
	require.NoError(t, err)

	return client
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func execAs(t *testing.T, gm *GameMachine, c *testClient, reqType string, payload any) error {
	t.Helper()

	return gm.Exec(testCtx(t), wrap(reqType, c.id, payload))
}

func snapshot(t *testing.T, gm *GameMachine) RoomSnapshot {
	t.Helper()

	snap, err := gm.Snapshot(testCtx(t))
	require.NoError(t, err)

	return snap
}

func clientByID(clients []*testClient, id string) *testClient {
	for _, c := range clients {
		if c.id == id {
			return c
		}
	}

	return nil
}

// startedGame 创建房间、加入玩家并开始游戏
func startedGame(t *testing.T, settings Settings, names ...string) (*GameMachine, []*testClient) {
	t.Helper()

	gm := startMachine(t, settings)

	clients := make([]*testClient, 0, len(names))
	for _, name := range names {
		clients = append(clients, joinMachine(t, gm, name))
	}

	require.NoError(t, execAs(t, gm, clients[0], REQ_START_GAME, StartGameRequest{RoomCode: testRoomCode}))

	return gm, clients
}

func leaderClient(t *testing.T, gm *GameMachine, clients []*testClient) *testClient {
	t.Helper()

	snap := snapshot(t, gm)
	require.NotEmpty(t, snap.LeaderID)

	leader := clientByID(clients, snap.LeaderID)
	require.NotNil(t, leader)

	return leader
}

func othersAlive(t *testing.T, gm *GameMachine, clients []*testClient, exceptID string) []*testClient {
	t.Helper()

	snap := snapshot(t, gm)

	var out []*testClient
	for _, id := range snap.AliveIDs() {
		if id != exceptID {
			out = append(out, clientByID(clients, id))
		}
	}

	return out
}

// collect 队长向目标索要零件，目标按给定真假交出
func collect(t *testing.T, gm *GameMachine, leader, target *testClient, genuine bool) {
	t.Helper()

	require.NoError(t, execAs(t, gm, leader, REQ_REQUEST_NEGOTIATION, RequestNegotiationRequest{
		RoomCode:       testRoomCode,
		TargetPlayerID: target.id,
	}))
	require.NoError(t, execAs(t, gm, target, REQ_RESPOND_NEGOTIATION, RespondNegotiationRequest{
		RoomCode:     testRoomCode,
		FromPlayerID: leader.id,
		Give:         true,
		IsGenuine:    genuine,
	}))
}
