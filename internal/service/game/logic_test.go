package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiation_OnlyLeaderMayRequest(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara")
	nsh := NewNegotiationStageHandler()

	others := nonLeaders(room)
	req := wrap(REQ_REQUEST_NEGOTIATION, others[0].ID, RequestNegotiationRequest{
		RoomCode:       testRoomCode,
		TargetPlayerID: others[1].ID,
	})

	err := nsh.OnHandle(room, req)
	assert.ErrorIs(t, err, ErrNotLeaderNegotiate)
	assert.Empty(t, room.PendingTarget)
	assert.Empty(t, drain(others[1].RespCh))
}

func TestNegotiation_RequestReachesOnlyTarget(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara", "Dan")
	nsh := NewNegotiationStageHandler()

	leader := room.Leader()
	others := nonLeaders(room)

	err := nsh.OnHandle(room, wrap(REQ_REQUEST_NEGOTIATION, leader.ID, RequestNegotiationRequest{
		RoomCode:       testRoomCode,
		TargetPlayerID: others[0].ID,
	}))
	require.NoError(t, err)

	resps := drain(others[0].RespCh)
	require.Len(t, resps, 1)
	assert.Equal(t, RESP_NEGOTIATION_REQUEST, resps[0].RespType)
	assert.Equal(t, leader.ID, resps[0].Data.(NegotiationRequestResponse).FromPlayerID)

	assert.Empty(t, drain(others[1].RespCh))
	assert.Empty(t, drain(leader.RespCh))
	assert.Empty(t, room.CollectedParts)
}

func TestNegotiation_InvalidTargets(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara", "Dan")
	nsh := NewNegotiationStageHandler()

	leader := room.Leader()
	others := nonLeaders(room)
	others[0].IsAlive = false

	for name, target := range map[string]string{
		"missing":    "nobody",
		"self":       leader.ID,
		"eliminated": others[0].ID,
	} {
		t.Run(name, func(t *testing.T) {
			err := nsh.OnHandle(room, wrap(REQ_REQUEST_NEGOTIATION, leader.ID, RequestNegotiationRequest{
				RoomCode:       testRoomCode,
				TargetPlayerID: target,
			}))
			assert.ErrorIs(t, err, ErrInvalidTarget)
		})
	}
}

func TestNegotiation_ProximityGate(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara")
	nsh := NewNegotiationStageHandler()

	leader := room.Leader()
	target := nonLeaders(room)[0]
	far := false

	err := nsh.OnHandle(room, wrap(REQ_REQUEST_NEGOTIATION, leader.ID, RequestNegotiationRequest{
		RoomCode:       testRoomCode,
		TargetPlayerID: target.ID,
		InRange:        &far,
	}))
	assert.ErrorIs(t, err, ErrTooFar)

	room.Settings.NegotiationRange = 3
	leader.Position = Position{X: 0, Z: 0}
	target.Position = Position{X: 10, Z: 0}

	err = nsh.OnHandle(room, wrap(REQ_REQUEST_NEGOTIATION, leader.ID, RequestNegotiationRequest{
		RoomCode:       testRoomCode,
		TargetPlayerID: target.ID,
	}))
	assert.ErrorIs(t, err, ErrTooFar)

	// 高度差不计入距离
	target.Position = Position{X: 2, Y: 50, Z: 2}

	err = nsh.OnHandle(room, wrap(REQ_REQUEST_NEGOTIATION, leader.ID, RequestNegotiationRequest{
		RoomCode:       testRoomCode,
		TargetPlayerID: target.ID,
	}))
	assert.NoError(t, err)
	assert.Equal(t, target.ID, room.PendingTarget)
}

func TestNegotiation_OnlyMostRecentTargetMayRespond(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara", "Dan")
	nsh := NewNegotiationStageHandler()

	leader := room.Leader()
	others := nonLeaders(room)

	for _, target := range others[:2] {
		require.NoError(t, nsh.OnHandle(room, wrap(REQ_REQUEST_NEGOTIATION, leader.ID, RequestNegotiationRequest{
			RoomCode:       testRoomCode,
			TargetPlayerID: target.ID,
		})))
	}

	// 第一个目标已经被第二次请求顶替
	err := nsh.OnHandle(room, wrap(REQ_RESPOND_NEGOTIATION, others[0].ID, RespondNegotiationRequest{
		RoomCode:     testRoomCode,
		FromPlayerID: leader.ID,
		Give:         true,
		IsGenuine:    true,
	}))
	assert.ErrorIs(t, err, ErrNotNegotiationTarget)
	assert.Empty(t, room.CollectedParts)

	err = nsh.OnHandle(room, wrap(REQ_RESPOND_NEGOTIATION, others[1].ID, RespondNegotiationRequest{
		RoomCode:     testRoomCode,
		FromPlayerID: leader.ID,
		Give:         true,
		IsGenuine:    true,
	}))
	require.NoError(t, err)
	require.Len(t, room.CollectedParts, 1)
	assert.Equal(t, others[1].ID, room.CollectedParts[0].PlayerID)
	assert.Equal(t, others[1].Part, room.CollectedParts[0].Part)
	assert.Empty(t, room.PendingTarget)
}

func TestNegotiation_CollectionWithholdsGenuineness(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara")
	nsh := NewNegotiationStageHandler()

	leader := room.Leader()
	target := nonLeaders(room)[0]
	bystander := nonLeaders(room)[1]

	require.NoError(t, nsh.OnHandle(room, wrap(REQ_REQUEST_NEGOTIATION, leader.ID, RequestNegotiationRequest{
		RoomCode:       testRoomCode,
		TargetPlayerID: target.ID,
	})))
	require.NoError(t, nsh.OnHandle(room, wrap(REQ_RESPOND_NEGOTIATION, target.ID, RespondNegotiationRequest{
		RoomCode:     testRoomCode,
		FromPlayerID: leader.ID,
		Give:         true,
		IsGenuine:    false,
	})))

	resps := ofType(drain(bystander.RespCh), RESP_PART_COLLECTED)
	require.Len(t, resps, 1)

	raw, err := json.Marshal(resps[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "genuine")
	assert.Contains(t, string(raw), target.ID)

	stateRaw, err := json.Marshal(room.PublicState())
	require.NoError(t, err)
	assert.NotContains(t, string(stateRaw), "genuine")

	// 记录的真假保持客户端声明的值
	assert.False(t, room.CollectedParts[0].IsGenuine)
}

func TestNegotiation_DeclineNotifiesLeaderOnly(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara")
	nsh := NewNegotiationStageHandler()

	leader := room.Leader()
	target := nonLeaders(room)[0]
	bystander := nonLeaders(room)[1]

	require.NoError(t, nsh.OnHandle(room, wrap(REQ_REQUEST_NEGOTIATION, leader.ID, RequestNegotiationRequest{
		RoomCode:       testRoomCode,
		TargetPlayerID: target.ID,
	})))
	drain(target.RespCh)

	require.NoError(t, nsh.OnHandle(room, wrap(REQ_RESPOND_NEGOTIATION, target.ID, RespondNegotiationRequest{
		RoomCode:     testRoomCode,
		FromPlayerID: leader.ID,
		Give:         false,
	})))

	leaderResps := drain(leader.RespCh)
	require.Len(t, leaderResps, 1)
	assert.Equal(t, RESP_NEGOTIATION_REJECTED, leaderResps[0].RespType)

	assert.Empty(t, drain(bystander.RespCh))
	assert.Empty(t, drain(target.RespCh))
	assert.Empty(t, room.CollectedParts)
	assert.Empty(t, room.PendingTarget)
}

func TestNegotiation_InconsistentDeclineRejected(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara")
	nsh := NewNegotiationStageHandler()

	leader := room.Leader()
	target := nonLeaders(room)[0]

	require.NoError(t, nsh.OnHandle(room, wrap(REQ_REQUEST_NEGOTIATION, leader.ID, RequestNegotiationRequest{
		RoomCode:       testRoomCode,
		TargetPlayerID: target.ID,
	})))

	err := nsh.OnHandle(room, wrap(REQ_RESPOND_NEGOTIATION, target.ID, RespondNegotiationRequest{
		RoomCode:     testRoomCode,
		FromPlayerID: leader.ID,
		Give:         false,
		IsGenuine:    true,
	}))
	assert.ErrorIs(t, err, ErrInconsistentResponse)
	assert.Equal(t, target.ID, room.PendingTarget, "rejected response must not clear the pending request")
}

func TestNegotiation_WrongLeaderInResponse(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara")
	nsh := NewNegotiationStageHandler()

	leader := room.Leader()
	target := nonLeaders(room)[0]

	require.NoError(t, nsh.OnHandle(room, wrap(REQ_REQUEST_NEGOTIATION, leader.ID, RequestNegotiationRequest{
		RoomCode:       testRoomCode,
		TargetPlayerID: target.ID,
	})))

	err := nsh.OnHandle(room, wrap(REQ_RESPOND_NEGOTIATION, target.ID, RespondNegotiationRequest{
		RoomCode:     testRoomCode,
		FromPlayerID: nonLeaders(room)[1].ID,
		Give:         true,
		IsGenuine:    true,
	}))
	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.Empty(t, room.CollectedParts)
}

func TestNegotiation_NoSecondHandOver(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara")
	nsh := NewNegotiationStageHandler()

	leader := room.Leader()
	target := nonLeaders(room)[0]

	give := func() error {
		if err := nsh.OnHandle(room, wrap(REQ_REQUEST_NEGOTIATION, leader.ID, RequestNegotiationRequest{
			RoomCode:       testRoomCode,
			TargetPlayerID: target.ID,
		})); err != nil {
			return err
		}

		return nsh.OnHandle(room, wrap(REQ_RESPOND_NEGOTIATION, target.ID, RespondNegotiationRequest{
			RoomCode:     testRoomCode,
			FromPlayerID: leader.ID,
			Give:         true,
			IsGenuine:    true,
		}))
	}

	require.NoError(t, give())
	assert.ErrorIs(t, give(), ErrAlreadyGave)
	assert.Len(t, room.CollectedParts, 1)
}

func TestAssembly_NonLeaderRejected(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara")
	nsh := NewNegotiationStageHandler()

	var switched string
	nsh.SetOnSwitch(func(next string) { switched = next })

	err := nsh.OnHandle(room, wrap(REQ_ASSEMBLE_CAR, nonLeaders(room)[0].ID, AssembleCarRequest{RoomCode: testRoomCode}))
	assert.ErrorIs(t, err, ErrNotLeaderAssemble)
	assert.Empty(t, switched)
	assert.Equal(t, PHASE_NEGOTIATION, room.Phase)
}

func TestAssembly_RevealsGenuineness(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara")
	leader := room.Leader()
	others := nonLeaders(room)

	room.CollectedParts = []CollectedPart{
		{PlayerID: others[0].ID, Part: others[0].Part, IsGenuine: true},
		{PlayerID: others[1].ID, Part: others[1].Part, IsGenuine: false},
	}

	ok, err := assembleCar(room, leader.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	resps := ofType(drain(others[0].RespCh), RESP_ASSEMBLY_RESULT)
	require.Len(t, resps, 1)

	result := resps[0].Data.(AssemblyResultResponse)
	assert.False(t, result.Success)
	assert.Equal(t, room.CollectedParts, result.RevealedParts)
}

func TestAssembly_EmptyTallySucceeds(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara")

	ok, err := assembleCar(room, room.Leader().ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestElimination_Validation(t *testing.T) {
	room := newTestRoom(t, "Alice", "Bob", "Cara", "Dan")
	room.Phase = PHASE_ELIMINATION

	leader := room.Leader()
	others := nonLeaders(room)

	_, err := eliminatePlayer(room, others[0].ID, others[1].ID)
	assert.ErrorIs(t, err, ErrNotLeaderEliminate)

	_, err = eliminatePlayer(room, leader.ID, leader.ID)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = eliminatePlayer(room, leader.ID, "ghost")
	assert.ErrorIs(t, err, ErrInvalidTarget)

	finished, err := eliminatePlayer(room, leader.ID, others[0].ID)
	require.NoError(t, err)
	assert.False(t, finished)
	assert.False(t, others[0].IsAlive)

	resps := ofType(drain(others[0].RespCh), RESP_ELIMINATED)
	require.Len(t, resps, 1)
	assert.Equal(t, leader.ID, resps[0].Data.(EliminatedResponse).ByPlayerID)

	_, err = eliminatePlayer(room, leader.ID, others[0].ID)
	assert.ErrorIs(t, err, ErrInvalidTarget, "already eliminated players cannot be targeted")
}

func TestWaitStage_StartRequiresHostAndPlayers(t *testing.T) {
	room := NewRoom(testRoomCode, instantSettings())
	wsh := NewWaitStageHandler()

	var switched string
	wsh.SetOnSwitch(func(next string) { switched = next })

	join := func(name string) {
		require.NoError(t, wsh.OnHandle(room, RequestWrapper{
			ReqType: REQ_JOIN_ROOM,
			NativeData: &JoinRoomRequest{
				RoomCode:   testRoomCode,
				PlayerName: name,
				PlayerID:   "id-" + name,
				RespCh:     make(chan ResponseWrapper, 64),
			},
		}))
	}

	join("Alice")
	join("Bob")

	err := wsh.OnHandle(room, wrap(REQ_START_GAME, "id-Alice", StartGameRequest{RoomCode: testRoomCode}))
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	join("Cara")

	err = wsh.OnHandle(room, wrap(REQ_START_GAME, "id-Bob", StartGameRequest{RoomCode: testRoomCode}))
	assert.ErrorIs(t, err, ErrNotHost)
	assert.Empty(t, switched)

	err = wsh.OnHandle(room, wrap(REQ_ASSEMBLE_CAR, "id-Alice", AssembleCarRequest{RoomCode: testRoomCode}))
	assert.ErrorIs(t, err, ErrWrongPhase)

	require.NoError(t, wsh.OnHandle(room, wrap(REQ_START_GAME, "id-Alice", StartGameRequest{RoomCode: testRoomCode})))
	assert.Equal(t, PHASE_DISTRIBUTION, switched)
}

func TestWaitStage_JoinValidation(t *testing.T) {
	room := NewRoom(testRoomCode, instantSettings())
	wsh := NewWaitStageHandler()

	join := func(name string) error {
		return wsh.OnHandle(room, RequestWrapper{
			ReqType: REQ_JOIN_ROOM,
			NativeData: &JoinRoomRequest{
				RoomCode:   testRoomCode,
				PlayerName: name,
				RespCh:     make(chan ResponseWrapper, 64),
			},
		})
	}

	assert.ErrorIs(t, join("   "), ErrEmptyName)

	require.NoError(t, join("Alice"))
	assert.ErrorIs(t, join("alice"), ErrNameTaken)

	for i := 1; i < HARD_MAX_PLAYERS; i++ {
		require.NoError(t, join(string(rune('A'+i))+"-player"))
	}

	assert.ErrorIs(t, join("Late"), ErrRoomFull)
	assert.Len(t, room.Players, HARD_MAX_PLAYERS)

	hosts := 0
	for _, p := range room.Players {
		if p.IsHost {
			hosts++
		}
	}
	assert.Equal(t, 1, hosts)
	assert.True(t, room.OrderedPlayers()[0].IsHost)
}
