package game

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countParts(parts []string) map[string]int {
	counts := make(map[string]int)
	for _, p := range parts {
		counts[p]++
	}

	return counts
}

func TestPartsFor_Composition(t *testing.T) {
	for n := 3; n <= HARD_MAX_PLAYERS; n++ {
		t.Run(fmt.Sprintf("%d players", n), func(t *testing.T) {
			parts, err := PartsFor(n)
			require.NoError(t, err)
			require.Len(t, parts, n)

			counts := countParts(parts)
			assert.Equal(t, 1, counts[PART_CHASSIS])
			assert.Equal(t, 1, counts[PART_ENGINE])
			assert.Equal(t, 1, counts[PART_GEARBOX])
			assert.Equal(t, n-3, counts[PART_WHEEL])
		})
	}
}

func TestPartsFor_RejectsSmallCounts(t *testing.T) {
	for _, n := range []int{-1, 0, 1, 2} {
		_, err := PartsFor(n)
		assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	}
}

func TestDistribute_PreservesMultiset(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 200; i++ {
		n := 3 + i%6
		parts, err := Distribute(n, rng)
		require.NoError(t, err)

		want, _ := PartsFor(n)
		slices.Sort(want)
		got := slices.Clone(parts)
		slices.Sort(got)

		assert.Equal(t, want, got)
	}
}

func TestDistribute_DeterministicWithSeed(t *testing.T) {
	a, err := Distribute(6, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)

	b, err := Distribute(6, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDistribute_ChassisPositionVaries(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	seen := make(map[int]bool)

	for i := 0; i < 300; i++ {
		parts, err := Distribute(4, rng)
		require.NoError(t, err)
		seen[slices.Index(parts, PART_CHASSIS)] = true
	}

	assert.Len(t, seen, 4, "chassis should land on every seat eventually")
}

func TestDealRound_OneLeaderAndPrivateAssignments(t *testing.T) {
	room := NewRoom(testRoomCode, instantSettings())
	for _, name := range []string{"Alice", "Bob", "Cara", "Dan", "Eve"} {
		room.AddPlayer(&Player{
			ID:      "id-" + name,
			Name:    name,
			IsAlive: true,
			RespCh:  make(chan ResponseWrapper, 16),
		})
	}
	room.Players["id-Eve"].IsAlive = false
	room.CollectedParts = []CollectedPart{{PlayerID: "id-Bob", Part: PART_ENGINE}}

	require.NoError(t, dealRound(room))

	assert.Empty(t, room.CollectedParts)
	assert.Empty(t, room.Players["id-Eve"].Part)
	assert.Empty(t, drain(room.Players["id-Eve"].RespCh))

	leaders := 0
	for _, p := range room.AlivePlayers() {
		if p.IsLeader() {
			leaders++
		}

		resps := ofType(drain(p.RespCh), RESP_PART_ASSIGNED)
		require.Len(t, resps, 1)

		assigned := resps[0].Data.(PartAssignedResponse)
		assert.Equal(t, p.Part, assigned.Part)
		assert.Equal(t, p.Part == PART_CHASSIS, assigned.IsLeader)
	}

	assert.Equal(t, 1, leaders)
}

func TestDealRound_RequiresThreeAlive(t *testing.T) {
	room := NewRoom(testRoomCode, instantSettings())
	room.AddPlayer(&Player{ID: "a", Name: "A", IsAlive: true})
	room.AddPlayer(&Player{ID: "b", Name: "B", IsAlive: true})

	assert.ErrorIs(t, dealRound(room), ErrNotEnoughPlayers)
}
