package game

import "go.uber.org/zap"

func requestNegotiation(room *Room, requesterID string, req *RequestNegotiationRequest) error {
	requester, ok := room.Players[requesterID]
	if !ok || !requester.IsLeader() {
		return ErrNotLeaderNegotiate
	}

	target, ok := room.Players[req.TargetPlayerID]
	if !ok || !target.IsAlive || target.ID == requester.ID {
		return ErrInvalidTarget
	}

	if req.InRange != nil && !*req.InRange {
		return ErrTooFar
	}

	if limit := room.Settings.NegotiationRange; limit > 0 {
		if planarDistance(requester.Position, target.Position) > limit {
			return ErrTooFar
		}
	}

	if room.hasCollectedFrom(target.ID) {
		return ErrAlreadyGave
	}

	room.PendingTarget = target.ID

	room.UnicastResp(target.ID, WrapResponse(
		RESP_NEGOTIATION_REQUEST,
		NegotiationRequestResponse{
			FromPlayerID:   requester.ID,
			FromPlayerName: requester.Name,
		},
	))

	zap.L().Debug(
		"队长发起协商",
		zap.String("room_code", room.Code),
		zap.String("leader_id", requester.ID),
		zap.String("target_id", target.ID),
	)

	return nil
}

func respondToNegotiation(room *Room, responderID string, req *RespondNegotiationRequest) error {
	responder, ok := room.Players[responderID]
	if !ok || !responder.IsAlive {
		return ErrNotNegotiationTarget
	}

	if room.PendingTarget == "" || room.PendingTarget != responderID {
		return ErrNotNegotiationTarget
	}

	leader := room.Leader()
	if leader == nil || req.FromPlayerID != leader.ID {
		return ErrInvalidTarget
	}

	if !req.Give && req.IsGenuine {
		return ErrInconsistentResponse
	}

	if !req.Give {
		room.PendingTarget = ""

		room.UnicastResp(leader.ID, WrapResponse(
			RESP_NEGOTIATION_REJECTED,
			NegotiationRejectedResponse{
				ByPlayerID:   responder.ID,
				ByPlayerName: responder.Name,
			},
		))

		return nil
	}

	if room.hasCollectedFrom(responder.ID) {
		return ErrAlreadyGave
	}

	if len(room.CollectedParts) >= room.AliveCount()-1 {
		return ErrTallyFull
	}

	room.PendingTarget = ""
	room.CollectedParts = append(room.CollectedParts, CollectedPart{
		PlayerID:  responder.ID,
		Part:      responder.Part,
		IsGenuine: req.IsGenuine,
	})

	// 收集时不公开真假
	room.BroadcastResp(WrapResponse(
		RESP_PART_COLLECTED,
		PartCollectedResponse{
			PlayerID:       responder.ID,
			PlayerName:     responder.Name,
			Part:           responder.Part,
			CollectedCount: len(room.CollectedParts),
		},
	))

	zap.L().Debug(
		"队长收集到零件",
		zap.String("room_code", room.Code),
		zap.String("from_id", responder.ID),
		zap.Int("collected", len(room.CollectedParts)),
	)

	return nil
}
