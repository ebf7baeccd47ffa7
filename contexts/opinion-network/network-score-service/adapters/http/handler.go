package httpadapter

import (
	"context"
	"log/slog"
	"strings"

	"ballotnet/contexts/opinion-network/network-score-service/application/commands"
	"ballotnet/contexts/opinion-network/network-score-service/application/queries"
	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/network-score-service/domain/errors"
	httptransport "ballotnet/contexts/opinion-network/network-score-service/transport/http"
)

type Handler struct {
	Rebuild commands.RebuildUseCase
	Read    queries.ReadUseCase
	Logger  *slog.Logger
}

func (h Handler) RebuildHandler(
	ctx context.Context,
	req httptransport.RebuildRequest,
) (httptransport.RebuildResponse, error) {
	result, err := h.Rebuild.Rebuild(ctx, req.VoterID, req.ElectionID)
	if err != nil {
		return httptransport.RebuildResponse{}, err
	}
	state, err := h.Read.CacheStatus(ctx, req.VoterID, req.ElectionID)
	if err != nil {
		return httptransport.RebuildResponse{}, err
	}
	return httptransport.RebuildResponse{
		VoterID:     strings.TrimSpace(req.VoterID),
		ElectionID:  strings.TrimSpace(req.ElectionID),
		State:       string(state),
		BallotItems: result.BallotItems,
		Entries:     result.Entries,
	}, nil
}

func (h Handler) NetworkScoreHandler(
	ctx context.Context,
	voterID string,
	electionID string,
	ballotItemKind string,
	ballotItemID string,
) (httptransport.NetworkScoreResponse, error) {
	ballotItem := entities.NewBallotItemKey(ballotItemKind, ballotItemID)
	if ballotItem.IsZero() {
		return httptransport.NetworkScoreResponse{}, domainerrors.ErrInvalidInput
	}
	view, err := h.Read.NetworkScore(ctx, voterID, electionID, ballotItem)
	if err != nil {
		return httptransport.NetworkScoreResponse{}, err
	}
	return httptransport.NetworkScoreResponse{
		VoterID:        view.VoterID,
		ElectionID:     view.ElectionID,
		BallotItemKind: view.BallotItem.Kind,
		BallotItemID:   view.BallotItem.ID,
		State:          string(view.State),
		SupportCount:   view.SupportCount,
		OpposeCount:    view.OpposeCount,
		Support:        entryResponses(view.Support),
		Oppose:         entryResponses(view.Oppose),
	}, nil
}

func (h Handler) CacheStatusHandler(
	ctx context.Context,
	voterID string,
	electionID string,
) (httptransport.CacheStatusResponse, error) {
	state, err := h.Read.CacheStatus(ctx, voterID, electionID)
	if err != nil {
		return httptransport.CacheStatusResponse{}, err
	}
	return httptransport.CacheStatusResponse{
		VoterID:    strings.TrimSpace(voterID),
		ElectionID: strings.TrimSpace(electionID),
		State:      string(state),
	}, nil
}

func entryResponses(entries []entities.NetworkScoreEntry) []httptransport.ScoreEntryResponse {
	responses := make([]httptransport.ScoreEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, httptransport.ScoreEntryResponse{
			SpeakerKind:        string(entry.SpeakerKind),
			SpeakerID:          entry.SpeakerID,
			SpeakerDisplayName: entry.SpeakerDisplayName,
		})
	}
	return responses
}
