package httpadapter

import (
	"context"
	"log/slog"
	"strings"

	"ballotnet/contexts/opinion-network/position-service/application/commands"
	"ballotnet/contexts/opinion-network/position-service/application/queries"
	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/position-service/domain/errors"
	httptransport "ballotnet/contexts/opinion-network/position-service/transport/http"
)

type Handler struct {
	Save     commands.SavePositionUseCase
	Toggle   commands.ToggleStanceUseCase
	Merge    commands.MergeUseCase
	Reassign commands.ReassignUseCase
	Retrieve queries.RetrieveUseCase
	Counts   queries.StanceCountsUseCase
	Logger   *slog.Logger
}

func (h Handler) SavePositionHandler(
	ctx context.Context,
	req httptransport.SavePositionRequest,
) (httptransport.PositionResponse, error) {
	speaker, err := parseSpeaker(req.SpeakerKind, req.SpeakerID)
	if err != nil {
		return httptransport.PositionResponse{}, err
	}
	ballotItem, err := parseBallotItem(req.BallotItemKind, req.BallotItemID)
	if err != nil {
		return httptransport.PositionResponse{}, err
	}
	result, err := h.Save.SavePosition(ctx, commands.SavePositionCommand{
		Speaker:       speaker,
		BallotItem:    ballotItem,
		ElectionID:    req.ElectionID,
		Visibility:    entities.Visibility(strings.ToLower(strings.TrimSpace(req.Visibility))),
		Stance:        req.Stance,
		StatementText: req.StatementText,
		StatementHTML: req.StatementHTML,
		MoreInfoURL:   req.MoreInfoURL,
		AuthorVoterID: req.AuthorVoterID,
	})
	if err != nil {
		return httptransport.PositionResponse{}, err
	}
	response := positionResponse(result.Position, true)
	response.Created = result.Created
	return response, nil
}

func (h Handler) RetrievePositionHandler(
	ctx context.Context,
	visibility string,
	positionID string,
) (httptransport.PositionResponse, error) {
	view, err := h.Retrieve.RetrievePosition(ctx, queries.RetrieveFilter{
		Visibility: entities.Visibility(strings.ToLower(strings.TrimSpace(visibility))),
		PositionID: positionID,
	})
	if err != nil {
		return httptransport.PositionResponse{}, err
	}
	if !view.Found {
		return httptransport.PositionResponse{Found: false}, nil
	}
	return positionResponse(view.Position, true), nil
}

func (h Handler) ToggleStanceHandler(
	ctx context.Context,
	req httptransport.ToggleStanceRequest,
) (httptransport.PositionResponse, error) {
	ballotItem, err := parseBallotItem(req.BallotItemKind, req.BallotItemID)
	if err != nil {
		return httptransport.PositionResponse{}, err
	}
	result, err := h.Toggle.ToggleVoterStance(ctx, commands.ToggleStanceCommand{
		VoterID:    req.VoterID,
		BallotItem: ballotItem,
		ElectionID: req.ElectionID,
		Stance:     req.Stance,
		On:         req.On,
	})
	if err != nil {
		return httptransport.PositionResponse{}, err
	}
	if result.Position.PositionID == "" {
		return httptransport.PositionResponse{Found: false}, nil
	}
	response := positionResponse(result.Position, true)
	response.Created = result.Created
	return response, nil
}

func (h Handler) MovePositionsHandler(
	ctx context.Context,
	req httptransport.MovePositionsRequest,
) (httptransport.MoveProgressResponse, error) {
	visibility := entities.Visibility(strings.ToLower(strings.TrimSpace(req.Visibility)))
	var (
		progress commands.MoveProgress
		err      error
	)
	switch strings.ToLower(strings.TrimSpace(req.Scope)) {
	case "ballot_item":
		var from, to entities.BallotItemRef
		if from, err = parseBallotItem(req.Kind, req.FromID); err != nil {
			return httptransport.MoveProgressResponse{}, err
		}
		if to, err = parseBallotItem(req.Kind, req.ToID); err != nil {
			return httptransport.MoveProgressResponse{}, err
		}
		progress, err = h.Reassign.MoveBallotItemPositions(ctx, from, to, visibility)
	case "organization":
		progress, err = h.Reassign.MoveOrganizationPositions(ctx, req.FromID, req.ToID, visibility)
	case "voter":
		progress, err = h.Reassign.MoveVoterPositions(
			ctx, req.FromID, req.ToID, commands.VoterMoveMode(strings.ToLower(strings.TrimSpace(req.Mode))), h.Save.IDGen)
	default:
		return httptransport.MoveProgressResponse{}, domainerrors.ErrInvalidPositionInput
	}
	if err != nil {
		return httptransport.MoveProgressResponse{}, err
	}
	return httptransport.MoveProgressResponse{
		Moved:    progress.Moved,
		NotMoved: progress.NotMoved,
		Failed:   progress.Failed,
	}, nil
}

func (h Handler) MergeVoterPositionsHandler(
	ctx context.Context,
	req httptransport.MergeVoterPositionsRequest,
) (httptransport.MergeVoterPositionsResponse, error) {
	visibility := entities.Visibility(strings.ToLower(strings.TrimSpace(req.Visibility)))
	list, err := h.Retrieve.ListVoterPositions(ctx, visibility, req.VoterID)
	if err != nil {
		return httptransport.MergeVoterPositionsResponse{}, err
	}
	remaining, err := h.Merge.MergeDuplicatePositionsForVoter(ctx, list)
	if err != nil {
		return httptransport.MergeVoterPositionsResponse{}, err
	}
	items := make([]httptransport.PositionResponse, 0, len(remaining))
	for _, position := range remaining {
		items = append(items, positionResponse(position, true))
	}
	return httptransport.MergeVoterPositionsResponse{Remaining: items}, nil
}

func (h Handler) StanceCountsHandler(
	ctx context.Context,
	ballotItemKind string,
	ballotItemID string,
) (httptransport.StanceCountsResponse, error) {
	ballotItem, err := parseBallotItem(ballotItemKind, ballotItemID)
	if err != nil {
		return httptransport.StanceCountsResponse{}, err
	}
	counts, err := h.Counts.BallotItemStanceCounts(ctx, ballotItem)
	if err != nil {
		return httptransport.StanceCountsResponse{}, err
	}
	return httptransport.StanceCountsResponse{
		BallotItemKind: string(counts.BallotItem.Kind()),
		BallotItemID:   counts.BallotItem.ID(),
		SupportCount:   counts.Support,
		OpposeCount:    counts.Oppose,
	}, nil
}

func parseSpeaker(kind string, id string) (entities.SpeakerRef, error) {
	switch entities.SpeakerKind(strings.ToLower(strings.TrimSpace(kind))) {
	case entities.SpeakerOrganization:
		return entities.OrganizationSpeaker(id), nil
	case entities.SpeakerFriend:
		return entities.FriendSpeaker(id), nil
	case entities.SpeakerPublicFigure:
		return entities.PublicFigureSpeaker(id), nil
	default:
		return entities.SpeakerRef{}, domainerrors.ErrInvalidPositionInput
	}
}

func parseBallotItem(kind string, id string) (entities.BallotItemRef, error) {
	switch entities.BallotItemKind(strings.ToLower(strings.TrimSpace(kind))) {
	case entities.BallotItemCandidate:
		return entities.CandidateItem(id), nil
	case entities.BallotItemMeasure:
		return entities.MeasureItem(id), nil
	case entities.BallotItemOffice:
		return entities.OfficeItem(id), nil
	default:
		return entities.BallotItemRef{}, domainerrors.ErrInvalidPositionInput
	}
}

func positionResponse(position entities.Position, found bool) httptransport.PositionResponse {
	return httptransport.PositionResponse{
		PositionID:            position.PositionID,
		SpeakerKind:           string(position.Speaker.Kind()),
		SpeakerID:             position.Speaker.ID(),
		SpeakerDisplayName:    position.SpeakerDisplayName,
		BallotItemKind:        string(position.BallotItem.Kind()),
		BallotItemID:          position.BallotItem.ID(),
		BallotItemDisplayName: position.BallotItemDisplayName,
		ElectionID:            position.ElectionID,
		Visibility:            string(position.Visibility),
		Stance:                string(position.Stance),
		StatementText:         position.StatementText,
		StatementHTML:         position.StatementHTML,
		MoreInfoURL:           position.MoreInfoURL,
		IsSupport:             position.IsSupport(),
		IsOppose:              position.IsOppose(),
		IsInformationOnly:     position.IsInformationOnly(),
		Found:                 found,
	}
}
