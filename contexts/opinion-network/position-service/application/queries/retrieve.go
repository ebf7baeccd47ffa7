package queries

import (
	"context"
	"strings"

	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/position-service/domain/errors"
	"ballotnet/contexts/opinion-network/position-service/ports"
)

// RetrieveUseCase answers position lookups. A missing position is a normal
// outcome reported through Found, never an error.
type RetrieveUseCase struct {
	Positions ports.PositionRepository
}

// PositionView is a position with its stance pre-resolved into booleans for
// callers that only branch on advocacy.
type PositionView struct {
	Position          entities.Position
	Found             bool
	IsSupport         bool
	IsOppose          bool
	IsInformationOnly bool
}

type RetrieveFilter struct {
	Visibility entities.Visibility
	PositionID string

	Speaker    entities.SpeakerRef
	BallotItem entities.BallotItemRef
	ElectionID string
}

// RetrievePosition resolves the filter by position id when given, otherwise
// by the (speaker, ballot item, election) identity.
func (u RetrieveUseCase) RetrievePosition(ctx context.Context, filter RetrieveFilter) (PositionView, error) {
	if !filter.Visibility.Valid() {
		return PositionView{}, domainerrors.ErrInvalidVisibility
	}

	var (
		position entities.Position
		found    bool
		err      error
	)
	if strings.TrimSpace(filter.PositionID) != "" {
		position, found, err = u.Positions.GetPosition(ctx, filter.Visibility, strings.TrimSpace(filter.PositionID))
	} else {
		if filter.Speaker.IsZero() || filter.BallotItem.IsZero() {
			return PositionView{}, domainerrors.ErrInvalidPositionInput
		}
		position, found, err = u.Positions.FindByIdentity(
			ctx, filter.Visibility, filter.Speaker, filter.BallotItem, strings.TrimSpace(filter.ElectionID))
	}
	if err != nil {
		return PositionView{}, err
	}
	if !found {
		return PositionView{}, nil
	}
	return PositionView{
		Position:          position,
		Found:             true,
		IsSupport:         position.IsSupport(),
		IsOppose:          position.IsOppose(),
		IsInformationOnly: position.IsInformationOnly(),
	}, nil
}

// ListVoterPositions returns one voter's positions in a partition, the input
// the merge engine's voter pass operates on.
func (u RetrieveUseCase) ListVoterPositions(
	ctx context.Context,
	visibility entities.Visibility,
	voterID string,
) ([]entities.Position, error) {
	if !visibility.Valid() {
		return nil, domainerrors.ErrInvalidVisibility
	}
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return nil, domainerrors.ErrInvalidPositionInput
	}
	return u.Positions.ListByAuthorVoter(ctx, visibility, voterID)
}
