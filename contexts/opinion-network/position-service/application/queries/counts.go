package queries

import (
	"context"

	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/position-service/domain/errors"
	"ballotnet/contexts/opinion-network/position-service/ports"
)

// StanceCountsUseCase aggregates public advocacy tallies for one ballot item.
type StanceCountsUseCase struct {
	Positions ports.PositionRepository
}

type StanceCounts struct {
	BallotItem entities.BallotItemRef
	Support    int
	Oppose     int
}

// BallotItemStanceCounts counts public SUPPORT and OPPOSE positions for a
// ballot item. Information-only and no-stance rows never count.
func (u StanceCountsUseCase) BallotItemStanceCounts(
	ctx context.Context,
	ballotItem entities.BallotItemRef,
) (StanceCounts, error) {
	if ballotItem.IsZero() {
		return StanceCounts{}, domainerrors.ErrInvalidPositionInput
	}
	positions, err := u.Positions.ListByBallotItem(ctx, entities.VisibilityPublic, ballotItem)
	if err != nil {
		return StanceCounts{}, err
	}
	counts := StanceCounts{BallotItem: ballotItem}
	for _, position := range positions {
		switch {
		case position.IsSupport():
			counts.Support++
		case position.IsOppose():
			counts.Oppose++
		}
	}
	return counts, nil
}
