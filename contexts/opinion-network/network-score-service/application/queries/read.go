package queries

import (
	"context"
	"strings"

	"ballotnet/contexts/opinion-network/network-score-service/application/commands"
	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/network-score-service/domain/errors"
	"ballotnet/contexts/opinion-network/network-score-service/ports"
)

// ReadUseCase serves cached scores. Reads never trigger a rebuild; an EMPTY
// key simply reads as zero entries and the caller decides whether to rebuild.
type ReadUseCase struct {
	Entries     ports.ScoreRepository
	Coordinator *commands.RebuildCoordinator
}

// NetworkScoreView partitions one ballot item's cached entries by advocacy.
type NetworkScoreView struct {
	VoterID      string
	ElectionID   string
	BallotItem   entities.BallotItemKey
	State        entities.CacheState
	SupportCount int
	OpposeCount  int
	Support      []entities.NetworkScoreEntry
	Oppose       []entities.NetworkScoreEntry
}

func (u ReadUseCase) NetworkScore(ctx context.Context, voterID string, electionID string, ballotItem entities.BallotItemKey) (NetworkScoreView, error) {
	voterID = strings.TrimSpace(voterID)
	electionID = strings.TrimSpace(electionID)
	if voterID == "" || electionID == "" || ballotItem.IsZero() {
		return NetworkScoreView{}, domainerrors.ErrInvalidInput
	}

	entries, err := u.Entries.ListEntries(ctx, voterID, ballotItem)
	if err != nil {
		return NetworkScoreView{}, err
	}

	view := NetworkScoreView{
		VoterID:    voterID,
		ElectionID: electionID,
		BallotItem: ballotItem,
		State:      entities.CacheStateEmpty,
		Support:    make([]entities.NetworkScoreEntry, 0, len(entries)),
		Oppose:     make([]entities.NetworkScoreEntry, 0),
	}
	if u.Coordinator != nil {
		view.State = u.Coordinator.State(voterID, electionID)
	}
	for _, entry := range entries {
		if entry.ElectionID != "" && entry.ElectionID != electionID {
			continue
		}
		if entry.IsSupport {
			view.Support = append(view.Support, entry)
		} else {
			view.Oppose = append(view.Oppose, entry)
		}
	}
	view.SupportCount = len(view.Support)
	view.OpposeCount = len(view.Oppose)
	return view, nil
}

// CacheStatus reports the lifecycle state of one (voter, election) key.
func (u ReadUseCase) CacheStatus(_ context.Context, voterID string, electionID string) (entities.CacheState, error) {
	voterID = strings.TrimSpace(voterID)
	electionID = strings.TrimSpace(electionID)
	if voterID == "" || electionID == "" {
		return entities.CacheStateEmpty, domainerrors.ErrInvalidInput
	}
	if u.Coordinator == nil {
		return entities.CacheStateEmpty, nil
	}
	return u.Coordinator.State(voterID, electionID), nil
}
