package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "ballotnet/contexts/opinion-network/network-score-service/application"
	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/network-score-service/domain/errors"
	"ballotnet/contexts/opinion-network/network-score-service/ports"
)

// IncrementalUseCase appends entries for a single new relationship without a
// full rebuild. Incremental adds are best-effort accelerators: when a rebuild
// is in flight for the key the add is dropped, because the rebuild derives
// the same rows from authoritative data.
type IncrementalUseCase struct {
	Entries     ports.ScoreRepository
	Positions   ports.PositionReader
	Links       ports.VoterLinkResolver
	Ballot      ports.BallotProvider
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Coordinator *RebuildCoordinator
	Logger      *slog.Logger
}

type IncrementalResult struct {
	Added   int
	Dropped bool
}

// AddForNewFollow materializes the public voice of one newly followed
// organization across the ballot items already on the voter's ballot.
func (u IncrementalUseCase) AddForNewFollow(ctx context.Context, voterID string, electionID string, organizationID string) (IncrementalResult, error) {
	voterID = strings.TrimSpace(voterID)
	electionID = strings.TrimSpace(electionID)
	organizationID = strings.TrimSpace(organizationID)
	if voterID == "" || electionID == "" || organizationID == "" {
		return IncrementalResult{}, domainerrors.ErrInvalidInput
	}
	if u.dropWhileRebuilding(voterID, electionID, "follow", organizationID) {
		return IncrementalResult{Dropped: true}, nil
	}

	projections, err := u.Positions.PublicPositionsForOrganization(ctx, organizationID)
	if err != nil {
		return IncrementalResult{}, err
	}
	return u.insertProjections(ctx, voterID, electionID, projections)
}

// AddForNewFriend materializes a new friend's friends-only voice, and their
// linked organization's public voice when such a link exists.
func (u IncrementalUseCase) AddForNewFriend(ctx context.Context, voterID string, electionID string, friendVoterID string) (IncrementalResult, error) {
	voterID = strings.TrimSpace(voterID)
	electionID = strings.TrimSpace(electionID)
	friendVoterID = strings.TrimSpace(friendVoterID)
	if voterID == "" || electionID == "" || friendVoterID == "" {
		return IncrementalResult{}, domainerrors.ErrInvalidInput
	}
	if u.dropWhileRebuilding(voterID, electionID, "friend", friendVoterID) {
		return IncrementalResult{Dropped: true}, nil
	}

	projections, err := u.Positions.FriendsOnlyPositionsForVoter(ctx, friendVoterID)
	if err != nil {
		return IncrementalResult{}, err
	}
	if u.Links != nil {
		linkedOrgID, found, err := u.Links.VoterLinkedOrganization(ctx, friendVoterID)
		if err != nil {
			return IncrementalResult{}, err
		}
		if found {
			orgProjections, err := u.Positions.PublicPositionsForOrganization(ctx, linkedOrgID)
			if err != nil {
				return IncrementalResult{}, err
			}
			projections = append(projections, orgProjections...)
		}
	}
	return u.insertProjections(ctx, voterID, electionID, projections)
}

func (u IncrementalUseCase) insertProjections(ctx context.Context, voterID string, electionID string, projections []ports.PositionProjection) (IncrementalResult, error) {
	// Off-ballot entries would survive every rebuild (rebuild replaces per
	// ballot item on the ballot), so the add is scoped to the voter's ballot.
	ballotItems, err := u.Ballot.BallotItemsForVoter(ctx, voterID, electionID)
	if err != nil {
		return IncrementalResult{}, fmt.Errorf("%w: %v", domainerrors.ErrBallotUnavailable, err)
	}
	onBallot := make(map[entities.BallotItemKey]bool, len(ballotItems))
	for _, item := range ballotItems {
		onBallot[item] = true
	}

	now := resolveNow(u.Clock)
	seen := make(map[entities.EntryKey]bool)
	entries := make([]entities.NetworkScoreEntry, 0, len(projections))
	for _, projection := range projections {
		if !onBallot[projection.BallotItem] {
			continue
		}
		if projection.ElectionID != "" && projection.ElectionID != electionID {
			continue
		}
		builder := RebuildUseCase{IDGen: u.IDGen}
		entry := builder.entryFromProjection(ctx, projection, voterID, electionID, now)
		if seen[entry.Key()] {
			continue
		}
		seen[entry.Key()] = true
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return IncrementalResult{}, nil
	}
	if err := u.Entries.InsertEntries(ctx, entries); err != nil {
		return IncrementalResult{}, err
	}
	return IncrementalResult{Added: len(entries)}, nil
}

func (u IncrementalUseCase) dropWhileRebuilding(voterID string, electionID string, relation string, relationID string) bool {
	if u.Coordinator == nil || !u.Coordinator.RebuildInFlight(voterID, electionID) {
		return false
	}
	application.ResolveLogger(u.Logger).Info("incremental add dropped during rebuild",
		"event", "network_score_incremental_dropped",
		"module", "opinion-network/network-score-service",
		"layer", "application",
		"voter_id", voterID,
		"election_id", electionID,
		"relation", relation,
		"relation_id", relationID,
	)
	return true
}
