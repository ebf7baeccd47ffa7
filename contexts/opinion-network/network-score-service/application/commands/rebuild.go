package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "ballotnet/contexts/opinion-network/network-score-service/application"
	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/network-score-service/domain/errors"
	"ballotnet/contexts/opinion-network/network-score-service/ports"

	"golang.org/x/sync/errgroup"
)

// RebuildUseCase recomputes the network score cache for one (voter,
// election) key from authoritative position data. Last rebuild wins: the
// entry set after a completed rebuild exactly equals what the aggregation
// derives from the current position store and social graph.
type RebuildUseCase struct {
	Entries     ports.ScoreRepository
	Positions   ports.PositionReader
	SocialGraph ports.SocialGraphProvider
	Ballot      ports.BallotProvider
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Coordinator *RebuildCoordinator
	Parallelism int
	Logger      *slog.Logger
}

type RebuildResult struct {
	BallotItems int
	Entries     int
}

func (u RebuildUseCase) Rebuild(ctx context.Context, voterID string, electionID string) (RebuildResult, error) {
	voterID = strings.TrimSpace(voterID)
	electionID = strings.TrimSpace(electionID)
	if voterID == "" || electionID == "" {
		return RebuildResult{}, domainerrors.ErrInvalidInput
	}
	if u.Coordinator == nil {
		return u.rebuild(ctx, voterID, electionID)
	}
	return u.Coordinator.RunRebuild(ctx, voterID, electionID, func() (RebuildResult, error) {
		return u.rebuild(ctx, voterID, electionID)
	})
}

func (u RebuildUseCase) rebuild(ctx context.Context, voterID string, electionID string) (RebuildResult, error) {
	logger := application.ResolveLogger(u.Logger)

	organizationIDs, err := u.SocialGraph.FollowedOrganizations(ctx, voterID)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("%w: %v", domainerrors.ErrSocialGraphFailure, err)
	}
	friendIDs, err := u.SocialGraph.Friends(ctx, voterID)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("%w: %v", domainerrors.ErrSocialGraphFailure, err)
	}
	friendIDs = withSelf(friendIDs, voterID)

	ballotItems, err := u.Ballot.BallotItemsForVoter(ctx, voterID, electionID)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("%w: %v", domainerrors.ErrBallotUnavailable, err)
	}

	now := resolveNow(u.Clock)

	// Different ballot items never share an entry key, so they can be
	// replaced in parallel; each item's delete+insert stays one atomic unit.
	group, groupCtx := errgroup.WithContext(ctx)
	limit := u.Parallelism
	if limit <= 0 {
		limit = 4
	}
	group.SetLimit(limit)

	counts := make([]int, len(ballotItems))
	for index, ballotItem := range ballotItems {
		index, ballotItem := index, ballotItem
		group.Go(func() error {
			entries, err := u.gatherEntries(groupCtx, voterID, electionID, ballotItem, organizationIDs, friendIDs, now)
			if err != nil {
				return err
			}
			if err := u.Entries.ReplaceEntries(groupCtx, voterID, ballotItem, entries); err != nil {
				return err
			}
			counts[index] = len(entries)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.Error("network score rebuild aborted",
			"event", "network_score_rebuild_aborted",
			"module", "opinion-network/network-score-service",
			"layer", "application",
			"voter_id", voterID,
			"election_id", electionID,
			"error", err.Error(),
		)
		return RebuildResult{}, err
	}

	total := 0
	for _, count := range counts {
		total += count
	}
	logger.Info("network score rebuild completed",
		"event", "network_score_rebuild_completed",
		"module", "opinion-network/network-score-service",
		"layer", "application",
		"voter_id", voterID,
		"election_id", electionID,
		"ballot_items", len(ballotItems),
		"entries", total,
	)
	return RebuildResult{BallotItems: len(ballotItems), Entries: total}, nil
}

// gatherEntries derives the full entry set for one ballot item: public
// positions from followed organizations plus friends-only positions from the
// friend set, each already filtered to ranked stances by the reader.
func (u RebuildUseCase) gatherEntries(
	ctx context.Context,
	voterID string,
	electionID string,
	ballotItem entities.BallotItemKey,
	organizationIDs []string,
	friendIDs []string,
	now time.Time,
) ([]entities.NetworkScoreEntry, error) {
	entries := make([]entities.NetworkScoreEntry, 0)
	seen := make(map[entities.EntryKey]bool)

	if len(organizationIDs) > 0 {
		projections, err := u.Positions.PublicPositionsByOrganizations(ctx, ballotItem, organizationIDs)
		if err != nil {
			return nil, err
		}
		entries = u.appendProjections(ctx, entries, seen, projections, voterID, electionID, now)
	}
	if len(friendIDs) > 0 {
		projections, err := u.Positions.FriendsOnlyPositionsByVoters(ctx, ballotItem, friendIDs)
		if err != nil {
			return nil, err
		}
		entries = u.appendProjections(ctx, entries, seen, projections, voterID, electionID, now)
	}
	return entries, nil
}

func (u RebuildUseCase) appendProjections(
	ctx context.Context,
	entries []entities.NetworkScoreEntry,
	seen map[entities.EntryKey]bool,
	projections []ports.PositionProjection,
	voterID string,
	electionID string,
	now time.Time,
) []entities.NetworkScoreEntry {
	for _, projection := range projections {
		if projection.ElectionID != "" && projection.ElectionID != electionID {
			continue
		}
		entry := u.entryFromProjection(ctx, projection, voterID, electionID, now)
		if seen[entry.Key()] {
			continue
		}
		seen[entry.Key()] = true
		entries = append(entries, entry)
	}
	return entries
}

func (u RebuildUseCase) entryFromProjection(
	ctx context.Context,
	projection ports.PositionProjection,
	voterID string,
	electionID string,
	now time.Time,
) entities.NetworkScoreEntry {
	entryID := ""
	if u.IDGen != nil {
		if id, err := u.IDGen.NewID(ctx); err == nil {
			entryID = id
		}
	}
	return entities.NetworkScoreEntry{
		EntryID:            entryID,
		VoterID:            voterID,
		ElectionID:         electionID,
		BallotItem:         projection.BallotItem,
		SpeakerKind:        projection.SpeakerKind,
		SpeakerID:          projection.SpeakerID,
		SpeakerDisplayName: projection.SpeakerDisplayName,
		IsSupport:          projection.IsSupport,
		ComputedAt:         now,
	}
}

func withSelf(friendIDs []string, voterID string) []string {
	for _, id := range friendIDs {
		if id == voterID {
			return friendIDs
		}
	}
	return append(append([]string(nil), friendIDs...), voterID)
}

func resolveNow(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}
