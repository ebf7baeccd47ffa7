package ports

import (
	"context"
	"time"

	contractsv1 "ballotnet/contracts/gen/events/v1"
	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
)

// ScoreRepository owns the cache table. ReplaceEntries must be atomic per
// ballot item: a concurrent reader sees either the old or the new entry set,
// never a gap and never duplicates.
type ScoreRepository interface {
	ReplaceEntries(
		ctx context.Context,
		voterID string,
		ballotItem entities.BallotItemKey,
		entries []entities.NetworkScoreEntry,
	) error
	InsertEntries(ctx context.Context, entries []entities.NetworkScoreEntry) error
	ListEntries(ctx context.Context, voterID string, ballotItem entities.BallotItemKey) ([]entities.NetworkScoreEntry, error)
}

// SocialGraphProvider is the external follow/friend read contract. Friends
// returns the bidirectional friend set; the service adds the self-entry so a
// voter's own opinions count.
type SocialGraphProvider interface {
	FollowedOrganizations(ctx context.Context, voterID string) ([]string, error)
	Friends(ctx context.Context, voterID string) ([]string, error)
}

// BallotProvider resolves which ballot items are on a voter's ballot for an
// election.
type BallotProvider interface {
	BallotItemsForVoter(ctx context.Context, voterID string, electionID string) ([]entities.BallotItemKey, error)
}

// PositionProjection is the slice of a position this service aggregates.
// Stance is already reduced to advocacy: only support/oppose rows are
// returned by readers.
type PositionProjection struct {
	SpeakerKind        entities.SpeakerKind
	SpeakerID          string
	SpeakerDisplayName string
	BallotItem         entities.BallotItemKey
	ElectionID         string
	IsSupport          bool
}

// PositionReader is the read contract over the position store's partitions,
// filtered to ranked stances.
type PositionReader interface {
	PublicPositionsByOrganizations(
		ctx context.Context,
		ballotItem entities.BallotItemKey,
		organizationIDs []string,
	) ([]PositionProjection, error)
	FriendsOnlyPositionsByVoters(
		ctx context.Context,
		ballotItem entities.BallotItemKey,
		voterIDs []string,
	) ([]PositionProjection, error)
	PublicPositionsForOrganization(
		ctx context.Context,
		organizationID string,
	) ([]PositionProjection, error)
	FriendsOnlyPositionsForVoter(
		ctx context.Context,
		voterID string,
	) ([]PositionProjection, error)
}

// VoterLinkResolver resolves whether a voter account is linked to an
// organization, so a new friend's organization voice is also materialized.
type VoterLinkResolver interface {
	VoterLinkedOrganization(ctx context.Context, voterID string) (string, bool, error)
}

type EventEnvelope = contractsv1.Envelope

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
