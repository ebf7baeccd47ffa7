package ports

import (
	"context"
	"time"

	contractsv1 "ballotnet/contracts/gen/events/v1"
	"ballotnet/contexts/opinion-network/position-service/domain/entities"
)

// PositionRepository is the persistence contract for both visibility
// partitions. Absence is reported through the found flag, never as an error.
type PositionRepository interface {
	GetPosition(ctx context.Context, visibility entities.Visibility, positionID string) (entities.Position, bool, error)
	FindByIdentity(
		ctx context.Context,
		visibility entities.Visibility,
		speaker entities.SpeakerRef,
		ballotItem entities.BallotItemRef,
		electionID string,
	) (entities.Position, bool, error)
	SavePosition(ctx context.Context, position entities.Position) error
	DeletePosition(ctx context.Context, visibility entities.Visibility, positionID string) error
	ListBySpeaker(ctx context.Context, visibility entities.Visibility, speaker entities.SpeakerRef) ([]entities.Position, error)
	ListByAuthorVoter(ctx context.Context, visibility entities.Visibility, voterID string) ([]entities.Position, error)
	ListByBallotItem(ctx context.Context, visibility entities.Visibility, ballotItem entities.BallotItemRef) ([]entities.Position, error)
	CountByAuthorVoter(ctx context.Context, visibility entities.Visibility, voterID string) (int, error)
}

// SpeakerDisplay is the denormalized speaker identity cached on a position.
type SpeakerDisplay struct {
	DisplayName   string
	ImageURL      string
	TwitterHandle string
}

// BallotItemDisplay is the denormalized ballot item identity cached on a
// position.
type BallotItemDisplay struct {
	DisplayName string
	ImageURL    string
}

// EntityResolver looks up canonical display data for the entities a position
// references. It is read-only from this service's perspective.
type EntityResolver interface {
	SpeakerDisplay(ctx context.Context, speaker entities.SpeakerRef) (SpeakerDisplay, bool, error)
	BallotItemDisplay(ctx context.Context, ballotItem entities.BallotItemRef) (BallotItemDisplay, bool, error)
	VoterLinkedOrganization(ctx context.Context, voterID string) (string, bool, error)
}

// DisplayLookups carries pre-fetched display data for batch refresh passes so
// a move across hundreds of positions resolves each entity once.
type DisplayLookups struct {
	Speakers    map[entities.SpeakerRef]SpeakerDisplay
	BallotItems map[entities.BallotItemRef]BallotItemDisplay
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
