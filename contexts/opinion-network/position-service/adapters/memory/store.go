package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	"ballotnet/contexts/opinion-network/position-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store implements the position-service ports in memory for tests and local
// runs. Partitions are separate maps, matching the two-table layout.
type Store struct {
	mu sync.RWMutex

	partitions map[entities.Visibility]map[string]entities.Position
	outbox     map[string]outboxRecord

	speakers       map[entities.SpeakerRef]ports.SpeakerDisplay
	ballotItems    map[entities.BallotItemRef]ports.BallotItemDisplay
	voterOrgs      map[string]string
	failSaveFor    map[string]bool
	savedPositions int
}

func NewStore(seed []entities.Position) *Store {
	partitions := map[entities.Visibility]map[string]entities.Position{
		entities.VisibilityPublic:      make(map[string]entities.Position),
		entities.VisibilityFriendsOnly: make(map[string]entities.Position),
	}
	for _, position := range seed {
		partitions[position.Visibility][position.PositionID] = position
	}
	return &Store{
		partitions:  partitions,
		outbox:      make(map[string]outboxRecord),
		speakers:    make(map[entities.SpeakerRef]ports.SpeakerDisplay),
		ballotItems: make(map[entities.BallotItemRef]ports.BallotItemDisplay),
		voterOrgs:   make(map[string]string),
		failSaveFor: make(map[string]bool),
	}
}

// SetSpeakerDisplay seeds resolver data.
func (s *Store) SetSpeakerDisplay(speaker entities.SpeakerRef, display ports.SpeakerDisplay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speakers[speaker] = display
}

func (s *Store) SetBallotItemDisplay(item entities.BallotItemRef, display ports.BallotItemDisplay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ballotItems[item] = display
}

func (s *Store) SetVoterLinkedOrganization(voterID string, organizationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voterOrgs[strings.TrimSpace(voterID)] = strings.TrimSpace(organizationID)
}

// FailSaveFor makes the next saves of the given position id fail, for
// exercising per-item failure paths.
func (s *Store) FailSaveFor(positionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSaveFor[strings.TrimSpace(positionID)] = true
}

func (s *Store) GetPosition(
	_ context.Context,
	visibility entities.Visibility,
	positionID string,
) (entities.Position, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	position, ok := s.partitions[visibility][strings.TrimSpace(positionID)]
	return position, ok, nil
}

func (s *Store) FindByIdentity(
	_ context.Context,
	visibility entities.Visibility,
	speaker entities.SpeakerRef,
	ballotItem entities.BallotItemRef,
	electionID string,
) (entities.Position, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	electionID = strings.TrimSpace(electionID)
	for _, position := range s.partitions[visibility] {
		if !position.Speaker.Equal(speaker) || !position.BallotItem.Equal(ballotItem) {
			continue
		}
		if position.ElectionID != electionID {
			continue
		}
		return position, true, nil
	}
	return entities.Position{}, false, nil
}

func (s *Store) SavePosition(_ context.Context, position entities.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveFor[position.PositionID] {
		delete(s.failSaveFor, position.PositionID)
		return errPersistInjected
	}
	s.partitions[position.Visibility][strings.TrimSpace(position.PositionID)] = position
	s.savedPositions++
	return nil
}

func (s *Store) DeletePosition(
	_ context.Context,
	visibility entities.Visibility,
	positionID string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.partitions[visibility], strings.TrimSpace(positionID))
	return nil
}

func (s *Store) ListBySpeaker(
	_ context.Context,
	visibility entities.Visibility,
	speaker entities.SpeakerRef,
) ([]entities.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Position, 0)
	for _, position := range s.partitions[visibility] {
		if position.Speaker.Equal(speaker) {
			items = append(items, position)
		}
	}
	sortPositionsByEntry(items)
	return items, nil
}

func (s *Store) ListByAuthorVoter(
	_ context.Context,
	visibility entities.Visibility,
	voterID string,
) ([]entities.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voterID = strings.TrimSpace(voterID)
	items := make([]entities.Position, 0)
	for _, position := range s.partitions[visibility] {
		if position.AuthorVoterID == voterID {
			items = append(items, position)
		}
	}
	sortPositionsByEntry(items)
	return items, nil
}

func (s *Store) ListByBallotItem(
	_ context.Context,
	visibility entities.Visibility,
	ballotItem entities.BallotItemRef,
) ([]entities.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Position, 0)
	for _, position := range s.partitions[visibility] {
		if position.BallotItem.Equal(ballotItem) {
			items = append(items, position)
		}
	}
	sortPositionsByEntry(items)
	return items, nil
}

func (s *Store) CountByAuthorVoter(
	_ context.Context,
	visibility entities.Visibility,
	voterID string,
) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voterID = strings.TrimSpace(voterID)
	count := 0
	for _, position := range s.partitions[visibility] {
		if position.AuthorVoterID == voterID {
			count++
		}
	}
	return count, nil
}

func (s *Store) SpeakerDisplay(
	_ context.Context,
	speaker entities.SpeakerRef,
) (ports.SpeakerDisplay, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	display, ok := s.speakers[speaker]
	return display, ok, nil
}

func (s *Store) BallotItemDisplay(
	_ context.Context,
	ballotItem entities.BallotItemRef,
) (ports.BallotItemDisplay, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	display, ok := s.ballotItems[ballotItem]
	return display, ok, nil
}

func (s *Store) VoterLinkedOrganization(
	_ context.Context,
	voterID string,
) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	organizationID, ok := s.voterOrgs[strings.TrimSpace(voterID)]
	if !ok || organizationID == "" {
		return "", false, nil
	}
	return organizationID, true, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := marshalEnvelope(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, exists := s.outbox[outboxID]; exists {
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, record := range s.outbox {
		if record.published {
			continue
		}
		items = append(items, record.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return nil
	}
	record.published = true
	s.outbox[strings.TrimSpace(outboxID)] = record
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func sortPositionsByEntry(items []entities.Position) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].EnteredAt.Equal(items[j].EnteredAt) {
			return items[i].PositionID < items[j].PositionID
		}
		return items[i].EnteredAt.Before(items[j].EnteredAt)
	})
}

var _ ports.PositionRepository = (*Store)(nil)
var _ ports.EntityResolver = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
