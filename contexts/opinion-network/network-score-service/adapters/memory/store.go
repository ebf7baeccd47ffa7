package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
	"ballotnet/contexts/opinion-network/network-score-service/ports"

	"github.com/google/uuid"
)

// Store implements the network-score-service ports in memory for tests and
// local runs. Position data is seeded as projections, mirroring what the
// postgres adapter reads from the position tables.
type Store struct {
	mu sync.RWMutex

	entries map[entities.EntryKey]entities.NetworkScoreEntry

	publicPositions      []ports.PositionProjection
	friendsOnlyPositions []ports.PositionProjection

	followedOrgs map[string][]string
	friends      map[string][]string
	ballots      map[string][]entities.BallotItemKey
	voterOrgs    map[string]string

	dedup map[string]string

	failReplaceFor map[string]bool
	replaceCalls   int
}

func NewStore() *Store {
	return &Store{
		entries:        make(map[entities.EntryKey]entities.NetworkScoreEntry),
		followedOrgs:   make(map[string][]string),
		friends:        make(map[string][]string),
		ballots:        make(map[string][]entities.BallotItemKey),
		voterOrgs:      make(map[string]string),
		dedup:          make(map[string]string),
		failReplaceFor: make(map[string]bool),
	}
}

// SetFollowedOrganizations seeds social graph data.
func (s *Store) SetFollowedOrganizations(voterID string, organizationIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followedOrgs[strings.TrimSpace(voterID)] = append([]string(nil), organizationIDs...)
}

func (s *Store) SetFriends(voterID string, friendIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friends[strings.TrimSpace(voterID)] = append([]string(nil), friendIDs...)
}

func (s *Store) SetBallotItems(voterID string, electionID string, items []entities.BallotItemKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ballots[ballotKey(voterID, electionID)] = append([]entities.BallotItemKey(nil), items...)
}

func (s *Store) SetVoterLinkedOrganization(voterID string, organizationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voterOrgs[strings.TrimSpace(voterID)] = strings.TrimSpace(organizationID)
}

// SeedPublicPosition seeds one ranked public position projection.
func (s *Store) SeedPublicPosition(projection ports.PositionProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicPositions = append(s.publicPositions, projection)
}

func (s *Store) SeedFriendsOnlyPosition(projection ports.PositionProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friendsOnlyPositions = append(s.friendsOnlyPositions, projection)
}

// FailReplaceFor makes ReplaceEntries fail for the given ballot item id, for
// exercising rebuild failure paths.
func (s *Store) FailReplaceFor(ballotItemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReplaceFor[strings.TrimSpace(ballotItemID)] = true
}

// ReplaceCalls reports how many ReplaceEntries calls ran, for asserting
// collapse of concurrent rebuilds.
func (s *Store) ReplaceCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replaceCalls
}

func (s *Store) ReplaceEntries(
	_ context.Context,
	voterID string,
	ballotItem entities.BallotItemKey,
	entries []entities.NetworkScoreEntry,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++
	if s.failReplaceFor[ballotItem.ID] {
		return errReplaceInjected
	}
	voterID = strings.TrimSpace(voterID)
	for key := range s.entries {
		if key.VoterID == voterID && key.BallotItem == ballotItem {
			delete(s.entries, key)
		}
	}
	for _, entry := range entries {
		s.entries[entry.Key()] = entry
	}
	return nil
}

func (s *Store) InsertEntries(_ context.Context, entries []entities.NetworkScoreEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if _, exists := s.entries[entry.Key()]; exists {
			continue
		}
		s.entries[entry.Key()] = entry
	}
	return nil
}

func (s *Store) ListEntries(
	_ context.Context,
	voterID string,
	ballotItem entities.BallotItemKey,
) ([]entities.NetworkScoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voterID = strings.TrimSpace(voterID)
	matched := make([]entities.NetworkScoreEntry, 0)
	for key, entry := range s.entries {
		if key.VoterID == voterID && key.BallotItem == ballotItem {
			matched = append(matched, entry)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].SpeakerDisplayName != matched[j].SpeakerDisplayName {
			return matched[i].SpeakerDisplayName < matched[j].SpeakerDisplayName
		}
		return matched[i].SpeakerID < matched[j].SpeakerID
	})
	return matched, nil
}

func (s *Store) FollowedOrganizations(_ context.Context, voterID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.followedOrgs[strings.TrimSpace(voterID)]...), nil
}

func (s *Store) Friends(_ context.Context, voterID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.friends[strings.TrimSpace(voterID)]...), nil
}

func (s *Store) BallotItemsForVoter(
	_ context.Context,
	voterID string,
	electionID string,
) ([]entities.BallotItemKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.BallotItemKey(nil), s.ballots[ballotKey(voterID, electionID)]...), nil
}

func (s *Store) PublicPositionsByOrganizations(
	_ context.Context,
	ballotItem entities.BallotItemKey,
	organizationIDs []string,
) ([]ports.PositionProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := stringSet(organizationIDs)
	matched := make([]ports.PositionProjection, 0)
	for _, projection := range s.publicPositions {
		if projection.SpeakerKind != entities.SpeakerOrganization {
			continue
		}
		if projection.BallotItem != ballotItem || !allowed[projection.SpeakerID] {
			continue
		}
		matched = append(matched, projection)
	}
	return matched, nil
}

func (s *Store) FriendsOnlyPositionsByVoters(
	_ context.Context,
	ballotItem entities.BallotItemKey,
	voterIDs []string,
) ([]ports.PositionProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := stringSet(voterIDs)
	matched := make([]ports.PositionProjection, 0)
	for _, projection := range s.friendsOnlyPositions {
		if projection.SpeakerKind != entities.SpeakerFriend {
			continue
		}
		if projection.BallotItem != ballotItem || !allowed[projection.SpeakerID] {
			continue
		}
		matched = append(matched, projection)
	}
	return matched, nil
}

func (s *Store) PublicPositionsForOrganization(
	_ context.Context,
	organizationID string,
) ([]ports.PositionProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	organizationID = strings.TrimSpace(organizationID)
	matched := make([]ports.PositionProjection, 0)
	for _, projection := range s.publicPositions {
		if projection.SpeakerKind == entities.SpeakerOrganization && projection.SpeakerID == organizationID {
			matched = append(matched, projection)
		}
	}
	return matched, nil
}

func (s *Store) FriendsOnlyPositionsForVoter(
	_ context.Context,
	voterID string,
) ([]ports.PositionProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voterID = strings.TrimSpace(voterID)
	matched := make([]ports.PositionProjection, 0)
	for _, projection := range s.friendsOnlyPositions {
		if projection.SpeakerKind == entities.SpeakerFriend && projection.SpeakerID == voterID {
			matched = append(matched, projection)
		}
	}
	return matched, nil
}

func (s *Store) VoterLinkedOrganization(_ context.Context, voterID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	organizationID, found := s.voterOrgs[strings.TrimSpace(voterID)]
	if !found || organizationID == "" {
		return "", false, nil
	}
	return organizationID, true, nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eventID = strings.TrimSpace(eventID)
	if _, exists := s.dedup[eventID]; exists {
		return true, nil
	}
	s.dedup[eventID] = payloadHash
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func ballotKey(voterID string, electionID string) string {
	return strings.TrimSpace(voterID) + "|" + strings.TrimSpace(electionID)
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, value := range values {
		set[strings.TrimSpace(value)] = true
	}
	return set
}

var (
	_ ports.ScoreRepository     = (*Store)(nil)
	_ ports.PositionReader      = (*Store)(nil)
	_ ports.SocialGraphProvider = (*Store)(nil)
	_ ports.BallotProvider      = (*Store)(nil)
	_ ports.VoterLinkResolver   = (*Store)(nil)
	_ ports.EventDedupStore     = (*Store)(nil)
	_ ports.Clock               = (*Store)(nil)
	_ ports.IDGenerator         = (*Store)(nil)
)
