package workers_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ballotnet/contexts/opinion-network/network-score-service/adapters/memory"
	"ballotnet/contexts/opinion-network/network-score-service/application/commands"
	"ballotnet/contexts/opinion-network/network-score-service/application/workers"
	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
	"ballotnet/contexts/opinion-network/network-score-service/ports"
)

// stubSubscriber records handlers per topic so tests can deliver envelopes
// synchronously without a broker.
type stubSubscriber struct {
	handlers map[string]func(context.Context, ports.EventEnvelope) error
	groups   map[string]string
}

func newStubSubscriber() *stubSubscriber {
	return &stubSubscriber{
		handlers: make(map[string]func(context.Context, ports.EventEnvelope) error),
		groups:   make(map[string]string),
	}
}

func (s *stubSubscriber) Subscribe(
	_ context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	s.handlers[topic] = handler
	s.groups[topic] = consumerGroup
	return nil
}

func (s *stubSubscriber) deliver(t *testing.T, topic string, event ports.EventEnvelope) error {
	t.Helper()
	handler, ok := s.handlers[topic]
	if !ok {
		t.Fatalf("no handler subscribed for topic %s", topic)
	}
	return handler(context.Background(), event)
}

func envelope(eventID string, eventType string, payload any) ports.EventEnvelope {
	data, _ := json.Marshal(payload)
	return ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC),
		SourceService: "social-graph-service",
		SchemaVersion: 1,
		Data:          data,
	}
}

func newConsumer(store *memory.Store, subscriber *stubSubscriber) workers.RelationshipConsumer {
	coordinator := commands.NewRebuildCoordinator()
	return workers.RelationshipConsumer{
		Subscriber: subscriber,
		Dedup:      store,
		Incremental: commands.IncrementalUseCase{
			Entries:     store,
			Positions:   store,
			Links:       store,
			Ballot:      store,
			Clock:       store,
			IDGen:       store,
			Coordinator: coordinator,
		},
		Rebuild: commands.RebuildUseCase{
			Entries:     store,
			Positions:   store,
			SocialGraph: store,
			Ballot:      store,
			Clock:       store,
			IDGen:       store,
			Coordinator: coordinator,
		},
		Clock: store,
	}
}

func TestConsumerHandlesFollowAdded(t *testing.T) {
	store := memory.NewStore()
	item := entities.NewBallotItemKey("candidate", "cand-1")
	store.SetBallotItems("voter-1", "election-2026", []entities.BallotItemKey{item})
	store.SeedPublicPosition(ports.PositionProjection{
		SpeakerKind:        entities.SpeakerOrganization,
		SpeakerID:          "org-1",
		SpeakerDisplayName: "League of Voters",
		BallotItem:         item,
		ElectionID:         "election-2026",
		IsSupport:          true,
	})
	subscriber := newStubSubscriber()
	consumer := newConsumer(store, subscriber)
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	err := subscriber.deliver(t, "social.follow_added", envelope("evt-1", "social.follow_added", map[string]string{
		"voter_id":        "voter-1",
		"organization_id": "org-1",
		"election_id":     "election-2026",
	}))
	if err != nil {
		t.Fatalf("follow_added handling failed: %v", err)
	}

	entries, err := store.ListEntries(context.Background(), "voter-1", item)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 cached entry after follow_added, got %d", len(entries))
	}
	if entries[0].SpeakerID != "org-1" || !entries[0].IsSupport {
		t.Fatalf("unexpected cached entry %+v", entries[0])
	}
}

func TestConsumerSkipsReplayedEvents(t *testing.T) {
	store := memory.NewStore()
	item := entities.NewBallotItemKey("candidate", "cand-1")
	store.SetBallotItems("voter-1", "election-2026", []entities.BallotItemKey{item})
	store.SeedFriendsOnlyPosition(ports.PositionProjection{
		SpeakerKind:        entities.SpeakerFriend,
		SpeakerID:          "voter-2",
		SpeakerDisplayName: "Pat",
		BallotItem:         item,
		ElectionID:         "election-2026",
		IsSupport:          false,
	})
	subscriber := newStubSubscriber()
	consumer := newConsumer(store, subscriber)
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	event := envelope("evt-7", "social.friend_added", map[string]string{
		"voter_id":        "voter-1",
		"friend_voter_id": "voter-2",
		"election_id":     "election-2026",
	})
	for i := 0; i < 3; i++ {
		if err := subscriber.deliver(t, "social.friend_added", event); err != nil {
			t.Fatalf("delivery %d failed: %v", i, err)
		}
	}

	entries, err := store.ListEntries(context.Background(), "voter-1", item)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("replayed event must not duplicate entries, got %d", len(entries))
	}
}

func TestConsumerGraphChangedTriggersFullRebuild(t *testing.T) {
	store := memory.NewStore()
	item := entities.NewBallotItemKey("measure", "meas-1")
	store.SetFollowedOrganizations("voter-1", []string{"org-1"})
	store.SetFriends("voter-1", nil)
	store.SetBallotItems("voter-1", "election-2026", []entities.BallotItemKey{item})
	store.SeedPublicPosition(ports.PositionProjection{
		SpeakerKind:        entities.SpeakerOrganization,
		SpeakerID:          "org-1",
		SpeakerDisplayName: "League of Voters",
		BallotItem:         item,
		ElectionID:         "election-2026",
		IsSupport:          true,
	})
	// A stale entry from a speaker no longer in the network.
	if err := store.InsertEntries(context.Background(), []entities.NetworkScoreEntry{{
		EntryID:     "stale-1",
		VoterID:     "voter-1",
		ElectionID:  "election-2026",
		BallotItem:  item,
		SpeakerKind: entities.SpeakerOrganization,
		SpeakerID:   "org-gone",
		IsSupport:   true,
	}}); err != nil {
		t.Fatalf("seed stale entry: %v", err)
	}
	subscriber := newStubSubscriber()
	consumer := newConsumer(store, subscriber)
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	err := subscriber.deliver(t, "social.graph_changed", envelope("evt-9", "social.graph_changed", map[string]string{
		"voter_id":    "voter-1",
		"election_id": "election-2026",
	}))
	if err != nil {
		t.Fatalf("graph_changed handling failed: %v", err)
	}

	entries, err := store.ListEntries(context.Background(), "voter-1", item)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 || entries[0].SpeakerID != "org-1" {
		t.Fatalf("rebuild should replace stale entries, got %+v", entries)
	}
	if calls := store.ReplaceCalls(); calls != 1 {
		t.Fatalf("expected exactly one replace pass, got %d", calls)
	}
}

func TestConsumerSubscribesAllRelationshipTopics(t *testing.T) {
	subscriber := newStubSubscriber()
	consumer := newConsumer(memory.NewStore(), subscriber)
	consumer.ConsumerGroup = "custom-cg"
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for _, topic := range []string{"social.follow_added", "social.friend_added", "social.graph_changed"} {
		if _, ok := subscriber.handlers[topic]; !ok {
			t.Fatalf("expected subscription for %s", topic)
		}
		if group := subscriber.groups[topic]; group != "custom-cg" {
			t.Fatalf("expected consumer group custom-cg on %s, got %s", topic, group)
		}
	}
}
