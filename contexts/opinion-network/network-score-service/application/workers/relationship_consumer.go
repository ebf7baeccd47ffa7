package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "ballotnet/contexts/opinion-network/network-score-service/application"
	"ballotnet/contexts/opinion-network/network-score-service/application/commands"
	"ballotnet/contexts/opinion-network/network-score-service/ports"
)

const defaultRelationshipCG = "network-score-relationship-cg"

// RelationshipConsumer keeps the score cache warm as the social graph moves.
// New follows and friendships become incremental appends; coarse graph
// changes trigger a full rebuild of the affected key.
type RelationshipConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Incremental   commands.IncrementalUseCase
	Rebuild       commands.RebuildUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

// Start subscribes the consumer to the social relationship topics.
func (c RelationshipConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultRelationshipCG
	}
	subscriptions := []struct {
		topic   string
		handler func(context.Context, ports.EventEnvelope) error
	}{
		{followAddedTopic, c.handleFollowAdded},
		{friendAddedTopic, c.handleFriendAdded},
		{graphChangedTopic, c.handleGraphChanged},
	}
	for _, subscription := range subscriptions {
		if err := c.Subscriber.Subscribe(ctx, subscription.topic, group, subscription.handler); err != nil {
			logger.Error("relationship consumer subscribe failed",
				"event", "network_score_consumer_subscribe_failed",
				"module", "opinion-network/network-score-service",
				"layer", "worker",
				"topic", subscription.topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("relationship consumer subscriptions active",
		"event", "network_score_consumer_started",
		"module", "opinion-network/network-score-service",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c RelationshipConsumer) handleFollowAdded(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if replayed, err := c.reserveEvent(ctx, event); err != nil {
		return err
	} else if replayed {
		return nil
	}

	var payload struct {
		VoterID        string `json:"voter_id"`
		OrganizationID string `json:"organization_id"`
		ElectionID     string `json:"election_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		c.logDecodeFailure(event, err)
		return err
	}
	result, err := c.Incremental.AddForNewFollow(ctx, payload.VoterID, payload.ElectionID, payload.OrganizationID)
	if err != nil {
		logger.Error("follow_added incremental add failed",
			"event", "network_score_follow_added_failed",
			"module", "opinion-network/network-score-service",
			"layer", "worker",
			"event_id", event.EventID,
			"voter_id", payload.VoterID,
			"organization_id", payload.OrganizationID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("follow_added consumed",
		"event", "network_score_follow_added_consumed",
		"module", "opinion-network/network-score-service",
		"layer", "worker",
		"event_id", event.EventID,
		"voter_id", payload.VoterID,
		"organization_id", payload.OrganizationID,
		"entries_added", result.Added,
		"dropped", result.Dropped,
	)
	return nil
}

func (c RelationshipConsumer) handleFriendAdded(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if replayed, err := c.reserveEvent(ctx, event); err != nil {
		return err
	} else if replayed {
		return nil
	}

	var payload struct {
		VoterID       string `json:"voter_id"`
		FriendVoterID string `json:"friend_voter_id"`
		ElectionID    string `json:"election_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		c.logDecodeFailure(event, err)
		return err
	}
	result, err := c.Incremental.AddForNewFriend(ctx, payload.VoterID, payload.ElectionID, payload.FriendVoterID)
	if err != nil {
		logger.Error("friend_added incremental add failed",
			"event", "network_score_friend_added_failed",
			"module", "opinion-network/network-score-service",
			"layer", "worker",
			"event_id", event.EventID,
			"voter_id", payload.VoterID,
			"friend_voter_id", payload.FriendVoterID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("friend_added consumed",
		"event", "network_score_friend_added_consumed",
		"module", "opinion-network/network-score-service",
		"layer", "worker",
		"event_id", event.EventID,
		"voter_id", payload.VoterID,
		"friend_voter_id", payload.FriendVoterID,
		"entries_added", result.Added,
		"dropped", result.Dropped,
	)
	return nil
}

func (c RelationshipConsumer) handleGraphChanged(ctx context.Context, event ports.EventEnvelope) error {
	// Unfollows and unfriendings arrive here; subtraction is not modeled
	// incrementally, so the whole key rebuilds from authoritative data.
	logger := application.ResolveLogger(c.Logger)
	if replayed, err := c.reserveEvent(ctx, event); err != nil {
		return err
	} else if replayed {
		return nil
	}

	var payload struct {
		VoterID    string `json:"voter_id"`
		ElectionID string `json:"election_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		c.logDecodeFailure(event, err)
		return err
	}
	result, err := c.Rebuild.Rebuild(ctx, payload.VoterID, payload.ElectionID)
	if err != nil {
		logger.Error("graph_changed rebuild failed",
			"event", "network_score_graph_changed_failed",
			"module", "opinion-network/network-score-service",
			"layer", "worker",
			"event_id", event.EventID,
			"voter_id", payload.VoterID,
			"election_id", payload.ElectionID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("graph_changed consumed",
		"event", "network_score_graph_changed_consumed",
		"module", "opinion-network/network-score-service",
		"layer", "worker",
		"event_id", event.EventID,
		"voter_id", payload.VoterID,
		"election_id", payload.ElectionID,
		"ballot_items", result.BallotItems,
		"entries", result.Entries,
	)
	return nil
}

func (c RelationshipConsumer) reserveEvent(ctx context.Context, event ports.EventEnvelope) (bool, error) {
	logger := application.ResolveLogger(c.Logger)
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), c.now().Add(c.dedupTTL()))
	if err != nil {
		logger.Error("relationship event dedupe failed",
			"event", "network_score_event_dedupe_failed",
			"module", "opinion-network/network-score-service",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return false, err
	}
	if alreadyProcessed {
		logger.Debug("relationship event replay skipped",
			"event", "network_score_event_replayed",
			"module", "opinion-network/network-score-service",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return alreadyProcessed, nil
}

func (c RelationshipConsumer) logDecodeFailure(event ports.EventEnvelope, err error) {
	application.ResolveLogger(c.Logger).Error("relationship event payload decode failed",
		"event", "network_score_event_decode_failed",
		"module", "opinion-network/network-score-service",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"error", err.Error(),
	)
}

func (c RelationshipConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (c RelationshipConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}
