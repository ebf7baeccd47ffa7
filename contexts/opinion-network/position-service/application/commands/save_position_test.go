package commands_test

import (
	"context"
	"testing"

	"ballotnet/contexts/opinion-network/position-service/adapters/memory"
	"ballotnet/contexts/opinion-network/position-service/application/commands"
	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/position-service/domain/errors"
	"ballotnet/contexts/opinion-network/position-service/ports"
)

func newSaveUseCase(store *memory.Store) commands.SavePositionUseCase {
	return commands.SavePositionUseCase{
		Positions: store,
		Resolver:  store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
	}
}

func TestSavePositionCreatesThenUpdatesOnIdentity(t *testing.T) {
	store := memory.NewStore(nil)
	save := newSaveUseCase(store)
	ctx := context.Background()

	first, err := save.SavePosition(ctx, commands.SavePositionCommand{
		Speaker:       entities.OrganizationSpeaker("org-1"),
		BallotItem:    entities.CandidateItem("cand-1"),
		ElectionID:    "election-2026",
		Visibility:    entities.VisibilityPublic,
		Stance:        "SUPPORT",
		StatementText: "initial statement",
	})
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if !first.Created {
		t.Fatalf("first save should create")
	}

	second, err := save.SavePosition(ctx, commands.SavePositionCommand{
		Speaker:    entities.OrganizationSpeaker("org-1"),
		BallotItem: entities.CandidateItem("cand-1"),
		ElectionID: "election-2026",
		Visibility: entities.VisibilityPublic,
		Stance:     "OPPOSE",
	})
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if second.Created {
		t.Fatalf("same identity must update, not create")
	}
	if second.Position.PositionID != first.Position.PositionID {
		t.Fatalf("identity upsert must keep the position id")
	}
	if second.Position.Stance != entities.StanceOppose {
		t.Fatalf("stance not updated, got %s", second.Position.Stance)
	}
	if second.Position.StatementText != "initial statement" {
		t.Fatalf("empty input must not blank the stored statement, got %q", second.Position.StatementText)
	}
}

func TestSavePositionNormalizesLegacyStances(t *testing.T) {
	store := memory.NewStore(nil)
	save := newSaveUseCase(store)

	result, err := save.SavePosition(context.Background(), commands.SavePositionCommand{
		Speaker:    entities.OrganizationSpeaker("org-1"),
		BallotItem: entities.MeasureItem("measure-1"),
		ElectionID: "election-2026",
		Visibility: entities.VisibilityPublic,
		Stance:     "STILL_DECIDING",
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if result.Position.Stance != entities.StanceNoStance {
		t.Fatalf("legacy stance must normalize to NO_STANCE, got %s", result.Position.Stance)
	}
}

func TestSavePositionRejectsFriendSpeakerOnPublicPartition(t *testing.T) {
	save := newSaveUseCase(memory.NewStore(nil))

	_, err := save.SavePosition(context.Background(), commands.SavePositionCommand{
		Speaker:    entities.FriendSpeaker("voter-1"),
		BallotItem: entities.CandidateItem("cand-1"),
		ElectionID: "election-2026",
		Visibility: entities.VisibilityPublic,
		Stance:     "SUPPORT",
	})
	if err != domainerrors.ErrInvalidVisibility {
		t.Fatalf("expected invalid visibility, got %v", err)
	}
}

func TestSavePositionFillsDisplayCaches(t *testing.T) {
	store := memory.NewStore(nil)
	store.SetSpeakerDisplay(entities.OrganizationSpeaker("org-1"), ports.SpeakerDisplay{
		DisplayName: "Civic League",
		ImageURL:    "https://example.org/league.png",
	})
	store.SetBallotItemDisplay(entities.CandidateItem("cand-1"), ports.BallotItemDisplay{
		DisplayName: "Jordan Doe",
	})
	save := newSaveUseCase(store)

	result, err := save.SavePosition(context.Background(), commands.SavePositionCommand{
		Speaker:    entities.OrganizationSpeaker("org-1"),
		BallotItem: entities.CandidateItem("cand-1"),
		ElectionID: "election-2026",
		Visibility: entities.VisibilityPublic,
		Stance:     "SUPPORT",
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if result.Position.SpeakerDisplayName != "Civic League" {
		t.Fatalf("speaker display cache not filled, got %q", result.Position.SpeakerDisplayName)
	}
	if result.Position.BallotItemDisplayName != "Jordan Doe" {
		t.Fatalf("ballot item display cache not filled, got %q", result.Position.BallotItemDisplayName)
	}
}

func TestSavePositionAppendsOutboxEvent(t *testing.T) {
	store := memory.NewStore(nil)
	save := newSaveUseCase(store)
	ctx := context.Background()

	if _, err := save.SavePosition(ctx, commands.SavePositionCommand{
		Speaker:    entities.OrganizationSpeaker("org-1"),
		BallotItem: entities.CandidateItem("cand-1"),
		ElectionID: "election-2026",
		Visibility: entities.VisibilityPublic,
		Stance:     "SUPPORT",
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending outbox row, got %d", len(pending))
	}
	if pending[0].EventType != commands.TopicPositionSaved {
		t.Fatalf("unexpected event type %s", pending[0].EventType)
	}
}
