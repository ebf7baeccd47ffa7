package commands_test

import (
	"context"
	"testing"

	"ballotnet/contexts/opinion-network/position-service/adapters/memory"
	"ballotnet/contexts/opinion-network/position-service/application/commands"
	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/position-service/domain/errors"
)

func newToggleUseCase(store *memory.Store) commands.ToggleStanceUseCase {
	return commands.ToggleStanceUseCase{
		Positions: store,
		Resolver:  store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
	}
}

func TestToggleOnCreatesFriendsOnlyPosition(t *testing.T) {
	store := memory.NewStore(nil)
	toggle := newToggleUseCase(store)

	result, err := toggle.ToggleVoterStance(context.Background(), commands.ToggleStanceCommand{
		VoterID:    "voter-1",
		BallotItem: entities.CandidateItem("cand-1"),
		ElectionID: "election-2026",
		Stance:     "SUPPORT",
		On:         true,
	})
	if err != nil {
		t.Fatalf("toggle on failed: %v", err)
	}
	if !result.Created {
		t.Fatalf("toggle on a fresh ballot item must create")
	}
	if result.Position.Visibility != entities.VisibilityFriendsOnly {
		t.Fatalf("toggled positions are friends-only, got %s", result.Position.Visibility)
	}
	if result.Position.AuthorVoterID != "voter-1" {
		t.Fatalf("toggled position must carry the author, got %q", result.Position.AuthorVoterID)
	}
}

func TestToggleOffClearsOnlyMatchingStance(t *testing.T) {
	store := memory.NewStore(nil)
	toggle := newToggleUseCase(store)
	ctx := context.Background()

	if _, err := toggle.ToggleVoterStance(ctx, commands.ToggleStanceCommand{
		VoterID:    "voter-1",
		BallotItem: entities.CandidateItem("cand-1"),
		ElectionID: "election-2026",
		Stance:     "OPPOSE",
		On:         true,
	}); err != nil {
		t.Fatalf("seed toggle failed: %v", err)
	}

	// Toggling off SUPPORT must not erase the recorded OPPOSE.
	result, err := toggle.ToggleVoterStance(ctx, commands.ToggleStanceCommand{
		VoterID:    "voter-1",
		BallotItem: entities.CandidateItem("cand-1"),
		ElectionID: "election-2026",
		Stance:     "SUPPORT",
		On:         false,
	})
	if err != nil {
		t.Fatalf("mismatched toggle off failed: %v", err)
	}
	if result.Position.Stance != entities.StanceOppose {
		t.Fatalf("mismatched toggle off must leave the stance, got %s", result.Position.Stance)
	}

	result, err = toggle.ToggleVoterStance(ctx, commands.ToggleStanceCommand{
		VoterID:    "voter-1",
		BallotItem: entities.CandidateItem("cand-1"),
		ElectionID: "election-2026",
		Stance:     "OPPOSE",
		On:         false,
	})
	if err != nil {
		t.Fatalf("toggle off failed: %v", err)
	}
	if result.Position.Stance != entities.StanceNoStance {
		t.Fatalf("matching toggle off must clear to NO_STANCE, got %s", result.Position.Stance)
	}
}

func TestToggleOffUnknownPositionIsNoOp(t *testing.T) {
	toggle := newToggleUseCase(memory.NewStore(nil))

	result, err := toggle.ToggleVoterStance(context.Background(), commands.ToggleStanceCommand{
		VoterID:    "voter-1",
		BallotItem: entities.CandidateItem("cand-unknown"),
		ElectionID: "election-2026",
		Stance:     "SUPPORT",
		On:         false,
	})
	if err != nil {
		t.Fatalf("toggle off no-op failed: %v", err)
	}
	if result.Position.PositionID != "" {
		t.Fatalf("no position should be created by a toggle off")
	}
}

func TestToggleRejectsUnrankedStance(t *testing.T) {
	toggle := newToggleUseCase(memory.NewStore(nil))

	_, err := toggle.ToggleVoterStance(context.Background(), commands.ToggleStanceCommand{
		VoterID:    "voter-1",
		BallotItem: entities.CandidateItem("cand-1"),
		ElectionID: "election-2026",
		Stance:     "INFO_ONLY",
		On:         true,
	})
	if err != domainerrors.ErrInvalidPositionInput {
		t.Fatalf("expected invalid input for unranked stance, got %v", err)
	}
}
