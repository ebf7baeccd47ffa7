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

func orgPosition(id, organizationID, candidateID, stance string) entities.Position {
	return entities.Position{
		PositionID: id,
		Speaker:    entities.OrganizationSpeaker(organizationID),
		BallotItem: entities.CandidateItem(candidateID),
		ElectionID: "election-2026",
		Visibility: entities.VisibilityPublic,
		Stance:     entities.Stance(stance),
	}
}

func newReassignUseCase(store *memory.Store) commands.ReassignUseCase {
	return commands.ReassignUseCase{
		Positions: store,
		Resolver:  store,
		Clock:     store,
	}
}

func TestMoveBallotItemPositionsRepoints(t *testing.T) {
	store := memory.NewStore(nil)
	reassign := newReassignUseCase(store)
	ctx := context.Background()

	for _, position := range []entities.Position{
		orgPosition("pos-1", "org-1", "cand-losing", "SUPPORT"),
		orgPosition("pos-2", "org-2", "cand-losing", "OPPOSE"),
	} {
		if err := store.SavePosition(ctx, position); err != nil {
			t.Fatalf("seed %s: %v", position.PositionID, err)
		}
	}

	progress, err := reassign.MoveBallotItemPositions(
		ctx,
		entities.CandidateItem("cand-losing"),
		entities.CandidateItem("cand-surviving"),
		entities.VisibilityPublic,
	)
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if progress.Moved != 2 || progress.NotMoved != 0 || progress.Failed != 0 {
		t.Fatalf("unexpected progress %+v", progress)
	}

	moved, _ := store.ListByBallotItem(ctx, entities.VisibilityPublic, entities.CandidateItem("cand-surviving"))
	if len(moved) != 2 {
		t.Fatalf("expected 2 positions on surviving candidate, got %d", len(moved))
	}
	remaining, _ := store.ListByBallotItem(ctx, entities.VisibilityPublic, entities.CandidateItem("cand-losing"))
	if len(remaining) != 0 {
		t.Fatalf("losing candidate should hold no positions, got %d", len(remaining))
	}

	// Second pass over an already-clean source is a no-op.
	again, err := reassign.MoveBallotItemPositions(
		ctx,
		entities.CandidateItem("cand-losing"),
		entities.CandidateItem("cand-surviving"),
		entities.VisibilityPublic,
	)
	if err != nil {
		t.Fatalf("second move failed: %v", err)
	}
	if again.Total() != 0 {
		t.Fatalf("second pass should report nothing, got %+v", again)
	}
}

func TestMoveBallotItemPositionsMergesIntoExisting(t *testing.T) {
	store := memory.NewStore(nil)
	reassign := newReassignUseCase(store)
	ctx := context.Background()

	losing := orgPosition("pos-losing", "org-1", "cand-losing", "NO_STANCE")
	losing.StatementText = "kept statement"
	surviving := orgPosition("pos-surviving", "org-1", "cand-surviving", "SUPPORT")
	if err := store.SavePosition(ctx, losing); err != nil {
		t.Fatalf("seed losing: %v", err)
	}
	if err := store.SavePosition(ctx, surviving); err != nil {
		t.Fatalf("seed surviving: %v", err)
	}

	progress, err := reassign.MoveBallotItemPositions(
		ctx,
		entities.CandidateItem("cand-losing"),
		entities.CandidateItem("cand-surviving"),
		entities.VisibilityPublic,
	)
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if progress.Moved != 0 || progress.NotMoved != 1 {
		t.Fatalf("duplicate should count as not moved, got %+v", progress)
	}

	kept, found, _ := store.GetPosition(ctx, entities.VisibilityPublic, "pos-surviving")
	if !found {
		t.Fatalf("surviving position missing")
	}
	if kept.StatementText != "kept statement" {
		t.Fatalf("losing statement should fill the empty surviving field, got %q", kept.StatementText)
	}
	if kept.Stance != entities.StanceSupport {
		t.Fatalf("surviving ranked stance must stand, got %s", kept.Stance)
	}
	if _, found, _ := store.GetPosition(ctx, entities.VisibilityPublic, "pos-losing"); found {
		t.Fatalf("losing position must be deleted after merge")
	}
}

func TestMoveBallotItemPositionsCountsPerItemFailures(t *testing.T) {
	store := memory.NewStore(nil)
	reassign := newReassignUseCase(store)
	ctx := context.Background()

	for _, position := range []entities.Position{
		orgPosition("pos-ok", "org-1", "cand-losing", "SUPPORT"),
		orgPosition("pos-bad", "org-2", "cand-losing", "OPPOSE"),
	} {
		if err := store.SavePosition(ctx, position); err != nil {
			t.Fatalf("seed %s: %v", position.PositionID, err)
		}
	}
	store.FailSaveFor("pos-bad")

	progress, err := reassign.MoveBallotItemPositions(
		ctx,
		entities.CandidateItem("cand-losing"),
		entities.CandidateItem("cand-surviving"),
		entities.VisibilityPublic,
	)
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if progress.Moved != 1 || progress.Failed != 1 {
		t.Fatalf("one moved and one failed expected, got %+v", progress)
	}
}

func TestMoveBallotItemPositionsRejectsKindMismatch(t *testing.T) {
	reassign := newReassignUseCase(memory.NewStore(nil))
	_, err := reassign.MoveBallotItemPositions(
		context.Background(),
		entities.CandidateItem("cand-1"),
		entities.MeasureItem("measure-1"),
		entities.VisibilityPublic,
	)
	if err != domainerrors.ErrInvalidPositionInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestMoveOrganizationPositionsRefreshesSpeakerDisplay(t *testing.T) {
	store := memory.NewStore(nil)
	reassign := newReassignUseCase(store)
	ctx := context.Background()

	position := orgPosition("pos-1", "org-losing", "cand-1", "SUPPORT")
	position.SpeakerDisplayName = "Losing Org"
	if err := store.SavePosition(ctx, position); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store.SetSpeakerDisplay(entities.OrganizationSpeaker("org-surviving"), ports.SpeakerDisplay{
		DisplayName:   "Surviving Org",
		TwitterHandle: "surviving",
	})

	progress, err := reassign.MoveOrganizationPositions(ctx, "org-losing", "org-surviving", entities.VisibilityPublic)
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if progress.Moved != 1 {
		t.Fatalf("expected one moved, got %+v", progress)
	}

	moved, found, _ := store.GetPosition(ctx, entities.VisibilityPublic, "pos-1")
	if !found {
		t.Fatalf("moved position missing")
	}
	if org, _ := moved.Speaker.OrganizationID(); org != "org-surviving" {
		t.Fatalf("speaker not repointed, got %s", moved.Speaker.ID())
	}
	if moved.SpeakerDisplayName != "Surviving Org" {
		t.Fatalf("speaker display not refreshed, got %q", moved.SpeakerDisplayName)
	}
}

func TestMoveVoterPositionsTransfer(t *testing.T) {
	store := memory.NewStore(nil)
	reassign := newReassignUseCase(store)
	ctx := context.Background()

	if err := store.SavePosition(ctx, friendPosition("pos-1", "voter-old", "cand-1", "SUPPORT")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	progress, err := reassign.MoveVoterPositions(ctx, "voter-old", "voter-new", commands.VoterMoveTransfer, nil)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if progress.Moved != 1 {
		t.Fatalf("expected one moved, got %+v", progress)
	}

	moved, found, _ := store.GetPosition(ctx, entities.VisibilityFriendsOnly, "pos-1")
	if !found {
		t.Fatalf("moved position missing")
	}
	if moved.AuthorVoterID != "voter-new" {
		t.Fatalf("author not repointed, got %s", moved.AuthorVoterID)
	}
	if voterID, _ := moved.Speaker.VoterID(); voterID != "voter-new" {
		t.Fatalf("friend speaker not repointed, got %s", moved.Speaker.ID())
	}
}

func TestMoveVoterPositionsDuplicateRequiresEmptyDestination(t *testing.T) {
	store := memory.NewStore(nil)
	reassign := newReassignUseCase(store)
	ctx := context.Background()

	if err := store.SavePosition(ctx, friendPosition("pos-src", "voter-old", "cand-1", "SUPPORT")); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	if err := store.SavePosition(ctx, friendPosition("pos-dst", "voter-new", "cand-2", "OPPOSE")); err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	progress, err := reassign.MoveVoterPositions(ctx, "voter-old", "voter-new", commands.VoterMoveDuplicate, store)
	if err != nil {
		t.Fatalf("duplicate move failed: %v", err)
	}
	if progress.Moved != 0 || progress.NotMoved != 1 {
		t.Fatalf("occupied destination must refuse the copy, got %+v", progress)
	}
	if _, found, _ := store.GetPosition(ctx, entities.VisibilityFriendsOnly, "pos-src"); !found {
		t.Fatalf("source must remain untouched when copy is refused")
	}
}

func TestMoveVoterPositionsDuplicateCopiesWithNewIDs(t *testing.T) {
	store := memory.NewStore(nil)
	reassign := newReassignUseCase(store)
	ctx := context.Background()

	if err := store.SavePosition(ctx, friendPosition("pos-src", "voter-old", "cand-1", "SUPPORT")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	progress, err := reassign.MoveVoterPositions(ctx, "voter-old", "voter-new", commands.VoterMoveDuplicate, store)
	if err != nil {
		t.Fatalf("duplicate move failed: %v", err)
	}
	if progress.Moved != 1 {
		t.Fatalf("expected one copy, got %+v", progress)
	}

	if _, found, _ := store.GetPosition(ctx, entities.VisibilityFriendsOnly, "pos-src"); !found {
		t.Fatalf("duplicate mode must keep the source position")
	}
	copies, _ := store.ListByAuthorVoter(ctx, entities.VisibilityFriendsOnly, "voter-new")
	if len(copies) != 1 {
		t.Fatalf("expected one copied position, got %d", len(copies))
	}
	if copies[0].PositionID == "pos-src" {
		t.Fatalf("copy must carry a fresh position id")
	}
}
