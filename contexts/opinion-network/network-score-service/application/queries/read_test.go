package queries_test

import (
	"context"
	"testing"
	"time"

	"ballotnet/contexts/opinion-network/network-score-service/adapters/memory"
	"ballotnet/contexts/opinion-network/network-score-service/application/commands"
	"ballotnet/contexts/opinion-network/network-score-service/application/queries"
	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/network-score-service/domain/errors"
)

func cachedEntry(id string, voterID string, item entities.BallotItemKey, electionID string, kind entities.SpeakerKind, speakerID string, support bool) entities.NetworkScoreEntry {
	return entities.NetworkScoreEntry{
		EntryID:            id,
		VoterID:            voterID,
		ElectionID:         electionID,
		BallotItem:         item,
		SpeakerKind:        kind,
		SpeakerID:          speakerID,
		SpeakerDisplayName: speakerID,
		IsSupport:          support,
		ComputedAt:         time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNetworkScorePartitionsByAdvocacy(t *testing.T) {
	store := memory.NewStore()
	item := entities.NewBallotItemKey("candidate", "cand-1")
	entries := []entities.NetworkScoreEntry{
		cachedEntry("e-1", "voter-1", item, "election-2026", entities.SpeakerOrganization, "org-1", true),
		cachedEntry("e-2", "voter-1", item, "election-2026", entities.SpeakerOrganization, "org-2", true),
		cachedEntry("e-3", "voter-1", item, "election-2026", entities.SpeakerFriend, "voter-2", false),
	}
	if err := store.InsertEntries(context.Background(), entries); err != nil {
		t.Fatalf("seed entries: %v", err)
	}
	read := queries.ReadUseCase{Entries: store, Coordinator: commands.NewRebuildCoordinator()}

	view, err := read.NetworkScore(context.Background(), "voter-1", "election-2026", item)
	if err != nil {
		t.Fatalf("network score failed: %v", err)
	}
	if view.SupportCount != 2 || view.OpposeCount != 1 {
		t.Fatalf("expected 2 support / 1 oppose, got %d/%d", view.SupportCount, view.OpposeCount)
	}
	if len(view.Support) != 2 || len(view.Oppose) != 1 {
		t.Fatalf("counts and slices disagree: %+v", view)
	}
	if view.Oppose[0].SpeakerKind != entities.SpeakerFriend {
		t.Fatalf("expected the friend on the oppose side, got %+v", view.Oppose[0])
	}
}

func TestNetworkScoreFiltersOtherElections(t *testing.T) {
	store := memory.NewStore()
	item := entities.NewBallotItemKey("measure", "meas-1")
	entries := []entities.NetworkScoreEntry{
		cachedEntry("e-1", "voter-1", item, "election-2026", entities.SpeakerOrganization, "org-1", true),
		cachedEntry("e-2", "voter-1", item, "election-2024", entities.SpeakerOrganization, "org-2", true),
		cachedEntry("e-3", "voter-1", item, "", entities.SpeakerFriend, "voter-2", true),
	}
	if err := store.InsertEntries(context.Background(), entries); err != nil {
		t.Fatalf("seed entries: %v", err)
	}
	read := queries.ReadUseCase{Entries: store, Coordinator: commands.NewRebuildCoordinator()}

	view, err := read.NetworkScore(context.Background(), "voter-1", "election-2026", item)
	if err != nil {
		t.Fatalf("network score failed: %v", err)
	}
	// Entries without an election scope count toward every election.
	if view.SupportCount != 2 {
		t.Fatalf("expected the 2024 entry filtered out, got %d support entries", view.SupportCount)
	}
}

func TestNetworkScoreNeverTriggersRebuild(t *testing.T) {
	store := memory.NewStore()
	coordinator := commands.NewRebuildCoordinator()
	read := queries.ReadUseCase{Entries: store, Coordinator: coordinator}
	item := entities.NewBallotItemKey("candidate", "cand-1")

	view, err := read.NetworkScore(context.Background(), "voter-1", "election-2026", item)
	if err != nil {
		t.Fatalf("network score failed: %v", err)
	}
	if view.State != entities.CacheStateEmpty {
		t.Fatalf("never-built key should read as EMPTY, got %s", view.State)
	}
	if view.SupportCount != 0 || view.OpposeCount != 0 {
		t.Fatalf("never-built key should read as zero entries, got %+v", view)
	}
	if calls := store.ReplaceCalls(); calls != 0 {
		t.Fatalf("read path must not rebuild, saw %d replace calls", calls)
	}
}

func TestNetworkScoreReportsReadyState(t *testing.T) {
	store := memory.NewStore()
	coordinator := commands.NewRebuildCoordinator()
	if _, err := coordinator.RunRebuild(context.Background(), "voter-1", "election-2026", func() (commands.RebuildResult, error) {
		return commands.RebuildResult{}, nil
	}); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	read := queries.ReadUseCase{Entries: store, Coordinator: coordinator}

	state, err := read.CacheStatus(context.Background(), "voter-1", "election-2026")
	if err != nil {
		t.Fatalf("cache status failed: %v", err)
	}
	if state != entities.CacheStateReady {
		t.Fatalf("expected READY after a successful rebuild, got %s", state)
	}
	if state, _ := read.CacheStatus(context.Background(), "voter-1", "election-2024"); state != entities.CacheStateEmpty {
		t.Fatalf("other elections stay EMPTY, got %s", state)
	}
}

func TestNetworkScoreRejectsBlankKey(t *testing.T) {
	read := queries.ReadUseCase{Entries: memory.NewStore(), Coordinator: commands.NewRebuildCoordinator()}

	if _, err := read.NetworkScore(context.Background(), "", "election-2026", entities.NewBallotItemKey("candidate", "cand-1")); err != domainerrors.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for blank voter, got %v", err)
	}
	if _, err := read.NetworkScore(context.Background(), "voter-1", "election-2026", entities.BallotItemKey{}); err != domainerrors.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for zero ballot item, got %v", err)
	}
	if _, err := read.CacheStatus(context.Background(), "voter-1", ""); err != domainerrors.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for blank election, got %v", err)
	}
}
