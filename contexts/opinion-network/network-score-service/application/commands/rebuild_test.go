package commands_test

import (
	"context"
	"sync"
	"testing"

	"ballotnet/contexts/opinion-network/network-score-service/adapters/memory"
	"ballotnet/contexts/opinion-network/network-score-service/application/commands"
	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/network-score-service/domain/errors"
	"ballotnet/contexts/opinion-network/network-score-service/ports"
)

func newRebuildUseCase(store *memory.Store, coordinator *commands.RebuildCoordinator) commands.RebuildUseCase {
	return commands.RebuildUseCase{
		Entries:     store,
		Positions:   store,
		SocialGraph: store,
		Ballot:      store,
		Clock:       store,
		IDGen:       store,
		Coordinator: coordinator,
	}
}

func seedNetwork(store *memory.Store) entities.BallotItemKey {
	item := entities.NewBallotItemKey("candidate", "cand-1")
	store.SetFollowedOrganizations("voter-1", []string{"org-1"})
	store.SetFriends("voter-1", []string{"voter-2"})
	store.SetBallotItems("voter-1", "election-2026", []entities.BallotItemKey{item})
	store.SeedPublicPosition(ports.PositionProjection{
		SpeakerKind:        entities.SpeakerOrganization,
		SpeakerID:          "org-1",
		SpeakerDisplayName: "Civic League",
		BallotItem:         item,
		ElectionID:         "election-2026",
		IsSupport:          true,
	})
	store.SeedFriendsOnlyPosition(ports.PositionProjection{
		SpeakerKind:        entities.SpeakerFriend,
		SpeakerID:          "voter-2",
		SpeakerDisplayName: "Alex",
		BallotItem:         item,
		ElectionID:         "election-2026",
		IsSupport:          false,
	})
	return item
}

func TestRebuildDerivesEntriesFromNetwork(t *testing.T) {
	store := memory.NewStore()
	item := seedNetwork(store)
	coordinator := commands.NewRebuildCoordinator()
	rebuild := newRebuildUseCase(store, coordinator)
	ctx := context.Background()

	result, err := rebuild.Rebuild(ctx, "voter-1", "election-2026")
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if result.BallotItems != 1 || result.Entries != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if state := coordinator.State("voter-1", "election-2026"); state != entities.CacheStateReady {
		t.Fatalf("expected READY state, got %s", state)
	}

	entries, err := store.ListEntries(ctx, "voter-1", item)
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.VoterID != "voter-1" || entry.ElectionID != "election-2026" {
			t.Fatalf("entry carries wrong key %+v", entry)
		}
	}
}

func TestRebuildIncludesVoterOwnFriendsOnlyPositions(t *testing.T) {
	store := memory.NewStore()
	item := entities.NewBallotItemKey("measure", "measure-1")
	store.SetBallotItems("voter-1", "election-2026", []entities.BallotItemKey{item})
	store.SeedFriendsOnlyPosition(ports.PositionProjection{
		SpeakerKind: entities.SpeakerFriend,
		SpeakerID:   "voter-1",
		BallotItem:  item,
		ElectionID:  "election-2026",
		IsSupport:   true,
	})
	rebuild := newRebuildUseCase(store, commands.NewRebuildCoordinator())

	result, err := rebuild.Rebuild(context.Background(), "voter-1", "election-2026")
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if result.Entries != 1 {
		t.Fatalf("the voter's own opinion must count, got %+v", result)
	}
}

func TestRebuildFiltersOtherElections(t *testing.T) {
	store := memory.NewStore()
	item := entities.NewBallotItemKey("candidate", "cand-1")
	store.SetFollowedOrganizations("voter-1", []string{"org-1"})
	store.SetBallotItems("voter-1", "election-2026", []entities.BallotItemKey{item})
	store.SeedPublicPosition(ports.PositionProjection{
		SpeakerKind: entities.SpeakerOrganization,
		SpeakerID:   "org-1",
		BallotItem:  item,
		ElectionID:  "election-2024",
		IsSupport:   true,
	})
	// An election-unscoped position always qualifies.
	store.SeedPublicPosition(ports.PositionProjection{
		SpeakerKind: entities.SpeakerOrganization,
		SpeakerID:   "org-1",
		BallotItem:  item,
		ElectionID:  "",
		IsSupport:   true,
	})
	rebuild := newRebuildUseCase(store, commands.NewRebuildCoordinator())

	result, err := rebuild.Rebuild(context.Background(), "voter-1", "election-2026")
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if result.Entries != 1 {
		t.Fatalf("only in-scope positions may materialize, got %+v", result)
	}
}

func TestRebuildReplacesStaleEntries(t *testing.T) {
	store := memory.NewStore()
	item := seedNetwork(store)
	rebuild := newRebuildUseCase(store, commands.NewRebuildCoordinator())
	ctx := context.Background()

	if _, err := rebuild.Rebuild(ctx, "voter-1", "election-2026"); err != nil {
		t.Fatalf("first rebuild failed: %v", err)
	}

	// The voter unfollows the organization; the next rebuild must not keep
	// the stale organization entry.
	store.SetFollowedOrganizations("voter-1", nil)
	result, err := rebuild.Rebuild(ctx, "voter-1", "election-2026")
	if err != nil {
		t.Fatalf("second rebuild failed: %v", err)
	}
	if result.Entries != 1 {
		t.Fatalf("stale entries must be replaced, got %+v", result)
	}
	entries, _ := store.ListEntries(ctx, "voter-1", item)
	if len(entries) != 1 || entries[0].SpeakerKind != entities.SpeakerFriend {
		t.Fatalf("only the friend entry should survive, got %+v", entries)
	}
}

func TestRebuildFailureLeavesKeyEmpty(t *testing.T) {
	store := memory.NewStore()
	seedNetwork(store)
	store.FailReplaceFor("cand-1")
	coordinator := commands.NewRebuildCoordinator()
	rebuild := newRebuildUseCase(store, coordinator)

	if _, err := rebuild.Rebuild(context.Background(), "voter-1", "election-2026"); err == nil {
		t.Fatalf("expected rebuild to fail")
	}
	if state := coordinator.State("voter-1", "election-2026"); state != entities.CacheStateEmpty {
		t.Fatalf("failed rebuild must fall back to EMPTY, got %s", state)
	}
}

func TestRebuildRejectsBlankKey(t *testing.T) {
	rebuild := newRebuildUseCase(memory.NewStore(), commands.NewRebuildCoordinator())
	if _, err := rebuild.Rebuild(context.Background(), " ", "election-2026"); err != domainerrors.ErrInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestConcurrentRebuildsCollapse(t *testing.T) {
	coordinator := commands.NewRebuildCoordinator()
	ctx := context.Background()

	var mu sync.Mutex
	runs := 0
	gate := make(chan struct{})
	release := make(chan struct{})

	run := func() (commands.RebuildResult, error) {
		mu.Lock()
		runs++
		first := runs == 1
		mu.Unlock()
		if first {
			close(gate)
			<-release
		}
		return commands.RebuildResult{Entries: 7}, nil
	}

	first := make(chan commands.RebuildResult, 1)
	go func() {
		result, _ := coordinator.RunRebuild(ctx, "voter-1", "election-2026", run)
		first <- result
	}()
	<-gate

	if state := coordinator.State("voter-1", "election-2026"); state != entities.CacheStateBuilding {
		t.Fatalf("expected BUILDING while in flight, got %s", state)
	}

	const followers = 7
	started := make(chan struct{}, followers)
	var wg sync.WaitGroup
	wg.Add(followers)
	for i := 0; i < followers; i++ {
		go func() {
			defer wg.Done()
			started <- struct{}{}
			result, err := coordinator.RunRebuild(ctx, "voter-1", "election-2026", run)
			if err != nil {
				t.Errorf("follower rebuild failed: %v", err)
			}
			if result.Entries != 7 {
				t.Errorf("follower did not share the in-flight outcome, got %+v", result)
			}
		}()
	}
	for i := 0; i < followers; i++ {
		<-started
	}

	close(release)
	wg.Wait()
	<-first

	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Fatalf("concurrent rebuilds of one key must collapse to one run, got %d", runs)
	}
}
