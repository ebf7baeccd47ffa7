package networkscoreservice_test

import (
	"context"
	"testing"

	networkscoreservice "ballotnet/contexts/opinion-network/network-score-service"
	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
	"ballotnet/contexts/opinion-network/network-score-service/ports"
	httptransport "ballotnet/contexts/opinion-network/network-score-service/transport/http"
)

func TestRebuildThenReadThroughHandlers(t *testing.T) {
	module := networkscoreservice.NewInMemoryModule(nil)
	item := entities.NewBallotItemKey("candidate", "cand-1")
	module.Store.SetFollowedOrganizations("voter-1", []string{"org-1"})
	module.Store.SetBallotItems("voter-1", "election-2026", []entities.BallotItemKey{item})
	module.Store.SeedPublicPosition(ports.PositionProjection{
		SpeakerKind:        entities.SpeakerOrganization,
		SpeakerID:          "org-1",
		SpeakerDisplayName: "League of Voters",
		BallotItem:         item,
		ElectionID:         "election-2026",
		IsSupport:          true,
	})
	ctx := context.Background()

	rebuilt, err := module.Handler.RebuildHandler(ctx, httptransport.RebuildRequest{
		VoterID:    "voter-1",
		ElectionID: "election-2026",
	})
	if err != nil {
		t.Fatalf("rebuild handler failed: %v", err)
	}
	if rebuilt.State != string(entities.CacheStateReady) || rebuilt.Entries != 1 {
		t.Fatalf("unexpected rebuild response %+v", rebuilt)
	}

	score, err := module.Handler.NetworkScoreHandler(ctx, "voter-1", "election-2026", "candidate", "cand-1")
	if err != nil {
		t.Fatalf("network score handler failed: %v", err)
	}
	if score.SupportCount != 1 || score.OpposeCount != 0 {
		t.Fatalf("expected the followed organization on the support side, got %+v", score)
	}
	if score.Support[0].SpeakerDisplayName != "League of Voters" {
		t.Fatalf("display name must flow through, got %+v", score.Support[0])
	}

	status, err := module.Handler.CacheStatusHandler(ctx, "voter-1", "election-2026")
	if err != nil {
		t.Fatalf("cache status handler failed: %v", err)
	}
	if status.State != string(entities.CacheStateReady) {
		t.Fatalf("expected READY, got %+v", status)
	}
}

func TestReadBeforeAnyRebuildReportsEmpty(t *testing.T) {
	module := networkscoreservice.NewInMemoryModule(nil)

	score, err := module.Handler.NetworkScoreHandler(context.Background(), "voter-1", "election-2026", "measure", "meas-1")
	if err != nil {
		t.Fatalf("network score handler failed: %v", err)
	}
	if score.State != string(entities.CacheStateEmpty) {
		t.Fatalf("never-built key reads as EMPTY, got %+v", score)
	}
	if score.SupportCount != 0 || score.OpposeCount != 0 {
		t.Fatalf("never-built key reads as zero entries, got %+v", score)
	}
	if calls := module.Store.ReplaceCalls(); calls != 0 {
		t.Fatalf("reads must not rebuild, saw %d replace calls", calls)
	}
}
