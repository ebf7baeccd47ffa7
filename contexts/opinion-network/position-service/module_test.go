package positionservice_test

import (
	"context"
	"testing"

	positionservice "ballotnet/contexts/opinion-network/position-service"
	httptransport "ballotnet/contexts/opinion-network/position-service/transport/http"
)

func TestSaveThenRetrieveRoundTrip(t *testing.T) {
	module := positionservice.NewInMemoryModule(nil, nil)
	ctx := context.Background()

	saved, err := module.Handler.SavePositionHandler(ctx, httptransport.SavePositionRequest{
		SpeakerKind:    "organization",
		SpeakerID:      "org-1",
		BallotItemKind: "candidate",
		BallotItemID:   "cand-1",
		ElectionID:     "election-2026",
		Visibility:     "public",
		Stance:         "SUPPORT",
		StatementText:  "endorsed after the forum",
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !saved.Created || !saved.IsSupport {
		t.Fatalf("unexpected save response %+v", saved)
	}

	got, err := module.Handler.RetrievePositionHandler(ctx, "public", saved.PositionID)
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if !got.Found || got.StatementText != "endorsed after the forum" {
		t.Fatalf("unexpected retrieve response %+v", got)
	}
}

func TestStanceCountsCoverPublicPartitionOnly(t *testing.T) {
	module := positionservice.NewInMemoryModule(nil, nil)
	ctx := context.Background()

	for _, req := range []httptransport.SavePositionRequest{
		{SpeakerKind: "organization", SpeakerID: "org-1", BallotItemKind: "measure", BallotItemID: "measure-1", ElectionID: "election-2026", Visibility: "public", Stance: "SUPPORT"},
		{SpeakerKind: "organization", SpeakerID: "org-2", BallotItemKind: "measure", BallotItemID: "measure-1", ElectionID: "election-2026", Visibility: "public", Stance: "OPPOSE"},
		{SpeakerKind: "organization", SpeakerID: "org-3", BallotItemKind: "measure", BallotItemID: "measure-1", ElectionID: "election-2026", Visibility: "public", Stance: "INFO_ONLY"},
	} {
		if _, err := module.Handler.SavePositionHandler(ctx, req); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if _, err := module.Handler.ToggleStanceHandler(ctx, httptransport.ToggleStanceRequest{
		VoterID:        "voter-1",
		BallotItemKind: "measure",
		BallotItemID:   "measure-1",
		ElectionID:     "election-2026",
		Stance:         "SUPPORT",
		On:             true,
	}); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	counts, err := module.Handler.StanceCountsHandler(ctx, "measure", "measure-1")
	if err != nil {
		t.Fatalf("counts failed: %v", err)
	}
	if counts.SupportCount != 1 || counts.OpposeCount != 1 {
		t.Fatalf("friends-only and informational rows must not count, got %+v", counts)
	}
}

func TestMergeVoterPositionsViaHandler(t *testing.T) {
	module := positionservice.NewInMemoryModule(nil, nil)
	ctx := context.Background()

	// Two toggles on the same candidate under different election scoping
	// produce the duplicate shape the merge pass collapses.
	if _, err := module.Handler.ToggleStanceHandler(ctx, httptransport.ToggleStanceRequest{
		VoterID:        "voter-1",
		BallotItemKind: "candidate",
		BallotItemID:   "cand-1",
		ElectionID:     "election-2026",
		Stance:         "SUPPORT",
		On:             true,
	}); err != nil {
		t.Fatalf("first toggle failed: %v", err)
	}
	if _, err := module.Handler.ToggleStanceHandler(ctx, httptransport.ToggleStanceRequest{
		VoterID:        "voter-1",
		BallotItemKind: "candidate",
		BallotItemID:   "cand-1",
		Stance:         "SUPPORT",
		On:             true,
	}); err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}

	merged, err := module.Handler.MergeVoterPositionsHandler(ctx, httptransport.MergeVoterPositionsRequest{
		VoterID:    "voter-1",
		Visibility: "friends_only",
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(merged.Remaining) != 1 {
		t.Fatalf("expected one surviving position, got %d", len(merged.Remaining))
	}
}

func TestMovePositionsHandlerVoterScope(t *testing.T) {
	module := positionservice.NewInMemoryModule(nil, nil)
	ctx := context.Background()

	if _, err := module.Handler.ToggleStanceHandler(ctx, httptransport.ToggleStanceRequest{
		VoterID:        "voter-old",
		BallotItemKind: "candidate",
		BallotItemID:   "cand-1",
		ElectionID:     "election-2026",
		Stance:         "SUPPORT",
		On:             true,
	}); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	progress, err := module.Handler.MovePositionsHandler(ctx, httptransport.MovePositionsRequest{
		Scope:  "voter",
		FromID: "voter-old",
		ToID:   "voter-new",
		Mode:   "transfer",
	})
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if progress.Moved != 1 {
		t.Fatalf("expected one moved position, got %+v", progress)
	}
}
