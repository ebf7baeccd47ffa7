package commands

import (
	"context"
	"log/slog"

	application "ballotnet/contexts/opinion-network/position-service/application"
	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	"ballotnet/contexts/opinion-network/position-service/ports"
)

// CombineReason reports how a combine request was resolved.
type CombineReason string

const (
	ReasonCombined           CombineReason = "combined"
	ReasonPreconditionFailed CombineReason = "precondition_failed"
	ReasonPersistenceFailed  CombineReason = "persistence_failed"
)

// MergeUseCase collapses positions that express the same real-world opinion
// twice: duplicate import rows, or a voter's opinion stranded across both
// visibility partitions.
type MergeUseCase struct {
	Positions ports.PositionRepository
	Resolver  ports.EntityResolver
	Clock     ports.Clock
	Logger    *slog.Logger
}

// DuplicatePair names two positions judged to express the same opinion.
type DuplicatePair struct {
	KeepPositionID    string
	DiscardPositionID string
}

// FindDuplicates scans one voter's position list pairwise. Two positions are
// duplicates when they reference the same ballot item (candidate or measure
// reference) and belong to the same opinion stream. A position claimed by an
// earlier pair is never offered again.
func (u MergeUseCase) FindDuplicates(list []entities.Position) []DuplicatePair {
	pairs := make([]DuplicatePair, 0)
	claimed := make(map[string]bool, len(list))
	for i := 0; i < len(list); i++ {
		if claimed[list[i].PositionID] {
			continue
		}
		for j := i + 1; j < len(list); j++ {
			if claimed[list[j].PositionID] {
				continue
			}
			if !isDuplicateOpinion(list[i], list[j]) {
				continue
			}
			pairs = append(pairs, DuplicatePair{
				KeepPositionID:    list[i].PositionID,
				DiscardPositionID: list[j].PositionID,
			})
			claimed[list[j].PositionID] = true
		}
	}
	return pairs
}

// Combine merges from into to and deletes from, provided the safety
// precondition holds: same ballot item, and matching voter or organization
// identity. A failed precondition returns to unchanged; it is a declined
// action, not an error. Store failures report ReasonPersistenceFailed
// alongside the error. from is deleted only after to persists.
func (u MergeUseCase) Combine(
	ctx context.Context,
	from entities.Position,
	to entities.Position,
) (entities.Position, CombineReason, error) {
	if !from.SameBallotItem(to) || !from.SameSpeakerIdentity(to) {
		return to, ReasonPreconditionFailed, nil
	}

	mergeMutableFields(from, &to)

	if _, err := applyDisplayFields(ctx, u.Resolver, &to, nil); err != nil {
		return to, ReasonPersistenceFailed, err
	}
	to.Touch(resolveNow(u.Clock))

	if err := u.Positions.SavePosition(ctx, to); err != nil {
		return to, ReasonPersistenceFailed, err
	}
	if err := u.Positions.DeletePosition(ctx, from.Visibility, from.PositionID); err != nil {
		return to, ReasonPersistenceFailed, err
	}

	application.ResolveLogger(u.Logger).Info("positions combined",
		"event", "positions_combined",
		"module", "opinion-network/position-service",
		"layer", "application",
		"kept_position_id", to.PositionID,
		"discarded_position_id", from.PositionID,
		"ballot_item_id", to.BallotItem.ID(),
	)
	return to, ReasonCombined, nil
}

// MergeDuplicatePositionsForVoter drives Combine across one voter's list and
// returns the deduplicated list. Running it on an already-deduplicated list
// is a no-op.
func (u MergeUseCase) MergeDuplicatePositionsForVoter(
	ctx context.Context,
	list []entities.Position,
) ([]entities.Position, error) {
	logger := application.ResolveLogger(u.Logger)

	surviving := make([]entities.Position, 0, len(list))
	removed := make(map[string]bool, len(list))

	for i := 0; i < len(list); i++ {
		if removed[list[i].PositionID] {
			continue
		}
		target := list[i]
		for j := i + 1; j < len(list); j++ {
			if removed[list[j].PositionID] {
				continue
			}
			if !isDuplicateOpinion(target, list[j]) {
				continue
			}
			combined, reason, err := u.Combine(ctx, list[j], target)
			if err != nil {
				logger.Error("duplicate combine failed",
					"event", "position_merge_combine_failed",
					"module", "opinion-network/position-service",
					"layer", "application",
					"kept_position_id", target.PositionID,
					"discarded_position_id", list[j].PositionID,
					"error", err.Error(),
				)
				continue
			}
			if reason != ReasonCombined {
				continue
			}
			target = combined
			// Once a position joins the removed set it can never become a
			// merge target in the same pass.
			removed[list[j].PositionID] = true
		}
		surviving = append(surviving, target)
	}
	return surviving, nil
}

// isDuplicateOpinion is the duplicate test within one voter's list: same
// candidate or measure reference, same opinion stream. Election scopes match
// when equal or when either side is unscoped.
func isDuplicateOpinion(a entities.Position, b entities.Position) bool {
	if !a.SameBallotItem(b) {
		return false
	}
	if !a.SameSpeakerIdentity(b) {
		return false
	}
	if a.ElectionID != "" && b.ElectionID != "" && a.ElectionID != b.ElectionID {
		return false
	}
	return true
}

// mergeMutableFields applies the first-non-empty-wins policy for content
// fields and the ranked-stance precedence policy. A populated target field is
// never overwritten, and a ranked target stance always stands.
func mergeMutableFields(from entities.Position, to *entities.Position) {
	if to.StatementText == "" && from.StatementText != "" {
		to.StatementText = from.StatementText
	}
	if to.StatementHTML == "" && from.StatementHTML != "" {
		to.StatementHTML = from.StatementHTML
	}
	if to.MoreInfoURL == "" && from.MoreInfoURL != "" {
		to.MoreInfoURL = from.MoreInfoURL
	}
	if !to.Stance.Ranked() && from.Stance.Ranked() {
		to.Stance = from.Stance
	}
	if to.AuthorVoterID == "" && from.AuthorVoterID != "" {
		to.AuthorVoterID = from.AuthorVoterID
	}
}
