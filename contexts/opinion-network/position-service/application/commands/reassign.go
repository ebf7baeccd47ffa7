package commands

import (
	"context"
	"log/slog"
	"strings"

	application "ballotnet/contexts/opinion-network/position-service/application"
	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/position-service/domain/errors"
	"ballotnet/contexts/opinion-network/position-service/ports"
)

// MoveProgress is the per-job outcome of a bulk reassignment. It replaces
// the original system's process-wide status string: every job gets its own
// counters and the caller polls or logs them.
type MoveProgress struct {
	Moved    int
	NotMoved int
	Failed   int
}

func (p MoveProgress) Total() int { return p.Moved + p.NotMoved + p.Failed }

// ReassignUseCase migrates positions from a losing entity to a surviving
// entity after an upstream merge of duplicate candidates, measures, offices,
// organizations, or voter accounts. It reuses the merge engine's field
// policies when the surviving entity already holds a matching position.
type ReassignUseCase struct {
	Positions ports.PositionRepository
	Resolver  ports.EntityResolver
	Clock     ports.Clock
	Logger    *slog.Logger
}

// MoveBallotItemPositions re-points every position in the given visibility
// scope from one ballot item to another. Per-position failures are logged
// and counted; the pass continues. A second invocation after a clean pass is
// a no-op reporting zero everywhere.
func (u ReassignUseCase) MoveBallotItemPositions(
	ctx context.Context,
	from entities.BallotItemRef,
	to entities.BallotItemRef,
	visibility entities.Visibility,
) (MoveProgress, error) {
	if from.IsZero() || to.IsZero() || from.Kind() != to.Kind() {
		return MoveProgress{}, domainerrors.ErrInvalidPositionInput
	}
	if !visibility.Valid() {
		return MoveProgress{}, domainerrors.ErrInvalidVisibility
	}

	positions, err := u.Positions.ListByBallotItem(ctx, visibility, from)
	if err != nil {
		return MoveProgress{}, err
	}
	lookups := u.prefetchBallotItem(ctx, to)

	progress := MoveProgress{}
	for _, position := range positions {
		duplicate, found, err := u.Positions.FindByIdentity(ctx, visibility, position.Speaker, to, position.ElectionID)
		if err != nil {
			progress.Failed++
			u.logMoveFailure("ballot_item", position.PositionID, err)
			continue
		}
		if found {
			if err := u.resolveDuplicate(ctx, position, duplicate, lookups); err != nil {
				progress.Failed++
				u.logMoveFailure("ballot_item", position.PositionID, err)
				continue
			}
			progress.NotMoved++
			continue
		}

		position.BallotItem = to
		if err := u.persistMoved(ctx, &position, lookups); err != nil {
			progress.Failed++
			u.logMoveFailure("ballot_item", position.PositionID, err)
			continue
		}
		progress.Moved++
	}

	u.logMoveCompleted("ballot_item", from.ID(), to.ID(), string(visibility), progress)
	return progress, nil
}

// MoveOrganizationPositions migrates every position spoken by the losing
// organization onto the surviving one, refreshing cached speaker display
// fields since the surviving organization's identity differs.
func (u ReassignUseCase) MoveOrganizationPositions(
	ctx context.Context,
	fromOrganizationID string,
	toOrganizationID string,
	visibility entities.Visibility,
) (MoveProgress, error) {
	fromOrganizationID = strings.TrimSpace(fromOrganizationID)
	toOrganizationID = strings.TrimSpace(toOrganizationID)
	if fromOrganizationID == "" || toOrganizationID == "" || fromOrganizationID == toOrganizationID {
		return MoveProgress{}, domainerrors.ErrInvalidPositionInput
	}
	if !visibility.Valid() {
		return MoveProgress{}, domainerrors.ErrInvalidVisibility
	}

	fromSpeaker := entities.OrganizationSpeaker(fromOrganizationID)
	toSpeaker := entities.OrganizationSpeaker(toOrganizationID)

	positions, err := u.Positions.ListBySpeaker(ctx, visibility, fromSpeaker)
	if err != nil {
		return MoveProgress{}, err
	}
	lookups := u.prefetchSpeaker(ctx, toSpeaker)

	progress := MoveProgress{}
	for _, position := range positions {
		duplicate, found, err := u.Positions.FindByIdentity(ctx, visibility, toSpeaker, position.BallotItem, position.ElectionID)
		if err != nil {
			progress.Failed++
			u.logMoveFailure("organization", position.PositionID, err)
			continue
		}
		if found {
			if err := u.resolveDuplicate(ctx, position, duplicate, lookups); err != nil {
				progress.Failed++
				u.logMoveFailure("organization", position.PositionID, err)
				continue
			}
			progress.NotMoved++
			continue
		}

		position.Speaker = toSpeaker
		if err := u.persistMoved(ctx, &position, lookups); err != nil {
			progress.Failed++
			u.logMoveFailure("organization", position.PositionID, err)
			continue
		}
		progress.Moved++
	}

	u.logMoveCompleted("organization", fromOrganizationID, toOrganizationID, string(visibility), progress)
	return progress, nil
}

// VoterMoveMode selects whether voter-account reassignment relocates
// positions or copies them.
type VoterMoveMode string

const (
	// VoterMoveTransfer relocates positions onto the surviving account.
	VoterMoveTransfer VoterMoveMode = "transfer"
	// VoterMoveDuplicate copies positions to the destination account and is
	// refused unless the destination partition is empty, so a freshly linked
	// account never clobbers pre-existing opinions.
	VoterMoveDuplicate VoterMoveMode = "duplicate"
)

// MoveVoterPositions handles the voter-account merge variant: both
// visibility partitions, optionally copy-instead-of-move.
func (u ReassignUseCase) MoveVoterPositions(
	ctx context.Context,
	fromVoterID string,
	toVoterID string,
	mode VoterMoveMode,
	idGen ports.IDGenerator,
) (MoveProgress, error) {
	fromVoterID = strings.TrimSpace(fromVoterID)
	toVoterID = strings.TrimSpace(toVoterID)
	if fromVoterID == "" || toVoterID == "" || fromVoterID == toVoterID {
		return MoveProgress{}, domainerrors.ErrInvalidPositionInput
	}
	if mode == "" {
		mode = VoterMoveTransfer
	}
	if mode == VoterMoveDuplicate && idGen == nil {
		return MoveProgress{}, domainerrors.ErrInvalidPositionInput
	}

	progress := MoveProgress{}
	for _, visibility := range []entities.Visibility{entities.VisibilityFriendsOnly, entities.VisibilityPublic} {
		partial, err := u.moveVoterPartition(ctx, fromVoterID, toVoterID, visibility, mode, idGen)
		if err != nil {
			return progress, err
		}
		progress.Moved += partial.Moved
		progress.NotMoved += partial.NotMoved
		progress.Failed += partial.Failed
	}

	u.logMoveCompleted("voter", fromVoterID, toVoterID, string(mode), progress)
	return progress, nil
}

func (u ReassignUseCase) moveVoterPartition(
	ctx context.Context,
	fromVoterID string,
	toVoterID string,
	visibility entities.Visibility,
	mode VoterMoveMode,
	idGen ports.IDGenerator,
) (MoveProgress, error) {
	positions, err := u.Positions.ListByAuthorVoter(ctx, visibility, fromVoterID)
	if err != nil {
		return MoveProgress{}, err
	}
	if len(positions) == 0 {
		return MoveProgress{}, nil
	}

	if mode == VoterMoveDuplicate {
		existing, err := u.Positions.CountByAuthorVoter(ctx, visibility, toVoterID)
		if err != nil {
			return MoveProgress{}, err
		}
		if existing > 0 {
			application.ResolveLogger(u.Logger).Warn("duplicate-mode copy refused, destination occupied",
				"event", "position_move_destination_occupied",
				"module", "opinion-network/position-service",
				"layer", "application",
				"from_voter_id", fromVoterID,
				"to_voter_id", toVoterID,
				"visibility", string(visibility),
				"destination_count", existing,
			)
			return MoveProgress{NotMoved: len(positions)}, nil
		}
	}

	progress := MoveProgress{}
	for _, position := range positions {
		repointed := position
		repointed.AuthorVoterID = toVoterID
		if _, isFriend := repointed.Speaker.VoterID(); isFriend {
			repointed.Speaker = entities.FriendSpeaker(toVoterID)
		}

		if mode == VoterMoveDuplicate {
			newID, err := idGen.NewID(ctx)
			if err != nil {
				progress.Failed++
				u.logMoveFailure("voter", position.PositionID, err)
				continue
			}
			repointed.PositionID = newID
			repointed.Touch(resolveNow(u.Clock))
			if err := u.Positions.SavePosition(ctx, repointed); err != nil {
				progress.Failed++
				u.logMoveFailure("voter", position.PositionID, err)
				continue
			}
			progress.Moved++
			continue
		}

		duplicate, found, err := u.Positions.FindByIdentity(ctx, visibility, repointed.Speaker, repointed.BallotItem, repointed.ElectionID)
		if err != nil {
			progress.Failed++
			u.logMoveFailure("voter", position.PositionID, err)
			continue
		}
		if found && duplicate.PositionID != position.PositionID {
			if err := u.resolveDuplicate(ctx, position, duplicate, nil); err != nil {
				progress.Failed++
				u.logMoveFailure("voter", position.PositionID, err)
				continue
			}
			progress.NotMoved++
			continue
		}

		if err := u.persistMoved(ctx, &repointed, nil); err != nil {
			progress.Failed++
			u.logMoveFailure("voter", position.PositionID, err)
			continue
		}
		progress.Moved++
	}
	return progress, nil
}

// resolveDuplicate applies the merge engine's field policy onto the
// surviving position, persists it, then deletes the losing one. Persistence
// failure leaves the losing position in place for the next pass.
func (u ReassignUseCase) resolveDuplicate(
	ctx context.Context,
	losing entities.Position,
	surviving entities.Position,
	lookups *ports.DisplayLookups,
) error {
	mergeMutableFields(losing, &surviving)
	if _, err := applyDisplayFields(ctx, u.Resolver, &surviving, lookups); err != nil {
		return err
	}
	surviving.Touch(resolveNow(u.Clock))
	if err := u.Positions.SavePosition(ctx, surviving); err != nil {
		return err
	}
	return u.Positions.DeletePosition(ctx, losing.Visibility, losing.PositionID)
}

func (u ReassignUseCase) persistMoved(
	ctx context.Context,
	position *entities.Position,
	lookups *ports.DisplayLookups,
) error {
	if _, err := applyDisplayFields(ctx, u.Resolver, position, lookups); err != nil {
		return err
	}
	position.Touch(resolveNow(u.Clock))
	return u.Positions.SavePosition(ctx, *position)
}

// prefetchBallotItem resolves the surviving ballot item once so a bulk pass
// does not hit the resolver per position.
func (u ReassignUseCase) prefetchBallotItem(ctx context.Context, item entities.BallotItemRef) *ports.DisplayLookups {
	if u.Resolver == nil {
		return nil
	}
	display, found, err := u.Resolver.BallotItemDisplay(ctx, item)
	if err != nil || !found {
		return nil
	}
	return &ports.DisplayLookups{
		BallotItems: map[entities.BallotItemRef]ports.BallotItemDisplay{item: display},
	}
}

func (u ReassignUseCase) prefetchSpeaker(ctx context.Context, speaker entities.SpeakerRef) *ports.DisplayLookups {
	if u.Resolver == nil {
		return nil
	}
	display, found, err := u.Resolver.SpeakerDisplay(ctx, speaker)
	if err != nil || !found {
		return nil
	}
	return &ports.DisplayLookups{
		Speakers: map[entities.SpeakerRef]ports.SpeakerDisplay{speaker: display},
	}
}

func (u ReassignUseCase) logMoveFailure(scope string, positionID string, err error) {
	application.ResolveLogger(u.Logger).Error("position move failed",
		"event", "position_move_item_failed",
		"module", "opinion-network/position-service",
		"layer", "application",
		"scope", scope,
		"position_id", positionID,
		"error", err.Error(),
	)
}

func (u ReassignUseCase) logMoveCompleted(scope, fromID, toID, detail string, progress MoveProgress) {
	application.ResolveLogger(u.Logger).Info("position move completed",
		"event", "position_move_completed",
		"module", "opinion-network/position-service",
		"layer", "application",
		"scope", scope,
		"from_id", fromID,
		"to_id", toID,
		"detail", detail,
		"moved", progress.Moved,
		"not_moved", progress.NotMoved,
		"failed", progress.Failed,
	)
}
