package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "ballotnet/contexts/opinion-network/position-service/application"
	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/position-service/domain/errors"
	"ballotnet/contexts/opinion-network/position-service/ports"
)

// ToggleStanceUseCase flips a voter's own support/oppose stance on a ballot
// item. Toggling SUPPORT on while OPPOSE is recorded replaces the stance;
// toggling a stance off reverts the position to NO_STANCE without deleting
// it, so any statement text the voter wrote survives.
type ToggleStanceUseCase struct {
	Positions ports.PositionRepository
	Resolver  ports.EntityResolver
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

type ToggleStanceCommand struct {
	VoterID    string
	BallotItem entities.BallotItemRef
	ElectionID string
	Stance     string
	On         bool
}

type ToggleStanceResult struct {
	Position entities.Position
	Created  bool
}

func (u ToggleStanceUseCase) ToggleVoterStance(ctx context.Context, cmd ToggleStanceCommand) (ToggleStanceResult, error) {
	voterID := strings.TrimSpace(cmd.VoterID)
	if voterID == "" || cmd.BallotItem.IsZero() {
		return ToggleStanceResult{}, domainerrors.ErrInvalidPositionInput
	}
	stance := entities.NormalizeStance(cmd.Stance)
	if !stance.Ranked() {
		return ToggleStanceResult{}, domainerrors.ErrInvalidPositionInput
	}

	speaker := entities.FriendSpeaker(voterID)
	now := resolveNow(u.Clock)

	position, found, err := u.Positions.FindByIdentity(
		ctx, entities.VisibilityFriendsOnly, speaker, cmd.BallotItem, strings.TrimSpace(cmd.ElectionID))
	if err != nil {
		return ToggleStanceResult{}, err
	}

	created := false
	switch {
	case found && cmd.On:
		position.Stance = stance
	case found && !cmd.On:
		// Only clear when the recorded stance is the one being toggled off;
		// toggling off SUPPORT must not erase a later OPPOSE.
		if position.Stance != stance {
			return ToggleStanceResult{Position: position}, nil
		}
		position.Stance = entities.StanceNoStance
	case !found && cmd.On:
		positionID, idErr := u.IDGen.NewID(ctx)
		if idErr != nil {
			return ToggleStanceResult{}, idErr
		}
		position = entities.Position{
			PositionID:    positionID,
			Speaker:       speaker,
			BallotItem:    cmd.BallotItem,
			ElectionID:    strings.TrimSpace(cmd.ElectionID),
			Visibility:    entities.VisibilityFriendsOnly,
			Stance:        stance,
			AuthorVoterID: voterID,
			EnteredAt:     now,
		}
		created = true
	default:
		// Toggling off a stance that was never recorded is a no-op.
		return ToggleStanceResult{}, nil
	}

	if _, err := applyDisplayFields(ctx, u.Resolver, &position, nil); err != nil {
		return ToggleStanceResult{}, err
	}
	position.Touch(now)

	if err := u.Positions.SavePosition(ctx, position); err != nil {
		return ToggleStanceResult{}, err
	}
	if err := u.appendToggleEvent(ctx, position, now); err != nil {
		return ToggleStanceResult{}, err
	}

	application.ResolveLogger(u.Logger).Info("voter stance toggled",
		"event", "voter_stance_toggled",
		"module", "opinion-network/position-service",
		"layer", "application",
		"position_id", position.PositionID,
		"voter_id", voterID,
		"ballot_item_id", cmd.BallotItem.ID(),
		"stance", string(position.Stance),
		"created", created,
	)
	return ToggleStanceResult{Position: position, Created: created}, nil
}

func (u ToggleStanceUseCase) appendToggleEvent(ctx context.Context, position entities.Position, occurredAt time.Time) error {
	if u.Outbox == nil {
		return nil
	}
	eventID, err := u.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newPositionEnvelope(eventID, TopicPositionSaved, position.BallotItem.ID(), occurredAt, map[string]any{
		"position_id":      position.PositionID,
		"speaker_kind":     string(position.Speaker.Kind()),
		"speaker_id":       position.Speaker.ID(),
		"ballot_item_kind": string(position.BallotItem.Kind()),
		"ballot_item_id":   position.BallotItem.ID(),
		"election_id":      position.ElectionID,
		"visibility":       string(position.Visibility),
		"stance":           string(position.Stance),
	})
	if err != nil {
		return err
	}
	return u.Outbox.AppendOutbox(ctx, envelope)
}
