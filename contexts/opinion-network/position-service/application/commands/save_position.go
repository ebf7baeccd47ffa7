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

// SavePositionUseCase is the only sanctioned write path for new opinions.
// It upserts on the natural (speaker, ballot item, election, visibility) key
// so the partition uniqueness invariant cannot be violated by concurrent
// callers racing on create.
type SavePositionUseCase struct {
	Positions ports.PositionRepository
	Resolver  ports.EntityResolver
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

type SavePositionCommand struct {
	Speaker       entities.SpeakerRef
	BallotItem    entities.BallotItemRef
	ElectionID    string
	Visibility    entities.Visibility
	Stance        string
	StatementText string
	StatementHTML string
	MoreInfoURL   string
	AuthorVoterID string
}

type SavePositionResult struct {
	Position entities.Position
	Created  bool
}

func (u SavePositionUseCase) SavePosition(ctx context.Context, cmd SavePositionCommand) (SavePositionResult, error) {
	if err := validateSaveCommand(cmd); err != nil {
		return SavePositionResult{}, err
	}

	now := resolveNow(u.Clock)
	stance := entities.NormalizeStance(cmd.Stance)

	existing, found, err := u.Positions.FindByIdentity(ctx, cmd.Visibility, cmd.Speaker, cmd.BallotItem, strings.TrimSpace(cmd.ElectionID))
	if err != nil {
		return SavePositionResult{}, err
	}

	var position entities.Position
	created := false
	if found {
		position = existing
		// Mutable fields only; an empty input never blanks a stored value.
		if strings.TrimSpace(cmd.Stance) != "" {
			position.Stance = stance
		}
		if strings.TrimSpace(cmd.StatementText) != "" {
			position.StatementText = cmd.StatementText
		}
		if strings.TrimSpace(cmd.StatementHTML) != "" {
			position.StatementHTML = cmd.StatementHTML
		}
		if strings.TrimSpace(cmd.MoreInfoURL) != "" {
			position.MoreInfoURL = strings.TrimSpace(cmd.MoreInfoURL)
		}
	} else {
		positionID, idErr := u.IDGen.NewID(ctx)
		if idErr != nil {
			return SavePositionResult{}, idErr
		}
		position = entities.Position{
			PositionID:    positionID,
			Speaker:       cmd.Speaker,
			BallotItem:    cmd.BallotItem,
			ElectionID:    strings.TrimSpace(cmd.ElectionID),
			Visibility:    cmd.Visibility,
			Stance:        stance,
			StatementText: cmd.StatementText,
			StatementHTML: cmd.StatementHTML,
			MoreInfoURL:   strings.TrimSpace(cmd.MoreInfoURL),
			AuthorVoterID: resolveAuthorVoter(cmd),
			EnteredAt:     now,
		}
		created = true
	}

	if _, err := applyDisplayFields(ctx, u.Resolver, &position, nil); err != nil {
		return SavePositionResult{}, err
	}
	position.Touch(now)

	if err := u.Positions.SavePosition(ctx, position); err != nil {
		return SavePositionResult{}, err
	}

	if err := u.appendSavedEvent(ctx, position, created, now); err != nil {
		return SavePositionResult{}, err
	}

	application.ResolveLogger(u.Logger).Info("position saved",
		"event", "position_saved",
		"module", "opinion-network/position-service",
		"layer", "application",
		"position_id", position.PositionID,
		"speaker_kind", string(position.Speaker.Kind()),
		"ballot_item_kind", string(position.BallotItem.Kind()),
		"visibility", string(position.Visibility),
		"stance", string(position.Stance),
		"created", created,
	)
	return SavePositionResult{Position: position, Created: created}, nil
}

func (u SavePositionUseCase) appendSavedEvent(
	ctx context.Context,
	position entities.Position,
	created bool,
	occurredAt time.Time,
) error {
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
		"created":          created,
	})
	if err != nil {
		return err
	}
	return u.Outbox.AppendOutbox(ctx, envelope)
}

func validateSaveCommand(cmd SavePositionCommand) error {
	if cmd.Speaker.IsZero() || cmd.BallotItem.IsZero() || strings.TrimSpace(cmd.ElectionID) == "" {
		return domainerrors.ErrInvalidPositionInput
	}
	if !cmd.Visibility.Valid() {
		return domainerrors.ErrInvalidVisibility
	}
	// A voter speaking as themselves is a friends-only concept; public rows
	// come from organizations or public figures.
	if _, isFriend := cmd.Speaker.VoterID(); isFriend && cmd.Visibility != entities.VisibilityFriendsOnly {
		return domainerrors.ErrInvalidVisibility
	}
	if cmd.Visibility == entities.VisibilityFriendsOnly {
		if _, isFriend := cmd.Speaker.VoterID(); !isFriend {
			return domainerrors.ErrInvalidVisibility
		}
	}
	return nil
}

func resolveAuthorVoter(cmd SavePositionCommand) string {
	if voterID, ok := cmd.Speaker.VoterID(); ok {
		return voterID
	}
	return strings.TrimSpace(cmd.AuthorVoterID)
}
