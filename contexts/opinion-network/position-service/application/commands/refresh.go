package commands

import (
	"context"
	"log/slog"

	application "ballotnet/contexts/opinion-network/position-service/application"
	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/position-service/domain/errors"
	"ballotnet/contexts/opinion-network/position-service/ports"
)

// RefreshUseCase recomputes the denormalized speaker/ballot-item display
// fields cached on a position. Callers doing batch passes hand in pre-fetched
// lookups so each upstream entity is resolved once.
type RefreshUseCase struct {
	Positions ports.PositionRepository
	Resolver  ports.EntityResolver
	Clock     ports.Clock
	Logger    *slog.Logger
}

type RefreshCommand struct {
	Visibility entities.Visibility
	PositionID string
	Lookups    *ports.DisplayLookups
}

type RefreshResult struct {
	Position entities.Position
	Changed  bool
}

func (u RefreshUseCase) RefreshCachedDisplayFields(ctx context.Context, cmd RefreshCommand) (RefreshResult, error) {
	if !cmd.Visibility.Valid() {
		return RefreshResult{}, domainerrors.ErrInvalidVisibility
	}
	position, found, err := u.Positions.GetPosition(ctx, cmd.Visibility, cmd.PositionID)
	if err != nil {
		return RefreshResult{}, err
	}
	if !found {
		return RefreshResult{}, domainerrors.ErrPositionNotFound
	}

	changed, err := applyDisplayFields(ctx, u.Resolver, &position, cmd.Lookups)
	if err != nil {
		return RefreshResult{}, err
	}
	if !changed {
		return RefreshResult{Position: position}, nil
	}

	position.Touch(resolveNow(u.Clock))
	if err := u.Positions.SavePosition(ctx, position); err != nil {
		return RefreshResult{}, err
	}
	application.ResolveLogger(u.Logger).Debug("position display cache refreshed",
		"event", "position_display_cache_refreshed",
		"module", "opinion-network/position-service",
		"layer", "application",
		"position_id", position.PositionID,
	)
	return RefreshResult{Position: position, Changed: true}, nil
}

// applyDisplayFields mutates the position's cached display fields in place
// and reports whether anything changed. Unknown entities leave the existing
// cache untouched rather than blanking it.
func applyDisplayFields(
	ctx context.Context,
	resolver ports.EntityResolver,
	position *entities.Position,
	lookups *ports.DisplayLookups,
) (bool, error) {
	changed := false

	speaker, found, err := lookupSpeakerDisplay(ctx, resolver, position.Speaker, lookups)
	if err != nil {
		return false, err
	}
	if found {
		if speaker.DisplayName != "" && speaker.DisplayName != position.SpeakerDisplayName {
			position.SpeakerDisplayName = speaker.DisplayName
			changed = true
		}
		if speaker.ImageURL != "" && speaker.ImageURL != position.SpeakerImageURL {
			position.SpeakerImageURL = speaker.ImageURL
			changed = true
		}
		if speaker.TwitterHandle != "" && speaker.TwitterHandle != position.SpeakerTwitterHandle {
			position.SpeakerTwitterHandle = speaker.TwitterHandle
			changed = true
		}
	}

	item, found, err := lookupBallotItemDisplay(ctx, resolver, position.BallotItem, lookups)
	if err != nil {
		return false, err
	}
	if found {
		if item.DisplayName != "" && item.DisplayName != position.BallotItemDisplayName {
			position.BallotItemDisplayName = item.DisplayName
			changed = true
		}
		if item.ImageURL != "" && item.ImageURL != position.BallotItemImageURL {
			position.BallotItemImageURL = item.ImageURL
			changed = true
		}
	}
	return changed, nil
}

func lookupSpeakerDisplay(
	ctx context.Context,
	resolver ports.EntityResolver,
	speaker entities.SpeakerRef,
	lookups *ports.DisplayLookups,
) (ports.SpeakerDisplay, bool, error) {
	if lookups != nil && lookups.Speakers != nil {
		if display, ok := lookups.Speakers[speaker]; ok {
			return display, true, nil
		}
	}
	if resolver == nil {
		return ports.SpeakerDisplay{}, false, nil
	}
	return resolver.SpeakerDisplay(ctx, speaker)
}

func lookupBallotItemDisplay(
	ctx context.Context,
	resolver ports.EntityResolver,
	ballotItem entities.BallotItemRef,
	lookups *ports.DisplayLookups,
) (ports.BallotItemDisplay, bool, error) {
	if lookups != nil && lookups.BallotItems != nil {
		if display, ok := lookups.BallotItems[ballotItem]; ok {
			return display, true, nil
		}
	}
	if resolver == nil {
		return ports.BallotItemDisplay{}, false, nil
	}
	return resolver.BallotItemDisplay(ctx, ballotItem)
}
