package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	"ballotnet/contexts/opinion-network/position-service/ports"

	"gorm.io/gorm"
)

// Resolver reads display data from directory projection tables maintained by
// the upstream entity services. Lookups are read-only; a missing row reads as
// not found, never as an error.
type Resolver struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewResolver(db *gorm.DB, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{db: db, logger: logger}
}

func (r *Resolver) SpeakerDisplay(
	ctx context.Context,
	speaker entities.SpeakerRef,
) (ports.SpeakerDisplay, bool, error) {
	var row speakerDirectoryModel
	err := r.db.WithContext(ctx).
		Where("speaker_kind = ? AND speaker_id = ?", string(speaker.Kind()), speaker.ID()).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.SpeakerDisplay{}, false, nil
	}
	if err != nil {
		return ports.SpeakerDisplay{}, false, r.logError("position_resolver_speaker_lookup_failed", err,
			"speaker_kind", string(speaker.Kind()),
			"speaker_id", speaker.ID(),
		)
	}
	return ports.SpeakerDisplay{
		DisplayName:   row.DisplayName,
		ImageURL:      row.ImageURL,
		TwitterHandle: row.TwitterHandle,
	}, true, nil
}

func (r *Resolver) BallotItemDisplay(
	ctx context.Context,
	ballotItem entities.BallotItemRef,
) (ports.BallotItemDisplay, bool, error) {
	var row ballotItemDirectoryModel
	err := r.db.WithContext(ctx).
		Where("ballot_item_kind = ? AND ballot_item_id = ?", string(ballotItem.Kind()), ballotItem.ID()).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.BallotItemDisplay{}, false, nil
	}
	if err != nil {
		return ports.BallotItemDisplay{}, false, r.logError("position_resolver_ballot_item_lookup_failed", err,
			"ballot_item_kind", string(ballotItem.Kind()),
			"ballot_item_id", ballotItem.ID(),
		)
	}
	return ports.BallotItemDisplay{
		DisplayName: row.DisplayName,
		ImageURL:    row.ImageURL,
	}, true, nil
}

func (r *Resolver) VoterLinkedOrganization(
	ctx context.Context,
	voterID string,
) (string, bool, error) {
	var row voterOrganizationLinkModel
	err := r.db.WithContext(ctx).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, r.logError("position_resolver_voter_link_lookup_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	if strings.TrimSpace(row.OrganizationID) == "" {
		return "", false, nil
	}
	return row.OrganizationID, true, nil
}

func (r *Resolver) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "opinion-network/position-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("position resolver lookup failed", fields...)
	return err
}

type speakerDirectoryModel struct {
	SpeakerKind   string `gorm:"column:speaker_kind;primaryKey"`
	SpeakerID     string `gorm:"column:speaker_id;primaryKey"`
	DisplayName   string `gorm:"column:display_name"`
	ImageURL      string `gorm:"column:image_url"`
	TwitterHandle string `gorm:"column:twitter_handle"`
}

func (speakerDirectoryModel) TableName() string {
	return "speaker_directory"
}

type ballotItemDirectoryModel struct {
	BallotItemKind string `gorm:"column:ballot_item_kind;primaryKey"`
	BallotItemID   string `gorm:"column:ballot_item_id;primaryKey"`
	DisplayName    string `gorm:"column:display_name"`
	ImageURL       string `gorm:"column:image_url"`
}

func (ballotItemDirectoryModel) TableName() string {
	return "ballot_item_directory"
}

type voterOrganizationLinkModel struct {
	VoterID        string `gorm:"column:voter_id;primaryKey"`
	OrganizationID string `gorm:"column:organization_id"`
}

func (voterOrganizationLinkModel) TableName() string {
	return "voter_organization_links"
}

var _ ports.EntityResolver = (*Resolver)(nil)
