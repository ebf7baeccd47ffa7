package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	domainerrors "ballotnet/contexts/opinion-network/position-service/domain/errors"
	"ballotnet/contexts/opinion-network/position-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	publicTable      = "public_positions"
	friendsOnlyTable = "friends_only_positions"
)

// Repository persists both position partitions. The partitions share a
// column shape; visibility picks the table.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func tableFor(visibility entities.Visibility) string {
	if visibility == entities.VisibilityFriendsOnly {
		return friendsOnlyTable
	}
	return publicTable
}

func (r *Repository) GetPosition(
	ctx context.Context,
	visibility entities.Visibility,
	positionID string,
) (entities.Position, bool, error) {
	var row positionModel
	err := r.db.WithContext(ctx).
		Table(tableFor(visibility)).
		Where("id = ?", strings.TrimSpace(positionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Position{}, false, nil
		}
		return entities.Position{}, false, r.logError("position_repo_get_failed", err,
			"position_id", strings.TrimSpace(positionID),
		)
	}
	return row.toEntity(visibility), true, nil
}

func (r *Repository) FindByIdentity(
	ctx context.Context,
	visibility entities.Visibility,
	speaker entities.SpeakerRef,
	ballotItem entities.BallotItemRef,
	electionID string,
) (entities.Position, bool, error) {
	tx := r.db.WithContext(ctx).
		Table(tableFor(visibility)).
		Where("speaker_kind = ?", string(speaker.Kind())).
		Where("speaker_id = ?", speaker.ID()).
		Where("ballot_item_kind = ?", string(ballotItem.Kind())).
		Where("ballot_item_id = ?", ballotItem.ID())
	if strings.TrimSpace(electionID) == "" {
		tx = tx.Where("election_id = ''")
	} else {
		tx = tx.Where("election_id = ?", strings.TrimSpace(electionID))
	}

	var row positionModel
	err := tx.Order("last_changed_at DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Position{}, false, nil
		}
		return entities.Position{}, false, r.logError("position_repo_find_by_identity_failed", err,
			"speaker_id", speaker.ID(),
			"ballot_item_id", ballotItem.ID(),
		)
	}
	return row.toEntity(visibility), true, nil
}

func (r *Repository) SavePosition(ctx context.Context, position entities.Position) error {
	row := positionModelFromEntity(position)
	create := r.db.WithContext(ctx).
		Table(tableFor(position.Visibility)).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"speaker_kind":             row.SpeakerKind,
				"speaker_id":               row.SpeakerID,
				"ballot_item_kind":         row.BallotItemKind,
				"ballot_item_id":           row.BallotItemID,
				"election_id":              row.ElectionID,
				"stance":                   row.Stance,
				"statement_text":           row.StatementText,
				"statement_html":           row.StatementHTML,
				"more_info_url":            row.MoreInfoURL,
				"author_voter_id":          row.AuthorVoterID,
				"speaker_display_name":     row.SpeakerDisplayName,
				"speaker_image_url":        row.SpeakerImageURL,
				"speaker_twitter_handle":   row.SpeakerTwitterHandle,
				"ballot_item_display_name": row.BallotItemDisplayName,
				"ballot_item_image_url":    row.BallotItemImageURL,
				"last_changed_at":          row.LastChangedAt,
			}),
		}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrDuplicateKey
		}
		return r.logError("position_repo_save_failed", create.Error,
			"position_id", strings.TrimSpace(position.PositionID),
			"visibility", string(position.Visibility),
		)
	}
	return nil
}

func (r *Repository) DeletePosition(
	ctx context.Context,
	visibility entities.Visibility,
	positionID string,
) error {
	result := r.db.WithContext(ctx).
		Table(tableFor(visibility)).
		Where("id = ?", strings.TrimSpace(positionID)).
		Delete(&positionModel{})
	if result.Error != nil {
		return r.logError("position_repo_delete_failed", result.Error,
			"position_id", strings.TrimSpace(positionID),
		)
	}
	return nil
}

func (r *Repository) ListBySpeaker(
	ctx context.Context,
	visibility entities.Visibility,
	speaker entities.SpeakerRef,
) ([]entities.Position, error) {
	var rows []positionModel
	err := r.db.WithContext(ctx).
		Table(tableFor(visibility)).
		Where("speaker_kind = ?", string(speaker.Kind())).
		Where("speaker_id = ?", speaker.ID()).
		Order("entered_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("position_repo_list_by_speaker_failed", err,
			"speaker_id", speaker.ID(),
		)
	}
	return toPositionEntities(rows, visibility), nil
}

func (r *Repository) ListByAuthorVoter(
	ctx context.Context,
	visibility entities.Visibility,
	voterID string,
) ([]entities.Position, error) {
	var rows []positionModel
	err := r.db.WithContext(ctx).
		Table(tableFor(visibility)).
		Where("author_voter_id = ?", strings.TrimSpace(voterID)).
		Order("entered_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("position_repo_list_by_voter_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return toPositionEntities(rows, visibility), nil
}

func (r *Repository) ListByBallotItem(
	ctx context.Context,
	visibility entities.Visibility,
	ballotItem entities.BallotItemRef,
) ([]entities.Position, error) {
	var rows []positionModel
	err := r.db.WithContext(ctx).
		Table(tableFor(visibility)).
		Where("ballot_item_kind = ?", string(ballotItem.Kind())).
		Where("ballot_item_id = ?", ballotItem.ID()).
		Order("entered_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("position_repo_list_by_ballot_item_failed", err,
			"ballot_item_id", ballotItem.ID(),
		)
	}
	return toPositionEntities(rows, visibility), nil
}

func (r *Repository) CountByAuthorVoter(
	ctx context.Context,
	visibility entities.Visibility,
	voterID string,
) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table(tableFor(visibility)).
		Where("author_voter_id = ?", strings.TrimSpace(voterID)).
		Count(&count).Error
	if err != nil {
		return 0, r.logError("position_repo_count_by_voter_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return int(count), nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := marshalEnvelope(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if create.Error != nil {
		return r.logError("position_repo_append_outbox_failed", create.Error,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("position_repo_list_pending_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	update := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if update.Error != nil {
		return r.logError("position_repo_mark_outbox_published_failed", update.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "opinion-network/position-service",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("position repository operation failed", fields...)
	return err
}

type positionModel struct {
	ID                    string    `gorm:"column:id;primaryKey"`
	SpeakerKind           string    `gorm:"column:speaker_kind"`
	SpeakerID             string    `gorm:"column:speaker_id"`
	BallotItemKind        string    `gorm:"column:ballot_item_kind"`
	BallotItemID          string    `gorm:"column:ballot_item_id"`
	ElectionID            string    `gorm:"column:election_id"`
	Stance                string    `gorm:"column:stance"`
	StatementText         string    `gorm:"column:statement_text"`
	StatementHTML         string    `gorm:"column:statement_html"`
	MoreInfoURL           string    `gorm:"column:more_info_url"`
	AuthorVoterID         string    `gorm:"column:author_voter_id"`
	SpeakerDisplayName    string    `gorm:"column:speaker_display_name"`
	SpeakerImageURL       string    `gorm:"column:speaker_image_url"`
	SpeakerTwitterHandle  string    `gorm:"column:speaker_twitter_handle"`
	BallotItemDisplayName string    `gorm:"column:ballot_item_display_name"`
	BallotItemImageURL    string    `gorm:"column:ballot_item_image_url"`
	EnteredAt             time.Time `gorm:"column:entered_at"`
	LastChangedAt         time.Time `gorm:"column:last_changed_at"`
}

func positionModelFromEntity(position entities.Position) positionModel {
	row := positionModel{
		ID:                    strings.TrimSpace(position.PositionID),
		SpeakerKind:           string(position.Speaker.Kind()),
		SpeakerID:             position.Speaker.ID(),
		BallotItemKind:        string(position.BallotItem.Kind()),
		BallotItemID:          position.BallotItem.ID(),
		ElectionID:            strings.TrimSpace(position.ElectionID),
		Stance:                string(position.Stance),
		StatementText:         position.StatementText,
		StatementHTML:         position.StatementHTML,
		MoreInfoURL:           strings.TrimSpace(position.MoreInfoURL),
		AuthorVoterID:         strings.TrimSpace(position.AuthorVoterID),
		SpeakerDisplayName:    position.SpeakerDisplayName,
		SpeakerImageURL:       position.SpeakerImageURL,
		SpeakerTwitterHandle:  position.SpeakerTwitterHandle,
		BallotItemDisplayName: position.BallotItemDisplayName,
		BallotItemImageURL:    position.BallotItemImageURL,
		EnteredAt:             position.EnteredAt.UTC(),
		LastChangedAt:         position.LastChangedAt.UTC(),
	}
	if row.EnteredAt.IsZero() {
		row.EnteredAt = time.Now().UTC()
	}
	if row.LastChangedAt.IsZero() {
		row.LastChangedAt = row.EnteredAt
	}
	return row
}

func (m positionModel) toEntity(visibility entities.Visibility) entities.Position {
	return entities.Position{
		PositionID:            m.ID,
		Speaker:               speakerFromColumns(m.SpeakerKind, m.SpeakerID),
		BallotItem:            ballotItemFromColumns(m.BallotItemKind, m.BallotItemID),
		ElectionID:            m.ElectionID,
		Visibility:            visibility,
		Stance:                entities.NormalizeStance(m.Stance),
		StatementText:         m.StatementText,
		StatementHTML:         m.StatementHTML,
		MoreInfoURL:           m.MoreInfoURL,
		AuthorVoterID:         m.AuthorVoterID,
		SpeakerDisplayName:    m.SpeakerDisplayName,
		SpeakerImageURL:       m.SpeakerImageURL,
		SpeakerTwitterHandle:  m.SpeakerTwitterHandle,
		BallotItemDisplayName: m.BallotItemDisplayName,
		BallotItemImageURL:    m.BallotItemImageURL,
		EnteredAt:             m.EnteredAt.UTC(),
		LastChangedAt:         m.LastChangedAt.UTC(),
	}
}

func speakerFromColumns(kind string, id string) entities.SpeakerRef {
	switch entities.SpeakerKind(kind) {
	case entities.SpeakerOrganization:
		return entities.OrganizationSpeaker(id)
	case entities.SpeakerFriend:
		return entities.FriendSpeaker(id)
	case entities.SpeakerPublicFigure:
		return entities.PublicFigureSpeaker(id)
	default:
		return entities.SpeakerRef{}
	}
}

func ballotItemFromColumns(kind string, id string) entities.BallotItemRef {
	switch entities.BallotItemKind(kind) {
	case entities.BallotItemCandidate:
		return entities.CandidateItem(id)
	case entities.BallotItemMeasure:
		return entities.MeasureItem(id)
	case entities.BallotItemOffice:
		return entities.OfficeItem(id)
	default:
		return entities.BallotItemRef{}
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "position_outbox"
}

func toPositionEntities(rows []positionModel, visibility entities.Visibility) []entities.Position {
	items := make([]entities.Position, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity(visibility))
	}
	return items
}

func marshalEnvelope(envelope ports.EventEnvelope) ([]byte, error) {
	return json.Marshal(envelope)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.PositionRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
