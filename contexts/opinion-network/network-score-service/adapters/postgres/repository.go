package postgresadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
	"ballotnet/contexts/opinion-network/network-score-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	publicPositionsTable      = "public_positions"
	friendsOnlyPositionsTable = "friends_only_positions"

	stanceSupport = "SUPPORT"
	stanceOppose  = "OPPOSE"
)

// Repository persists the network score cache and reads position rows as
// projections. The position tables belong to the position service; this
// repository only ever selects from them.
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

func (r *Repository) ReplaceEntries(
	ctx context.Context,
	voterID string,
	ballotItem entities.BallotItemKey,
	entries []entities.NetworkScoreEntry,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("voter_id = ? AND ballot_item_kind = ? AND ballot_item_id = ?",
				strings.TrimSpace(voterID), ballotItem.Kind, ballotItem.ID).
			Delete(&scoreEntryModel{}).
			Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		rows := make([]scoreEntryModel, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, scoreEntryModelFromEntity(entry))
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return r.logError("network_score_repo_replace_entries_failed", err,
			"voter_id", strings.TrimSpace(voterID),
			"ballot_item_kind", ballotItem.Kind,
			"ballot_item_id", ballotItem.ID,
		)
	}
	return nil
}

func (r *Repository) InsertEntries(ctx context.Context, entries []entities.NetworkScoreEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]scoreEntryModel, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, scoreEntryModelFromEntity(entry))
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "voter_id"},
			{Name: "ballot_item_kind"},
			{Name: "ballot_item_id"},
			{Name: "speaker_kind"},
			{Name: "speaker_id"},
		},
		DoNothing: true,
	}).Create(&rows)
	if create.Error != nil {
		return r.logError("network_score_repo_insert_entries_failed", create.Error,
			"entries", len(entries),
		)
	}
	return nil
}

func (r *Repository) ListEntries(
	ctx context.Context,
	voterID string,
	ballotItem entities.BallotItemKey,
) ([]entities.NetworkScoreEntry, error) {
	var rows []scoreEntryModel
	if err := r.db.WithContext(ctx).
		Where("voter_id = ? AND ballot_item_kind = ? AND ballot_item_id = ?",
			strings.TrimSpace(voterID), ballotItem.Kind, ballotItem.ID).
		Order("speaker_display_name ASC, speaker_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, r.logError("network_score_repo_list_entries_failed", err,
			"voter_id", strings.TrimSpace(voterID),
			"ballot_item_kind", ballotItem.Kind,
			"ballot_item_id", ballotItem.ID,
		)
	}
	entries := make([]entities.NetworkScoreEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntity())
	}
	return entries, nil
}

func (r *Repository) PublicPositionsByOrganizations(
	ctx context.Context,
	ballotItem entities.BallotItemKey,
	organizationIDs []string,
) ([]ports.PositionProjection, error) {
	return r.queryProjections(ctx, publicPositionsTable, "network_score_repo_public_by_orgs_failed",
		func(query *gorm.DB) *gorm.DB {
			return query.
				Where("speaker_kind = ?", string(entities.SpeakerOrganization)).
				Where("speaker_id IN ?", organizationIDs).
				Where("ballot_item_kind = ? AND ballot_item_id = ?", ballotItem.Kind, ballotItem.ID)
		})
}

func (r *Repository) FriendsOnlyPositionsByVoters(
	ctx context.Context,
	ballotItem entities.BallotItemKey,
	voterIDs []string,
) ([]ports.PositionProjection, error) {
	return r.queryProjections(ctx, friendsOnlyPositionsTable, "network_score_repo_friends_by_voters_failed",
		func(query *gorm.DB) *gorm.DB {
			return query.
				Where("speaker_kind = ?", string(entities.SpeakerFriend)).
				Where("speaker_id IN ?", voterIDs).
				Where("ballot_item_kind = ? AND ballot_item_id = ?", ballotItem.Kind, ballotItem.ID)
		})
}

func (r *Repository) PublicPositionsForOrganization(
	ctx context.Context,
	organizationID string,
) ([]ports.PositionProjection, error) {
	return r.queryProjections(ctx, publicPositionsTable, "network_score_repo_public_for_org_failed",
		func(query *gorm.DB) *gorm.DB {
			return query.
				Where("speaker_kind = ?", string(entities.SpeakerOrganization)).
				Where("speaker_id = ?", strings.TrimSpace(organizationID))
		})
}

func (r *Repository) FriendsOnlyPositionsForVoter(
	ctx context.Context,
	voterID string,
) ([]ports.PositionProjection, error) {
	return r.queryProjections(ctx, friendsOnlyPositionsTable, "network_score_repo_friends_for_voter_failed",
		func(query *gorm.DB) *gorm.DB {
			return query.
				Where("speaker_kind = ?", string(entities.SpeakerFriend)).
				Where("speaker_id = ?", strings.TrimSpace(voterID))
		})
}

// queryProjections selects ranked-stance rows only; informational and
// no-stance rows never contribute to a score.
func (r *Repository) queryProjections(
	ctx context.Context,
	table string,
	failureEvent string,
	scope func(*gorm.DB) *gorm.DB,
) ([]ports.PositionProjection, error) {
	var rows []positionProjectionModel
	query := r.db.WithContext(ctx).
		Table(table).
		Where("stance IN ?", []string{stanceSupport, stanceOppose})
	if err := scope(query).Find(&rows).Error; err != nil {
		return nil, r.logError(failureEvent, err, "table", table)
	}
	projections := make([]ports.PositionProjection, 0, len(rows))
	for _, row := range rows {
		projections = append(projections, row.toProjection())
	}
	return projections, nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("network_score_repo_reserve_event_failed", create.Error,
			"event_id", row.EventID,
		)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "opinion-network/network-score-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("network score repository operation failed", fields...)
	return err
}

type scoreEntryModel struct {
	EntryID            string    `gorm:"column:entry_id;primaryKey"`
	VoterID            string    `gorm:"column:voter_id"`
	ElectionID         string    `gorm:"column:election_id"`
	BallotItemKind     string    `gorm:"column:ballot_item_kind"`
	BallotItemID       string    `gorm:"column:ballot_item_id"`
	SpeakerKind        string    `gorm:"column:speaker_kind"`
	SpeakerID          string    `gorm:"column:speaker_id"`
	SpeakerDisplayName string    `gorm:"column:speaker_display_name"`
	IsSupport          bool      `gorm:"column:is_support"`
	ComputedAt         time.Time `gorm:"column:computed_at"`
}

func (scoreEntryModel) TableName() string {
	return "network_score_entries"
}

func scoreEntryModelFromEntity(entry entities.NetworkScoreEntry) scoreEntryModel {
	return scoreEntryModel{
		EntryID:            entry.EntryID,
		VoterID:            entry.VoterID,
		ElectionID:         entry.ElectionID,
		BallotItemKind:     entry.BallotItem.Kind,
		BallotItemID:       entry.BallotItem.ID,
		SpeakerKind:        string(entry.SpeakerKind),
		SpeakerID:          entry.SpeakerID,
		SpeakerDisplayName: entry.SpeakerDisplayName,
		IsSupport:          entry.IsSupport,
		ComputedAt:         entry.ComputedAt.UTC(),
	}
}

func (m scoreEntryModel) toEntity() entities.NetworkScoreEntry {
	return entities.NetworkScoreEntry{
		EntryID:            m.EntryID,
		VoterID:            m.VoterID,
		ElectionID:         m.ElectionID,
		BallotItem:         entities.BallotItemKey{Kind: m.BallotItemKind, ID: m.BallotItemID},
		SpeakerKind:        entities.SpeakerKind(m.SpeakerKind),
		SpeakerID:          m.SpeakerID,
		SpeakerDisplayName: m.SpeakerDisplayName,
		IsSupport:          m.IsSupport,
		ComputedAt:         m.ComputedAt,
	}
}

type positionProjectionModel struct {
	SpeakerKind        string `gorm:"column:speaker_kind"`
	SpeakerID          string `gorm:"column:speaker_id"`
	SpeakerDisplayName string `gorm:"column:speaker_display_name"`
	BallotItemKind     string `gorm:"column:ballot_item_kind"`
	BallotItemID       string `gorm:"column:ballot_item_id"`
	ElectionID         string `gorm:"column:election_id"`
	Stance             string `gorm:"column:stance"`
}

func (m positionProjectionModel) toProjection() ports.PositionProjection {
	return ports.PositionProjection{
		SpeakerKind:        entities.SpeakerKind(m.SpeakerKind),
		SpeakerID:          m.SpeakerID,
		SpeakerDisplayName: m.SpeakerDisplayName,
		BallotItem:         entities.BallotItemKey{Kind: m.BallotItemKind, ID: m.BallotItemID},
		ElectionID:         m.ElectionID,
		IsSupport:          m.Stance == stanceSupport,
	}
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "network_score_event_dedup"
}

var (
	_ ports.ScoreRepository = (*Repository)(nil)
	_ ports.PositionReader  = (*Repository)(nil)
	_ ports.EventDedupStore = (*Repository)(nil)
)
