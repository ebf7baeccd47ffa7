package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"
	"ballotnet/contexts/opinion-network/network-score-service/ports"

	"gorm.io/gorm"
)

// GraphReader reads social graph and ballot projection tables maintained by
// the upstream social and election services. All lookups are read-only.
type GraphReader struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGraphReader(db *gorm.DB, logger *slog.Logger) *GraphReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphReader{db: db, logger: logger}
}

func (g *GraphReader) FollowedOrganizations(ctx context.Context, voterID string) ([]string, error) {
	var rows []organizationFollowModel
	if err := g.db.WithContext(ctx).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Find(&rows).
		Error; err != nil {
		return nil, g.logError("network_score_graph_follows_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	organizationIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		organizationIDs = append(organizationIDs, row.OrganizationID)
	}
	return organizationIDs, nil
}

func (g *GraphReader) Friends(ctx context.Context, voterID string) ([]string, error) {
	var rows []voterFriendshipModel
	if err := g.db.WithContext(ctx).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		Find(&rows).
		Error; err != nil {
		return nil, g.logError("network_score_graph_friends_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	friendIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		friendIDs = append(friendIDs, row.FriendVoterID)
	}
	return friendIDs, nil
}

func (g *GraphReader) BallotItemsForVoter(
	ctx context.Context,
	voterID string,
	electionID string,
) ([]entities.BallotItemKey, error) {
	var rows []voterBallotItemModel
	if err := g.db.WithContext(ctx).
		Where("voter_id = ? AND election_id = ?", strings.TrimSpace(voterID), strings.TrimSpace(electionID)).
		Find(&rows).
		Error; err != nil {
		return nil, g.logError("network_score_graph_ballot_items_failed", err,
			"voter_id", strings.TrimSpace(voterID),
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.BallotItemKey, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.BallotItemKey{
			Kind: row.BallotItemKind,
			ID:   row.BallotItemID,
		})
	}
	return items, nil
}

func (g *GraphReader) VoterLinkedOrganization(ctx context.Context, voterID string) (string, bool, error) {
	var row voterOrganizationLinkModel
	err := g.db.WithContext(ctx).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, g.logError("network_score_graph_voter_link_failed", err,
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	if strings.TrimSpace(row.OrganizationID) == "" {
		return "", false, nil
	}
	return row.OrganizationID, true, nil
}

func (g *GraphReader) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "opinion-network/network-score-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	g.logger.Error("network score graph lookup failed", fields...)
	return err
}

type organizationFollowModel struct {
	VoterID        string `gorm:"column:voter_id;primaryKey"`
	OrganizationID string `gorm:"column:organization_id;primaryKey"`
}

func (organizationFollowModel) TableName() string {
	return "organization_follows"
}

type voterFriendshipModel struct {
	VoterID       string `gorm:"column:voter_id;primaryKey"`
	FriendVoterID string `gorm:"column:friend_voter_id;primaryKey"`
}

func (voterFriendshipModel) TableName() string {
	return "voter_friendships"
}

type voterBallotItemModel struct {
	VoterID        string `gorm:"column:voter_id;primaryKey"`
	ElectionID     string `gorm:"column:election_id;primaryKey"`
	BallotItemKind string `gorm:"column:ballot_item_kind;primaryKey"`
	BallotItemID   string `gorm:"column:ballot_item_id;primaryKey"`
}

func (voterBallotItemModel) TableName() string {
	return "voter_ballot_items"
}

type voterOrganizationLinkModel struct {
	VoterID        string `gorm:"column:voter_id;primaryKey"`
	OrganizationID string `gorm:"column:organization_id"`
}

func (voterOrganizationLinkModel) TableName() string {
	return "voter_organization_links"
}

var (
	_ ports.SocialGraphProvider = (*GraphReader)(nil)
	_ ports.BallotProvider      = (*GraphReader)(nil)
	_ ports.VoterLinkResolver   = (*GraphReader)(nil)
)
