package entities

import (
	"strings"
	"time"
)

// Stance is the opinion a speaker holds about a ballot item.
type Stance string

const (
	StanceSupport         Stance = "SUPPORT"
	StanceOppose          Stance = "OPPOSE"
	StanceInformationOnly Stance = "INFO_ONLY"
	StanceNoStance        Stance = "NO_STANCE"
)

// Legacy stance spellings accepted on ingest and collapsed to NO_STANCE so
// they never enter aggregation.
const (
	legacyStillDeciding = "STILL_DECIDING"
	legacyPercentRating = "PERCENT_RATING"
)

// NormalizeStance maps raw stance input to a canonical Stance. Unknown and
// legacy values become NO_STANCE.
func NormalizeStance(raw string) Stance {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(StanceSupport):
		return StanceSupport
	case string(StanceOppose):
		return StanceOppose
	case string(StanceInformationOnly), "INFORMATION_ONLY":
		return StanceInformationOnly
	case string(StanceNoStance), legacyStillDeciding, legacyPercentRating, "":
		return StanceNoStance
	default:
		return StanceNoStance
	}
}

// Ranked reports whether the stance carries advocacy weight. Only ranked
// stances survive a merge against a ranked target and only ranked stances
// are materialized into the network score cache.
func (s Stance) Ranked() bool {
	return s == StanceSupport || s == StanceOppose
}

func (s Stance) IsSupport() bool         { return s == StanceSupport }
func (s Stance) IsOppose() bool          { return s == StanceOppose }
func (s Stance) IsInformationOnly() bool { return s == StanceInformationOnly }
func (s Stance) IsNoStance() bool        { return s == StanceNoStance }

// Visibility selects the storage partition a position lives in. A position
// never changes partition except through an explicit voter-account transfer.
type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilityFriendsOnly Visibility = "friends_only"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityFriendsOnly
}

// SpeakerKind discriminates the speaker union.
type SpeakerKind string

const (
	SpeakerOrganization SpeakerKind = "organization"
	SpeakerFriend       SpeakerKind = "friend"
	SpeakerPublicFigure SpeakerKind = "public_figure"
)

// SpeakerRef identifies exactly one speaker: an organization, a voter
// speaking to friends, or a public figure. The zero value means "no speaker".
type SpeakerRef struct {
	kind SpeakerKind
	id   string
}

func OrganizationSpeaker(organizationID string) SpeakerRef {
	return SpeakerRef{kind: SpeakerOrganization, id: strings.TrimSpace(organizationID)}
}

func FriendSpeaker(voterID string) SpeakerRef {
	return SpeakerRef{kind: SpeakerFriend, id: strings.TrimSpace(voterID)}
}

func PublicFigureSpeaker(publicFigureID string) SpeakerRef {
	return SpeakerRef{kind: SpeakerPublicFigure, id: strings.TrimSpace(publicFigureID)}
}

func (r SpeakerRef) Kind() SpeakerKind { return r.kind }
func (r SpeakerRef) ID() string        { return r.id }
func (r SpeakerRef) IsZero() bool      { return r.kind == "" || r.id == "" }

func (r SpeakerRef) OrganizationID() (string, bool) {
	if r.kind != SpeakerOrganization {
		return "", false
	}
	return r.id, true
}

func (r SpeakerRef) VoterID() (string, bool) {
	if r.kind != SpeakerFriend {
		return "", false
	}
	return r.id, true
}

func (r SpeakerRef) Equal(other SpeakerRef) bool {
	return !r.IsZero() && r.kind == other.kind && r.id == other.id
}

// BallotItemKind discriminates the ballot item union.
type BallotItemKind string

const (
	BallotItemCandidate BallotItemKind = "candidate"
	BallotItemMeasure   BallotItemKind = "measure"
	BallotItemOffice    BallotItemKind = "office"
)

// BallotItemRef identifies exactly one candidate, measure, or office.
type BallotItemRef struct {
	kind BallotItemKind
	id   string
}

func CandidateItem(candidateID string) BallotItemRef {
	return BallotItemRef{kind: BallotItemCandidate, id: strings.TrimSpace(candidateID)}
}

func MeasureItem(measureID string) BallotItemRef {
	return BallotItemRef{kind: BallotItemMeasure, id: strings.TrimSpace(measureID)}
}

func OfficeItem(officeID string) BallotItemRef {
	return BallotItemRef{kind: BallotItemOffice, id: strings.TrimSpace(officeID)}
}

func (r BallotItemRef) Kind() BallotItemKind { return r.kind }
func (r BallotItemRef) ID() string           { return r.id }
func (r BallotItemRef) IsZero() bool         { return r.kind == "" || r.id == "" }

func (r BallotItemRef) Equal(other BallotItemRef) bool {
	return !r.IsZero() && r.kind == other.kind && r.id == other.id
}

// Position is a single opinion record. Friends-only rows carry the authoring
// voter in AuthorVoterID; public rows carry it when the position was entered
// through a voter account on behalf of an organization or public figure.
type Position struct {
	PositionID string
	Speaker    SpeakerRef
	BallotItem BallotItemRef
	ElectionID string
	Visibility Visibility
	Stance     Stance

	StatementText string
	StatementHTML string
	MoreInfoURL   string

	AuthorVoterID string

	SpeakerDisplayName    string
	SpeakerImageURL       string
	SpeakerTwitterHandle  string
	BallotItemDisplayName string
	BallotItemImageURL    string

	EnteredAt     time.Time
	LastChangedAt time.Time
}

func (p Position) IsSupport() bool         { return p.Stance.IsSupport() }
func (p Position) IsOppose() bool          { return p.Stance.IsOppose() }
func (p Position) IsInformationOnly() bool { return p.Stance.IsInformationOnly() }
func (p Position) IsNoStance() bool        { return p.Stance.IsNoStance() }

// SameBallotItem reports whether two positions reference the same ballot
// item, matched on whichever of the candidate or measure reference is
// populated. Office references never match for merge purposes.
func (p Position) SameBallotItem(other Position) bool {
	if p.BallotItem.IsZero() || other.BallotItem.IsZero() {
		return false
	}
	if p.BallotItem.Kind() != BallotItemCandidate && p.BallotItem.Kind() != BallotItemMeasure {
		return false
	}
	return p.BallotItem.Equal(other.BallotItem)
}

// SameSpeakerIdentity reports whether the voter references match or the
// organization references match. This is the merge safety precondition's
// actor half.
func (p Position) SameSpeakerIdentity(other Position) bool {
	if p.AuthorVoterID != "" && p.AuthorVoterID == other.AuthorVoterID {
		return true
	}
	pOrg, pOK := p.Speaker.OrganizationID()
	oOrg, oOK := other.Speaker.OrganizationID()
	return pOK && oOK && pOrg == oOrg
}

// Touch bumps LastChangedAt, keeping it monotonically non-decreasing.
func (p *Position) Touch(now time.Time) {
	now = now.UTC()
	if now.After(p.LastChangedAt) {
		p.LastChangedAt = now
	}
	if p.EnteredAt.IsZero() {
		p.EnteredAt = p.LastChangedAt
	}
}
