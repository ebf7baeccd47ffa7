package entities

import (
	"strings"
	"time"
)

// SpeakerKind discriminates who a cached entry speaks for. Only
// organizations the voter follows and trusted friends are materialized.
type SpeakerKind string

const (
	SpeakerOrganization SpeakerKind = "organization"
	SpeakerFriend       SpeakerKind = "friend"
)

// BallotItemKey identifies the ballot item an entry scores.
type BallotItemKey struct {
	Kind string
	ID   string
}

func NewBallotItemKey(kind string, id string) BallotItemKey {
	return BallotItemKey{
		Kind: strings.ToLower(strings.TrimSpace(kind)),
		ID:   strings.TrimSpace(id),
	}
}

func (k BallotItemKey) IsZero() bool { return k.Kind == "" || k.ID == "" }

// NetworkScoreEntry is a derived fact: from one observing voter's point of
// view, one speaker in their network supports or opposes one ballot item.
// Entries are owned entirely by the cache; nothing else writes them.
type NetworkScoreEntry struct {
	EntryID            string
	VoterID            string
	ElectionID         string
	BallotItem         BallotItemKey
	SpeakerKind        SpeakerKind
	SpeakerID          string
	SpeakerDisplayName string
	IsSupport          bool
	ComputedAt         time.Time
}

// Key is the natural uniqueness key of an entry. SUPPORT and OPPOSE rows for
// the same key never coexist because IsSupport is a value, not part of it.
type EntryKey struct {
	VoterID     string
	BallotItem  BallotItemKey
	SpeakerKind SpeakerKind
	SpeakerID   string
}

func (e NetworkScoreEntry) Key() EntryKey {
	return EntryKey{
		VoterID:     e.VoterID,
		BallotItem:  e.BallotItem,
		SpeakerKind: e.SpeakerKind,
		SpeakerID:   e.SpeakerID,
	}
}

// CacheState is the lifecycle of one (voter, election) cache key.
type CacheState string

const (
	CacheStateEmpty    CacheState = "empty"
	CacheStateBuilding CacheState = "building"
	CacheStateReady    CacheState = "ready"
)
