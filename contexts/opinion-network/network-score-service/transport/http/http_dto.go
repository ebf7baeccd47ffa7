package httptransport

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RebuildRequest struct {
	VoterID    string `json:"voter_id"`
	ElectionID string `json:"election_id"`
}

type RebuildResponse struct {
	VoterID     string `json:"voter_id"`
	ElectionID  string `json:"election_id"`
	State       string `json:"state"`
	BallotItems int    `json:"ballot_items"`
	Entries     int    `json:"entries"`
}

type ScoreEntryResponse struct {
	SpeakerKind        string `json:"speaker_kind"`
	SpeakerID          string `json:"speaker_id"`
	SpeakerDisplayName string `json:"speaker_display_name"`
}

type NetworkScoreResponse struct {
	VoterID        string               `json:"voter_id"`
	ElectionID     string               `json:"election_id"`
	BallotItemKind string               `json:"ballot_item_kind"`
	BallotItemID   string               `json:"ballot_item_id"`
	State          string               `json:"state"`
	SupportCount   int                  `json:"support_count"`
	OpposeCount    int                  `json:"oppose_count"`
	Support        []ScoreEntryResponse `json:"support"`
	Oppose         []ScoreEntryResponse `json:"oppose"`
}

type CacheStatusResponse struct {
	VoterID    string `json:"voter_id"`
	ElectionID string `json:"election_id"`
	State      string `json:"state"`
}
