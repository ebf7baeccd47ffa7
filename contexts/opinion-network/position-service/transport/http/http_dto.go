package httptransport

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SavePositionRequest struct {
	SpeakerKind    string `json:"speaker_kind"`
	SpeakerID      string `json:"speaker_id"`
	BallotItemKind string `json:"ballot_item_kind"`
	BallotItemID   string `json:"ballot_item_id"`
	ElectionID     string `json:"election_id"`
	Visibility     string `json:"visibility"`
	Stance         string `json:"stance"`
	StatementText  string `json:"statement_text,omitempty"`
	StatementHTML  string `json:"statement_html,omitempty"`
	MoreInfoURL    string `json:"more_info_url,omitempty"`
	AuthorVoterID  string `json:"author_voter_id,omitempty"`
}

type PositionResponse struct {
	PositionID            string `json:"position_id"`
	SpeakerKind           string `json:"speaker_kind"`
	SpeakerID             string `json:"speaker_id"`
	SpeakerDisplayName    string `json:"speaker_display_name,omitempty"`
	BallotItemKind        string `json:"ballot_item_kind"`
	BallotItemID          string `json:"ballot_item_id"`
	BallotItemDisplayName string `json:"ballot_item_display_name,omitempty"`
	ElectionID            string `json:"election_id"`
	Visibility            string `json:"visibility"`
	Stance                string `json:"stance"`
	StatementText         string `json:"statement_text,omitempty"`
	StatementHTML         string `json:"statement_html,omitempty"`
	MoreInfoURL           string `json:"more_info_url,omitempty"`
	IsSupport             bool   `json:"is_support"`
	IsOppose              bool   `json:"is_oppose"`
	IsInformationOnly     bool   `json:"is_information_only"`
	Created               bool   `json:"created,omitempty"`
	Found                 bool   `json:"found"`
}

type ToggleStanceRequest struct {
	VoterID        string `json:"voter_id"`
	BallotItemKind string `json:"ballot_item_kind"`
	BallotItemID   string `json:"ballot_item_id"`
	ElectionID     string `json:"election_id"`
	Stance         string `json:"stance"`
	On             bool   `json:"on"`
}

type MovePositionsRequest struct {
	Scope      string `json:"scope"`
	FromID     string `json:"from_id"`
	ToID       string `json:"to_id"`
	Kind       string `json:"kind,omitempty"`
	Visibility string `json:"visibility,omitempty"`
	Mode       string `json:"mode,omitempty"`
}

type MoveProgressResponse struct {
	Moved    int `json:"moved"`
	NotMoved int `json:"not_moved"`
	Failed   int `json:"failed"`
}

type MergeVoterPositionsRequest struct {
	VoterID    string `json:"voter_id"`
	Visibility string `json:"visibility"`
}

type MergeVoterPositionsResponse struct {
	Remaining []PositionResponse `json:"remaining"`
}

type StanceCountsResponse struct {
	BallotItemKind string `json:"ballot_item_kind"`
	BallotItemID   string `json:"ballot_item_id"`
	SupportCount   int    `json:"support_count"`
	OpposeCount    int    `json:"oppose_count"`
}
