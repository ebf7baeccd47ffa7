package workers

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	followAddedTopic  = "social.follow_added"
	friendAddedTopic  = "social.friend_added"
	graphChangedTopic = "social.graph_changed"
)

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
