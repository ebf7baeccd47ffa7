// Package positionservice owns opinion records inside the opinion-network
// context.
//
// The module keeps the two visibility partitions (public and friends-only)
// consistent, upserts positions on their natural identity, merges duplicate
// opinions without losing voter-authored text, and re-points positions when
// upstream entities are merged. Business rules live in application/domain
// layers; infrastructure stays behind ports and adapters.
package positionservice
