// Package networkscoreservice materializes per-voter support and oppose
// rollups inside the opinion-network context.
//
// For each (voter, election) key the module derives one entry per speaker in
// the voter's network per ballot item, rebuilt atomically per item from the
// position store and the social graph. Reads never trigger recomputation;
// rebuilds and incremental adds are explicit operations, with concurrent
// rebuilds of one key collapsed into a single run.
package networkscoreservice
