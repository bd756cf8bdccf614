// Package costs loads per-model pricing profiles and estimates the USD
// cost of completion requests.
//
// Profiles map provider to model to price-per-million-tokens, with an
// optional "_default" profile per provider that covers models without an
// explicit entry. The Table holds the active profiles behind a RWMutex so
// lookups stay race-free while a Watcher hot-reloads the profile file on
// change.
package costs
