// Package ranking scores providers by an exponential moving average of
// observed request outcomes and orders failover candidates by that score.
//
// Providers with too few observations are ranked at a neutral default
// score so a single early failure cannot bury a provider before it has a
// meaningful history.
package ranking
