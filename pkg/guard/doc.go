// Package guard manages a pool of interchangeable credentials (API keys)
// for a single provider.
//
// Each credential is a Resource with a health score in [0, 1]. Failures
// recorded by the caller penalize the score and place the resource in a
// cooldown; health heals back toward 1.0 over time. Acquisition is scoped:
// Acquire hands out at most one holder per resource and the returned release
// function restores availability on every exit path. Penalization is never
// automatic — only an explicit Penalize call records a failure, so a caller
// that errors out for unrelated reasons does not damage a healthy key.
package guard
