// Package config defines the gateway's YAML configuration surface.
//
// Configuration loads in three phases: parse the YAML file, apply
// defaults to zero-valued fields, then validate the result. Validation
// collects every problem into a single ValidationError rather than
// stopping at the first, so a misconfigured deployment reports all of
// its issues at once. Selected fields can additionally be overridden
// through SATURN_* environment variables.
package config
