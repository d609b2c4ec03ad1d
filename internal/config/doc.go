// Package config defines the bootstrap settings and helpers to build them
// from defaults, an optional YAML file and environment overrides.
//
// The Config type replaces the handful of constants an operator would
// otherwise edit by hand: release version, listen port, auth password and
// retry budget.
package config
