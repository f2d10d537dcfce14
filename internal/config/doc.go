// Package config loads application settings from an optional scry.yaml file
// and SCRY_ environment variables, and validates them before any component
// starts.
package config
