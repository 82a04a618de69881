// Package config resolves salesmcp settings.
//
// Every key is looked up in the environment first (upper-cased), then in the
// settings file named by SETTINGS_FILE (JSON or YAML, optionally grouped
// into sections), and finally falls back to a default.
package config
