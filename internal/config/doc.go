// Package config loads and merges pyreview configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (PYREVIEW_PROVIDER, PYREVIEW_MAX_BYTES, PORT, etc.),
//     including values loaded from a .env file in the working directory
//  3. Config file ($XDG_CONFIG_HOME/pyreview/config.json, or $PYREVIEW_CONFIG)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write a config file, and
// [SetField] to update a single key.
package config
