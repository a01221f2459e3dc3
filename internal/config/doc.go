// Package config loads and merges privfilter configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (PRIVFILTER_FORMAT, PRIVFILTER_FAIL_ON, etc.),
//     including those read from a .env file
//  3. Config file ($XDG_CONFIG_HOME/privfilter/config.json)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write a config file, and
// [SetField] to update a single key.
package config
