// Package config loads and merges dealcache configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (DEALCACHE_CACHE_DIR, DEALCACHE_LOG_LEVEL, etc.)
//  3. Config file ($XDG_CONFIG_HOME/dealcache/config.json, or DEALCACHE_CONFIG)
//  4. Built-in defaults
//
// Config files ending in .yaml or .yml are read and written as YAML; anything
// else is JSON. The cache TTL table is merged per category, so a file only
// needs to list the lifetimes it changes.
//
// Use [Load] to obtain a merged [Config], [Save] to write a config file, and
// [SetField] to update a single key.
package config
