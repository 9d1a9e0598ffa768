// Package cli wires together the Cobra command tree for the dealcache binary.
//
// It defines the root command and its subcommands (cache, key, ttl, fetch,
// config, version), binds flags, reads configuration, opens the cache store,
// and returns deterministic exit codes for scripts and cron jobs.
package cli
