// Package cache provides a file-backed, expiring key/value store for vendor
// API responses.
//
// Each entry lives in its own JSON file under the store's root directory,
// named by the SHA-256 hash of its key. A record carries the caller's opaque
// payload together with its creation time, TTL and absolute expiry (all in
// Unix milliseconds). Expired entries are removed lazily on read and eagerly
// by [Store.SweepExpired].
//
// The store is an optimization layer: it never returns errors. Failed writes
// are logged and dropped, and unreadable or corrupt records behave as misses.
// [Typed] adds a generic, JSON-encoded view with a singleflight-backed
// [Typed.GetOrLoad] for the usual "check cache, else fetch and store" flow.
//
// Keys are built with [DeriveKey] and lifetimes come from a [Policy] keyed by
// data category.
package cache
