// Package cache holds the two caches used by pyreview.
//
// Cache is a file-based cache for AI suggestion responses. Entries are keyed
// by a SHA-256 hash of the provider name, model, redacted source and a digest
// of the findings sent along with it. Each entry stores the raw response with
// a creation timestamp and a TTL (in seconds); expired entries are skipped on
// read and removed during cache-clear operations. The default directory is
// $XDG_CACHE_HOME/pyreview (or the OS-appropriate equivalent).
//
// Recent is an in-memory, size- and time-bounded store of recently generated
// values, backed by golang-lru's expirable LRU. It never touches disk.
package cache
