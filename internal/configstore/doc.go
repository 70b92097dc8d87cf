// Package configstore owns the device identity and its remotely updatable
// metadata.
//
// The store keeps both in memory and persists them through a Repository
// (SQLite in production). Metadata is replaced wholesale on every update,
// never merged key by key, and the in-memory value always reflects the latest
// update even when persisting it failed.
//
// The store is not safe for concurrent mutation. The agent loop is its only
// caller, so no locking is done.
package configstore
