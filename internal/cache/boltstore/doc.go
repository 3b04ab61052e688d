// Package boltstore persists cache entries in a single bbolt database file.
//
// Each value is stored under prefix+key inside one bucket using the same
// payload layout as the file store: a 10-digit ASCII expiry header followed
// by the serialized value. Compound operations run inside a single update
// transaction, so they are atomic for every process that opens the file.
package boltstore
