// Package cache defines the key-value cache contract shared by every backend,
// the on-disk/on-bucket payload format (a 10-digit ASCII expiry header
// followed by the serialized value), and Chain, which composes an ordered
// list of stores into one: reads fall through until the first hit, writes,
// deletes, flushes and prefix changes are broadcast to every store.
//
// Backends live in sub-packages (filestore, boltstore, memstore) and register
// themselves by driver key so the config layer can open them by name.
// Read-path failures always degrade to a cache miss; write-path and
// construction failures are returned to the caller.
package cache
