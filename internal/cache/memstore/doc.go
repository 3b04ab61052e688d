// Package memstore keeps cache entries in an in-process concurrent map.
// Values pass through the configured serializer on every write so readers
// never share mutable state with writers, and expiry follows the same
// whole-second rules as the file store. Expired entries are dropped lazily
// when a read or a compound operation touches them.
package memstore
