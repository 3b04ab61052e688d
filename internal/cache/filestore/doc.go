// Package filestore implements cache.Store on top of the local filesystem.
//
// Each key maps to one file:
//
//	<root>/<sha1[0:2]>/<sha1[2:4]>/<sha1>      sha1 = SHA-1(prefix + key), hex
//
// and each file holds a 10-digit ASCII absolute expiry (Unix seconds,
// 9999999999 = never) followed by the serialized value. The layout is
// bit-compatible with caches written by other implementations of the same
// format.
//
// Reads take a shared flock, writes an exclusive one; both are released when
// the file is closed. Expired entries are removed lazily when read.
// Increment/Decrement hold an in-process per-path mutex and an exclusive
// flock across the whole read-modify-write, so concurrent increments never
// lose updates. IfPut is atomic between goroutines of one process only:
// separate processes sharing a root may both observe absence and both write.
package filestore
