package filestore

import (
	"crypto/sha1" //nolint:gosec // used for path derivation, not security
	"encoding/hex"
	"path/filepath"
)

// shardWidth 是每层分片目录使用的十六进制字符数，共两层。
const shardWidth = 2

// Path 返回 key 在当前前缀下对应的文件路径。
func (s *Store) Path(key string) string {
	return derivePath(s.root, s.Prefix(), key)
}

// derivePath 是 (root, prefix, key) 的纯函数。
func derivePath(root, prefix, key string) string {
	sum := sha1.Sum([]byte(prefix + key)) //nolint:gosec
	digest := hex.EncodeToString(sum[:])
	return filepath.Join(root, digest[:shardWidth], digest[shardWidth:2*shardWidth], digest)
}
