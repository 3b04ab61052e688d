package main

import (
	"path/filepath"
	"testing"
)

// configFixture 返回 internal/config/testdata 下 TOML 样例的绝对路径。
// go test 以包目录（即模块根目录）为工作目录运行 main 包的测试。
func configFixture(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("internal", "config", "testdata", name))
	if err != nil {
		t.Fatalf("无法解析配置样例 %s: %v", name, err)
	}
	return path
}
