package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestLoggingFallbackToConsole(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	if err := os.Mkdir(blocked, 0o755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.Chmod(blocked, 0o000); err != nil {
		t.Fatalf("设置目录权限失败: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(blocked, 0o755) })

	logPath := filepath.Join(blocked, "sub", "hubcache.log")
	configPath := writeConfigFile(t, fmt.Sprintf(`
LogLevel = "info"
LogFilePath = "%s"
ListenPort = 5000

[[Store]]
Name = "disk"
Driver = "file"
Path = "%s"
`, logPath, filepath.Join(dir, "storage")))

	useBufferWriters(t)
	code := run([]string{"--config", configPath, "check-config"})
	if code != 0 {
		t.Fatalf("日志 fallback 不应导致失败，得到 %d", code)
	}
	t.Log(stdErrBuffer().String())
}

func TestLoggingWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "hubcache.log")
	configPath := writeConfigFile(t, fmt.Sprintf(`
LogLevel = "info"
LogFilePath = "%s"

[[Store]]
Name = "mem"
Driver = "memory"
`, logPath))

	useBufferWriters(t)
	if code := run([]string{"--config", configPath, "check-config"}); code != 0 {
		t.Fatalf("check-config 失败: %s", stdErrBuffer().String())
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("预期创建日志文件: %v", err)
	}
}
