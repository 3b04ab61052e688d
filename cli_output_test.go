package main

import (
	"bytes"
	"testing"
)

// cliOutput 记录一次测试中 hubcache 命令写出的 stdout/stderr。
type cliOutput struct {
	out bytes.Buffer
	err bytes.Buffer
}

var captured *cliOutput

// useBufferWriters 把 stdOut/stdErr 换成内存缓冲，测试结束时还原。
// 同一测试内多次调用会重新开始记录，便于逐条断言命令输出。
func useBufferWriters(t *testing.T) {
	t.Helper()

	prevOut, prevErr, prevCaptured := stdOut, stdErr, captured
	captured = &cliOutput{}
	stdOut = &captured.out
	stdErr = &captured.err

	t.Cleanup(func() {
		stdOut, stdErr, captured = prevOut, prevErr, prevCaptured
	})
}

// stdOutBuffer 返回当前记录的 stdout，例如 get 打印的值或 check-config 的 ok。
func stdOutBuffer() *bytes.Buffer {
	if captured == nil {
		return &bytes.Buffer{}
	}
	return &captured.out
}

// stdErrBuffer 返回当前记录的 stderr，其中包含日志与 "错误: ..." 提示。
func stdErrBuffer() *bytes.Buffer {
	if captured == nil {
		return &bytes.Buffer{}
	}
	return &captured.err
}
