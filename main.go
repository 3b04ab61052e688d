package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
)

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
	os.Exit(run(os.Args[1:]))
}

// run 构建命令树并执行，返回退出码，方便测试。
func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdOut)
	root.SetErr(stdErr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stdErr, "错误: %v\n", err)
		return 1
	}
	return 0
}
