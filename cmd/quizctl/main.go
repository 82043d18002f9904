// Package main はジョブ追跡CLIのエントリーポイントです。
package main

import (
	"fmt"
	"os"

	"github.com/yourusername/quiz-forge/cmd/quizctl/commands"
)

func main() {
	if err := commands.NewCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
