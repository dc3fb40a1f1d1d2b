// The main package for the noticewatch executable.
package main

import (
	"github.com/knu-notice/noticewatch/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
