// v8-runjs is a command-line tool to run javascript.
//
// It's like node, but less useful.
//
// It runs the javascript files provided on the commandline in order until
// it finishes or an error occurs. If no files are provided, this will enter a
// REPL mode where you can interactively run javascript.
//
// Other than the standard javascript environment, it provides console.*:
//
//	console.log, console.info: write args to stdout
//	console.warn:              write args to stderr in yellow
//	console.error:             write args to stderr in scary red
//
// and sleep(msec), which returns a promise resolved after the delay.
//
// Sooo... you can run your JS and print to the screen.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
