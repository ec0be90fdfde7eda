package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/peterh/liner"
)

// repl reads javascript a line at a time and prints each result.
func repl(s *session, stdout, stderr io.Writer, verbose bool, errStyle, resStyle func(string) string) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)
	line.SetCtrlCAborts(true)

	for {
		jscode, err := line.Prompt("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return err
		}
		if jscode == "" {
			continue
		}
		line.AppendHistory(jscode)

		result, err := s.run(jscode, "<input>")
		if err != nil {
			describe(stderr, err, verbose, errStyle)
			continue
		}
		fmt.Fprintln(stdout, resStyle(result.String()))
	}
}
