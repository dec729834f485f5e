package main

import (
	"context"
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

// terminal is the readline front end of the console
type terminal struct {
	rl *readline.Instance
}

func newTerminal() (*terminal, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gpio> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &terminal{rl: rl}, nil
}

// Stdout returns a writer that does not clobber the prompt
func (t *terminal) Stdout() io.Writer {
	return t.rl.Stdout()
}

func (t *terminal) Stderr() io.Writer {
	return t.rl.Stderr()
}

func (t *terminal) Close() error {
	return t.rl.Close()
}

// Run reads commands until quit, EOF or ctx is cancelled
func (t *terminal) Run(ctx context.Context, cancel context.CancelFunc, con *console) {
	con.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := t.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(t.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		if quit := con.execute(line); quit {
			cancel()
			return
		}
	}
}
