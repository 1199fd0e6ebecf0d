package main

import (
	"context"
	"fmt"
	"strings"
)

// runAskCommand processes one input like a single REPL turn. A clarify
// outcome prints the question and options and exits; the next ask with
// the same --session continues the conversation.
func runAskCommand(args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("usage: focusboard ask <text>")
	}

	cfg, err := loadConfigFn()
	if err != nil {
		return withExitCode(err, exitCodeConfig)
	}

	rt, err := initRuntimeFn(cfg, sessionFlag)
	if err != nil {
		return err
	}
	defer rt.Close()

	reply, err := rt.pipe.Process(context.Background(), text, rt.sessionID)
	if err != nil {
		return err
	}
	renderReply(newTerminal(), reply)
	return nil
}
