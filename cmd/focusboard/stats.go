package main

import (
	"github.com/odvcencio/focusboard/pkg/intent"
)

func runStatsCommand(args []string) error {
	cfg, err := loadConfigFn()
	if err != nil {
		return withExitCode(err, exitCodeConfig)
	}

	rt, err := initRuntimeFn(cfg, sessionFlag)
	if err != nil {
		return err
	}
	defer rt.Close()

	message, err := rt.queries.Answer(intent.ActionStats)
	if err != nil {
		return err
	}
	_ = newTerminal().Markdown(message)
	return nil
}
