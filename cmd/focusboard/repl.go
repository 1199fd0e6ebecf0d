package main

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/odvcencio/focusboard/pkg/pipeline"
	"github.com/odvcencio/focusboard/pkg/terminal"
)

const welcomeMessage = "👋 Hello! I'm your Focus Assistant!\n\n" +
	"I can help you with:\n" +
	"• Adding tasks and classes\n" +
	"• Answering questions about your schedule\n" +
	"• Checking your stats and XP\n\n" +
	"Type a request, or 'exit' to leave. ✨"

// runInteractive reads lines from stdin and feeds each one through the
// pipeline until the user leaves or stdin closes.
func runInteractive(rt *appRuntime) error {
	out := newTerminal()
	if !quietMode {
		_ = out.Markdown(welcomeMessage)
		out.Newline()
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		out.Prompt()
		if !scanner.Scan() {
			out.Newline()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "exit", "quit", "bye":
			out.Dim("See you soon! 👋")
			return nil
		}

		processLine(rt, out, line)
	}
}

func processLine(rt *appRuntime, out *terminal.Writer, line string) {
	sp := terminal.NewSpinner("thinking")
	sp.Start()
	reply, err := rt.pipe.Process(context.Background(), line, rt.sessionID)
	sp.Stop()

	if err != nil {
		out.Error("%v", err)
		return
	}
	renderReply(out, reply)
}

func renderReply(out *terminal.Writer, reply pipeline.Reply) {
	_ = out.Markdown(reply.Message)
	switch reply.Outcome {
	case pipeline.OutcomeClarify:
		out.Options(reply.Options)
	case pipeline.OutcomeExecute:
		if reply.RequiresConfirmation {
			out.Dim("I wasn't fully sure about that one. Tell me if it isn't what you meant.")
		}
	}
	out.Newline()
}

// executeOneShot processes a single input and returns an exit code.
func executeOneShot(rt *appRuntime, text string) int {
	out := newTerminal()
	reply, err := rt.pipe.Process(context.Background(), text, rt.sessionID)
	if err != nil {
		out.Error("%v", err)
		return 1
	}
	renderReply(out, reply)
	return 0
}
