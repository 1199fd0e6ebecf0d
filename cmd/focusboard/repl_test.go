package main

import (
	"strings"
	"testing"

	"github.com/odvcencio/focusboard/pkg/intent"
	"github.com/odvcencio/focusboard/pkg/pipeline"
	"github.com/odvcencio/focusboard/pkg/terminal"
)

func TestRenderReplyClarifyShowsOptions(t *testing.T) {
	reply := pipeline.Reply{
		Outcome: pipeline.OutcomeClarify,
		Message: "Which days does it meet?",
		Options: []string{"mon and wed", "tue and thu"},
	}
	out := captureStdout(t, func() {
		renderReply(terminal.New(), reply)
	})
	if !strings.Contains(out, "Which days does it meet?") {
		t.Fatalf("expected question, got %q", out)
	}
	if !strings.Contains(out, "1. mon and wed") {
		t.Fatalf("expected numbered options, got %q", out)
	}
	if !strings.Contains(out, "2. tue and thu") {
		t.Fatalf("expected numbered options, got %q", out)
	}
}

func TestRenderReplyLowConfidenceHint(t *testing.T) {
	reply := pipeline.Reply{
		Outcome:              pipeline.OutcomeExecute,
		Message:              "✅ Added task: **Buy Groceries**",
		Kind:                 intent.KindTask,
		RequiresConfirmation: true,
	}
	out := captureStdout(t, func() {
		renderReply(terminal.New(), reply)
	})
	if !strings.Contains(out, "Added task") {
		t.Fatalf("expected confirmation message, got %q", out)
	}
	if !strings.Contains(out, "wasn't fully sure") {
		t.Fatalf("expected low-confidence hint, got %q", out)
	}
}

func TestRenderReplyRespondIsPlain(t *testing.T) {
	reply := pipeline.Reply{
		Outcome: pipeline.OutcomeRespond,
		Message: "🎉 No classes scheduled for today!",
	}
	out := captureStdout(t, func() {
		renderReply(terminal.New(), reply)
	})
	if !strings.Contains(out, "No classes scheduled for today!") {
		t.Fatalf("expected message, got %q", out)
	}
	if strings.Contains(out, "wasn't fully sure") {
		t.Fatalf("unexpected hint on plain respond: %q", out)
	}
}

func TestExecuteOneShotAnswersQuery(t *testing.T) {
	rt, err := initRuntime(testConfig(t), "oneshot-test")
	if err != nil {
		t.Fatalf("initRuntime: %v", err)
	}
	t.Cleanup(rt.Close)

	var code int
	out := captureStdout(t, func() {
		code = executeOneShot(rt, "What do I have today?")
	})
	if code != 0 {
		t.Fatalf("exit code=%d want 0", code)
	}
	if !strings.Contains(out, "No classes scheduled for today") {
		t.Fatalf("expected empty schedule reply, got %q", out)
	}
}

func TestExecuteOneShotAddsClass(t *testing.T) {
	rt, err := initRuntime(testConfig(t), "oneshot-class")
	if err != nil {
		t.Fatalf("initRuntime: %v", err)
	}
	t.Cleanup(rt.Close)

	var code int
	out := captureStdout(t, func() {
		code = executeOneShot(rt, "Physics class Mon Wed 10-11")
	})
	if code != 0 {
		t.Fatalf("exit code=%d want 0", code)
	}
	if !strings.Contains(out, "Added class") {
		t.Fatalf("expected class confirmation, got %q", out)
	}

	classes, err := rt.store.Classes()
	if err != nil {
		t.Fatalf("classes: %v", err)
	}
	if len(classes) != 1 || classes[0].Title != "Physics" {
		t.Fatalf("classes=%+v want one Physics entry", classes)
	}
}
