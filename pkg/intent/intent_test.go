package intent

import "testing"

func TestKindValid(t *testing.T) {
	valid := []Kind{KindQuery, KindTask, KindClass, KindChat, KindScheduleImport}
	for _, k := range valid {
		if !k.Valid() {
			t.Errorf("Kind(%q).Valid() = false, want true", k)
		}
	}

	for _, k := range []Kind{"", "unknown", "Query", "TASK"} {
		if k.Valid() {
			t.Errorf("Kind(%q).Valid() = true, want false", k)
		}
	}
}

func TestKindMutating(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindQuery, false},
		{KindChat, false},
		{KindTask, true},
		{KindClass, true},
		{KindScheduleImport, true},
	}

	for _, tt := range tests {
		if got := tt.kind.Mutating(); got != tt.want {
			t.Errorf("Kind(%q).Mutating() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestOutcomeVariants(t *testing.T) {
	outcomes := []Outcome{
		Execute{Intent: Candidate{Kind: KindTask}},
		Clarify{Question: "Which one?"},
		Respond{Message: "done"},
	}

	for _, out := range outcomes {
		switch v := out.(type) {
		case Execute:
			if v.Intent.Kind != KindTask {
				t.Errorf("Execute intent kind = %q, want %q", v.Intent.Kind, KindTask)
			}
		case Clarify:
			if v.Question == "" {
				t.Error("Clarify question is empty")
			}
		case Respond:
			if v.Message == "" {
				t.Error("Respond message is empty")
			}
		default:
			t.Errorf("unexpected outcome variant %T", out)
		}
	}
}
