package interview

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestClassifier(t *testing.T) {
	prompts, err := DefaultPrompts()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		reply   string
		err     error
		want    Verdict
		wantErr bool
	}{
		{name: "yes", reply: "1", want: VerdictYes},
		{name: "no", reply: " 0 ", want: VerdictNo},
		{name: "chatty", reply: "The text mentions skills: 1", want: VerdictAmbiguous},
		{name: "model error", err: errModel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &scriptedCompleter{responses: []string{tt.reply}, err: tt.err}
			c := NewClassifier(completer, prompts, 0)

			got, err := c.Classify(context.Background(), PromptReadyCheck, "I am ready")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Classify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errModel) {
					t.Errorf("error %v does not wrap the model error", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
			if !strings.Contains(completer.prompts[0], "I am ready") {
				t.Errorf("prompt does not carry the text: %s", completer.prompts[0])
			}
		})
	}
}

func TestGenerator(t *testing.T) {
	prompts, err := DefaultPrompts()
	if err != nil {
		t.Fatal(err)
	}

	completer := &scriptedCompleter{responses: []string{"  Please share your skills again.  ", "   "}}
	g := NewGenerator(completer, prompts, 0)

	out, err := g.Generate(context.Background(), PromptSkillsMissing, Vars{"Text": "meh"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "Please share your skills again." {
		t.Errorf("Generate() = %q", out)
	}

	if _, err := g.Generate(context.Background(), PromptSkillsMissing, Vars{"Text": "meh"}); err == nil {
		t.Error("Generate() with an empty reply error = nil")
	}
	if _, err := g.Generate(context.Background(), PromptSkillsMissing, Vars{}); err == nil {
		t.Error("Generate() with missing vars error = nil")
	}
	if len(completer.prompts) != 2 {
		t.Errorf("completer called %d times, want 2", len(completer.prompts))
	}
}

func TestTruncateForLog(t *testing.T) {
	if got := TruncateForLog("héllo world", 5); got != "héllo..." {
		t.Errorf("TruncateForLog() = %q", got)
	}
	if got := TruncateForLog("short", 10); got != "short" {
		t.Errorf("TruncateForLog() = %q", got)
	}
}
