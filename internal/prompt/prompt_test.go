package prompt

import (
	"testing"

	"github.com/ent0n29/lankachat/internal/memory"
)

func TestAssembleEmptyHistory(t *testing.T) {
	got := Assemble("You are helpful.", nil, "hi")
	want := "You are helpful.\nuser: hi"
	if got != want {
		t.Fatalf("Assemble() = %q, want %q", got, want)
	}
}

func TestAssembleWithHistory(t *testing.T) {
	history := []memory.Turn{
		{Seq: 1, Role: memory.RoleUser, Text: "hello"},
		{Seq: 2, Role: memory.RoleAssistant, Text: "hi there"},
	}
	got := Assemble("P", history, "how are you?")
	want := "P\nuser: hello\nassistant: hi there\nuser: how are you?"
	if got != want {
		t.Fatalf("Assemble() = %q, want %q", got, want)
	}
}

func TestAssembleBlankPersona(t *testing.T) {
	for _, persona := range []string{"", "   "} {
		if got := Assemble(persona, nil, "hi"); got != "user: hi" {
			t.Fatalf("Assemble(%q) = %q, want %q", persona, got, "user: hi")
		}
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	history := []memory.Turn{{Role: memory.RoleUser, Text: "a"}, {Role: memory.RoleAssistant, Text: "b"}}
	first := Assemble("P", history, "c")
	for i := 0; i < 5; i++ {
		if got := Assemble("P", history, "c"); got != first {
			t.Fatalf("Assemble() run %d = %q, want %q", i, got, first)
		}
	}
	if history[0].Text != "a" || history[1].Text != "b" {
		t.Fatalf("Assemble() mutated history: %+v", history)
	}
}
