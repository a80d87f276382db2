// Package prompt builds the single text blob sent to text-generation providers.
package prompt

import (
	"strings"

	"github.com/ent0n29/lankachat/internal/memory"
)

// Assemble joins the persona, one "role: text" line per history turn and the new
// user line with newlines. A blank persona contributes no line.
func Assemble(persona string, history []memory.Turn, newText string) string {
	lines := make([]string, 0, len(history)+2)
	if strings.TrimSpace(persona) != "" {
		lines = append(lines, persona)
	}
	for _, turn := range history {
		lines = append(lines, Line(turn.Role, turn.Text))
	}
	lines = append(lines, Line(memory.RoleUser, newText))
	return strings.Join(lines, "\n")
}

// Line renders one conversation line.
func Line(role, text string) string {
	return role + ": " + text
}
