package runtime

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/michaelbrown/boarman/internal/storage"
)

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ComposeContext substitutes {{key}} placeholders in template with state
// values. Unknown keys render empty. Substituted values are not rescanned.
func ComposeContext(state *State, template string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		return state.Get(m[2 : len(m)-2])
	})
}

func formatMessages(memories []storage.Memory) string {
	var b strings.Builder
	for _, m := range memories {
		name := m.UserName
		if name == "" {
			name = m.UserID
		}
		fmt.Fprintf(&b, "%s: %s", name, m.Content.Text)
		if m.Content.Action != "" {
			fmt.Fprintf(&b, " (%s)", m.Content.Action)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
