package storage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportMarkdown renders analyses as a markdown document.
func ExportMarkdown(analyses []Analysis) string {
	var b strings.Builder

	b.WriteString("# Profile analyses\n\n")
	for _, a := range analyses {
		b.WriteString(fmt.Sprintf("## @%s\n\n", a.Handle))
		b.WriteString(fmt.Sprintf("- **Analysis:** %s\n", a.ID))
		b.WriteString(fmt.Sprintf("- **Variant:** %s\n", a.Variant))
		b.WriteString(fmt.Sprintf("- **Status:** %s\n", a.Status))
		if a.ErrorKind != "" {
			b.WriteString(fmt.Sprintf("- **Error kind:** %s\n", a.ErrorKind))
		}
		if a.RoomID != "" {
			b.WriteString(fmt.Sprintf("- **Room:** %s\n", a.RoomID))
		}
		b.WriteString(fmt.Sprintf("- **Created:** %s\n", a.CreatedAt.Format("2006-01-02 15:04:05")))
		for _, k := range sortedKeys(a.Scores) {
			b.WriteString(fmt.Sprintf("- **%s:** %v\n", k, a.Scores[k]))
		}
		b.WriteString("\n")
		if a.Response != "" {
			b.WriteString(a.Response + "\n\n")
		}
		if len(a.Profile) > 0 {
			b.WriteString(fmt.Sprintf("<details>\n<summary>Profile</summary>\n\n```json\n%s\n```\n</details>\n\n", string(a.Profile)))
		}
	}

	return b.String()
}

// ExportJSON renders analyses as formatted JSON.
func ExportJSON(analyses []Analysis) ([]byte, error) {
	export := struct {
		Analyses []Analysis `json:"analyses"`
	}{
		Analyses: analyses,
	}
	return json.MarshalIndent(export, "", "  ")
}
