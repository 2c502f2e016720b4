package blocks

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// assemble renders the accepted blocks, which must already be in input order.
//
// With preserveStructure, blocks are grouped by section. Unsectioned blocks
// come first with no header; every other group follows in first-seen order
// under a "## Title" header. Without it, blocks are joined by a blank line.
func assemble(kept []Block, preserveStructure bool) string {
	if len(kept) == 0 {
		return ""
	}
	if !preserveStructure {
		parts := make([]string, len(kept))
		for i, b := range kept {
			parts[i] = b.Content
		}
		return strings.Join(parts, "\n\n")
	}

	var defaultGroup []string
	var order []string
	groups := make(map[string][]string)
	for _, b := range kept {
		section := b.Section()
		if section == "" {
			defaultGroup = append(defaultGroup, b.Content)
			continue
		}
		if _, seen := groups[section]; !seen {
			order = append(order, section)
		}
		groups[section] = append(groups[section], b.Content)
	}

	var parts []string
	if len(defaultGroup) > 0 {
		parts = append(parts, strings.Join(defaultGroup, "\n"))
	}
	for _, section := range order {
		parts = append(parts, SectionHeader(section)+"\n"+strings.Join(groups[section], "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// SectionHeader renders the header line emitted above a section group.
// "core_code" becomes "## Core Code".
func SectionHeader(section string) string {
	title := strings.NewReplacer("_", " ", "-", " ").Replace(section)
	// Casers are stateful, so each call gets its own.
	return "## " + cases.Title(language.English).String(strings.TrimSpace(title))
}
