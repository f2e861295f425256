// Package enhance post-processes generated content-mode documents: framing
// into a fixed document template, citation extraction, and a version header.
// Everything here is pure string work on the model's output.
package enhance

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Options selects which post-processing steps run on a content-mode result.
type Options struct {
	// Template frames the document into one of the known document types.
	// Empty leaves the document as generated.
	Template string `json:"template,omitempty"`
	// Citations scans the text for attribution phrases, numbers them, and
	// appends a references section.
	Citations bool `json:"citations,omitempty"`
	// Version, when set, prefixes the document with a version header.
	Version string `json:"version,omitempty"`
	Author  string `json:"author,omitempty"`
}

// docTemplate is a fixed section outline for one document type.
type docTemplate struct {
	title    string
	sections []string
}

var templates = map[string]docTemplate{
	"api_documentation": {
		title: "Api Documentation",
		sections: []string{
			"API Overview",
			"Authentication",
			"Endpoints",
			"Request/Response Format",
			"Error Handling",
			"Rate Limits",
			"Examples",
		},
	},
	"user_guide": {
		title: "User Guide",
		sections: []string{
			"Introduction",
			"Getting Started",
			"Features",
			"Installation",
			"Configuration",
			"Usage Examples",
			"Troubleshooting",
		},
	},
	"technical_spec": {
		title: "Technical Spec",
		sections: []string{
			"System Architecture",
			"Components",
			"Data Flow",
			"Security",
			"Performance Requirements",
			"Integration Points",
			"Deployment",
		},
	},
}

const missingSection = "[Section content to be added]"

// KnownTemplate reports whether name is a supported document type.
func KnownTemplate(name string) bool {
	_, ok := templates[name]
	return ok
}

// TemplateNames returns the supported document types, for error messages.
func TemplateNames() []string {
	return []string{"api_documentation", "technical_spec", "user_guide"}
}

// Apply runs the selected steps in order: template framing, then citations,
// then the version header on top.
func Apply(content string, o Options) string {
	out := ApplyTemplate(content, o.Template)
	if o.Citations {
		out, _ = GenerateCitations(out)
	}
	if o.Version != "" {
		out = VersionHeader(out, o.Version, o.Author)
	}
	return out
}

// ApplyTemplate reorganizes content into the fixed section outline of the
// given document type. Content matching a section heading is carried over;
// sections the model did not produce get a placeholder. An unknown or empty
// template name returns the content unchanged.
func ApplyTemplate(content, templateType string) string {
	tmpl, ok := templates[templateType]
	if !ok {
		return content
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", tmpl.title)

	for _, section := range tmpl.sections {
		fmt.Fprintf(&sb, "## %s\n\n", section)
		// Grab everything between this section heading and the next one.
		pattern := regexp.MustCompile(`(?s)` + regexp.QuoteMeta(section) + `.*?\n(.*?)(?:##|\z)`)
		if m := pattern.FindStringSubmatch(content); m != nil && strings.TrimSpace(m[1]) != "" {
			sb.WriteString(strings.TrimSpace(m[1]))
			sb.WriteString("\n\n")
		} else {
			sb.WriteString(missingSection)
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// Citation is one numbered reference extracted from the document.
type Citation struct {
	Number       int    `json:"number"`
	Source       string `json:"source"`
	DateAccessed string `json:"date_accessed"`
}

var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)according to\s+([^,.]+)`),
	regexp.MustCompile(`(?i)as stated (?:in|by)\s+([^,.]+)`),
	regexp.MustCompile(`(?i)referenced (?:in|by)\s+([^,.]+)`),
	regexp.MustCompile(`(?i)cited (?:in|by)\s+([^,.]+)`),
}

// GenerateCitations numbers attribution phrases in the text and appends a
// references section listing their sources. Text without any attribution
// phrase is returned unchanged with no references.
func GenerateCitations(content string) (string, []Citation) {
	var refs []Citation
	modified := content
	today := time.Now().Format("2006-01-02")

	num := 1
	for _, pattern := range citationPatterns {
		for _, m := range pattern.FindAllStringSubmatch(content, -1) {
			source := strings.TrimSpace(m[1])
			mark := fmt.Sprintf("[%d]", num)
			modified = strings.Replace(modified, m[0], m[0]+" "+mark, 1)
			refs = append(refs, Citation{Number: num, Source: source, DateAccessed: today})
			num++
		}
	}

	if len(refs) > 0 {
		var sb strings.Builder
		sb.WriteString(modified)
		sb.WriteString("\n\n## References\n")
		for _, ref := range refs {
			fmt.Fprintf(&sb, "%d. %s (Accessed: %s)\n", ref.Number, ref.Source, ref.DateAccessed)
		}
		modified = sb.String()
	}
	return modified, refs
}

// VersionHeader prefixes the document with version control information.
func VersionHeader(content, version, author string) string {
	return fmt.Sprintf(`# Version Control Information
- Version: %s
- Last Updated: %s
- Author: %s

---

%s`, version, time.Now().Format("2006-01-02 15:04:05"), author, content)
}
