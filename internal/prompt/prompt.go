// Package prompt renders the fixed templates sent to the generative model.
// Building a prompt is pure and deterministic: the same mode and input always
// produce the same string, and the input text appears verbatim in the output.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docgate/docgate/internal/job"
)

var (
	ErrEmptyInput  = errors.New("input text must not be empty")
	ErrUnknownMode = errors.New("unknown mode")
)

// Request carries everything a template needs. Topic is only read by the
// content template.
type Request struct {
	Mode  job.Mode
	Input string
	Topic string
}

// templates maps each mode to its renderer. Dispatch happens through this
// table rather than by comparing mode strings at call sites.
var templates = map[job.Mode]func(Request) string{
	job.ModeAnalyze:  analyzeTemplate,
	job.ModeGenerate: generateTemplate,
	job.ModeContent:  contentTemplate,
}

// Build renders the prompt for the given request. Empty input fails before
// any template is consulted, so no upstream call can be made for it.
func Build(r Request) (string, error) {
	if strings.TrimSpace(r.Input) == "" {
		return "", ErrEmptyInput
	}
	tmpl, ok := templates[r.Mode]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, r.Mode)
	}
	return tmpl(r), nil
}

func analyzeTemplate(r Request) string {
	return fmt.Sprintf(`Analyze the following technical documentation and provide:
1. A concise summary
2. Key points and concepts
3. Suggestions for improvement
4. Consistency check
5. Areas that need more detail

Documentation:
%s`, r.Input)
}

func generateTemplate(r Request) string {
	return fmt.Sprintf(`Generate comprehensive documentation for the following code:
1. Function descriptions
2. Parameter explanations
3. Return value details
4. Usage examples
5. Any important notes

Code:
%s`, r.Input)
}

func contentTemplate(r Request) string {
	return fmt.Sprintf(`Generate comprehensive technical documentation for the following topic:

Topic: %s

Requirements: %s

Please provide a complete technical document with the following sections:
1. Executive Summary
2. Introduction
3. Technical Overview
4. Detailed Specifications
5. Implementation Guidelines
6. Best Practices
7. Security Considerations
8. Performance Optimization
9. Troubleshooting Guide
10. References

Make it detailed, professional, and well-structured.`, r.Topic, r.Input)
}
