// Package prompts renders the model instructions used by every pipeline
// stage. Each prompt is a Spec naming a template and its variables; all
// templates are embedded and parsed once.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

// TemplateID names an embedded prompt template.
type TemplateID string

const (
	ChunkSummary       TemplateID = "chunk_summary"
	MemoryUpdate       TemplateID = "memory_update"
	MemoryVerify       TemplateID = "memory_verify"
	DraftAggregate     TemplateID = "draft_aggregate"
	Combine            TemplateID = "combine"
	CombineVerify      TemplateID = "combine_verify"
	Coherence          TemplateID = "coherence"
	Improvement        TemplateID = "improvement"
	FinalCombine       TemplateID = "final_combine"
	FinalAggregate     TemplateID = "final_aggregate"
	FinalVerify        TemplateID = "final_verify"
	Condensed          TemplateID = "condensed"
	CondensedAggregate TemplateID = "condensed_aggregate"
	ImproveCondensed   TemplateID = "improve_condensed"
	ImproveFinal       TemplateID = "improve_final"
	TimelineExtract    TemplateID = "timeline_extract"
	TimelineDedupe     TemplateID = "timeline_dedupe"
	PageSummary        TemplateID = "page_summary"
	PageImprove        TemplateID = "page_improve"
)

// All lists every template ID, in pipeline order.
var All = []TemplateID{
	ChunkSummary, MemoryUpdate, MemoryVerify, DraftAggregate,
	Combine, CombineVerify, Coherence, Improvement,
	FinalCombine, FinalAggregate, FinalVerify,
	Condensed, CondensedAggregate, ImproveCondensed, ImproveFinal,
	TimelineExtract, TimelineDedupe, PageSummary, PageImprove,
}

// Vars holds template variables.
type Vars map[string]any

// Spec is a prompt ready to render.
type Spec struct {
	Template TemplateID
	Vars     Vars
}

// New builds a Spec.
func New(id TemplateID, vars Vars) Spec {
	return Spec{Template: id, Vars: vars}
}

// With returns a copy of s with key set to value.
func (s Spec) With(key string, value any) Spec {
	vars := make(Vars, len(s.Vars)+1)
	for k, v := range s.Vars {
		vars[k] = v
	}
	vars[key] = value
	return Spec{Template: s.Template, Vars: vars}
}

// Variables referenced by shared partials. Render fills them with zero
// values so templates can test for their presence.
var optionalVars = Vars{
	"BlockedNames": []string(nil),
	"MemoryLog":    "",
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		Option("missingkey=error").
		ParseFS(templateFS, "templates/*.tmpl"),
)

// Render executes the template named by spec. Unknown templates and
// variables the template needs but spec lacks are errors.
func Render(spec Spec) (string, error) {
	tmpl := templates.Lookup(string(spec.Template) + ".tmpl")
	if tmpl == nil {
		return "", fmt.Errorf("unknown prompt template %q", spec.Template)
	}

	data := make(map[string]any, len(spec.Vars)+len(optionalVars))
	for k, v := range optionalVars {
		data[k] = v
	}
	for k, v := range spec.Vars {
		data[k] = v
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", spec.Template, err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// DedupeEvent is one row of the timeline deduplication prompt.
type DedupeEvent struct {
	Page        int
	Description string
}
