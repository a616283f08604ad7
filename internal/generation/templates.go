package generation

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/rendis/reqbot/pkg/schema"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// Template IDs of the built-in flows.
const (
	TemplateChatReply           = "chat_reply"
	TemplateExtractRequirements = "extract_requirements"
	TemplateExecutiveSummary    = "executive_summary"
	TemplateActivityDiagram     = "activity_diagram"
	TemplateCostEstimation      = "cost_estimation"
	TemplateReferences          = "references"
)

// systemBlock is the optional named block holding the system instruction.
const systemBlock = "system"

// Templates is a set of parsed prompt templates keyed by ID. A template's
// body is the user prompt; an optional {{define "system"}} block supplies
// the system instruction. Templates are immutable after loading.
type Templates struct {
	byID map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"percent": func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100)
	},
}

// DefaultTemplates loads the embedded prompt templates.
func DefaultTemplates() (*Templates, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return LoadTemplates(sub)
}

// LoadTemplates parses every *.tmpl file at the root of fsys. The file name
// without extension is the template ID.
func LoadTemplates(fsys fs.FS) (*Templates, error) {
	files, err := fs.Glob(fsys, "*.tmpl")
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeTemplate, "list templates").WithCause(err)
	}

	t := &Templates{byID: make(map[string]*template.Template, len(files))}
	for _, name := range files {
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeTemplate, "read template %s", name).WithCause(err)
		}
		id := strings.TrimSuffix(path.Base(name), ".tmpl")
		tmpl, err := template.New(id).Funcs(templateFuncs).Option("missingkey=error").Parse(string(src))
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeTemplate, "parse template %s", id).WithCause(err)
		}
		t.byID[id] = tmpl
	}
	return t, nil
}

// Override returns a copy of t where templates from other replace those
// with the same ID.
func (t *Templates) Override(other *Templates) *Templates {
	merged := &Templates{byID: make(map[string]*template.Template, len(t.byID)+len(other.byID))}
	for id, tmpl := range t.byID {
		merged.byID[id] = tmpl
	}
	for id, tmpl := range other.byID {
		merged.byID[id] = tmpl
	}
	return merged
}

// IDs returns the sorted template IDs.
func (t *Templates) IDs() []string {
	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Render executes the template against input and returns the system
// instruction and the user prompt.
func (t *Templates) Render(id string, input any) (system, prompt string, err error) {
	tmpl, ok := t.byID[id]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", id)
	}

	var buf bytes.Buffer
	if sys := tmpl.Lookup(systemBlock); sys != nil {
		if err := sys.Execute(&buf, input); err != nil {
			return "", "", fmt.Errorf("render %s system block: %w", id, err)
		}
		system = strings.TrimSpace(buf.String())
		buf.Reset()
	}

	if err := tmpl.Execute(&buf, input); err != nil {
		return "", "", fmt.Errorf("render %s: %w", id, err)
	}
	return system, strings.TrimSpace(buf.String()), nil
}
