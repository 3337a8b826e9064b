package persona

import (
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/habiliai/personachat/config"
	"github.com/habiliai/personachat/errors"
	"github.com/jcooky/go-din"
	"github.com/samber/lo"
)

const (
	genericTemplate = `You are acting as {{ .Name }}. Respond accordingly.`
	unnamedPersona  = "assistant"
)

var builtinTemplates = map[string]string{
	"mentor": `You are an experienced business mentor with decades of experience guiding entrepreneurs and business leaders. ` +
		`Your approach is supportive, insightful, and focused on long-term growth. ` +
		`You ask probing questions to help the mentee think deeply about their challenges, ` +
		`and you give actionable advice drawn from real-world experience. ` +
		`You care about the person's overall development, not just immediate business outcomes.`,
	"investor": `You are a seasoned venture capitalist with a skeptical, analytical mindset. ` +
		`You evaluate opportunities on market size, competitive advantage, unit economics, scalability and team strength. ` +
		`You ask tough questions about total addressable market, business model, traction and defensibility. ` +
		`You are direct and data-driven, you challenge assumptions and you look for risks and red flags.`,
	"advisor": `You are a strategic business advisor who helps companies scale and optimize their operations. ` +
		`You focus on practical, implementable solutions: you analyze processes, identify bottlenecks and recommend improvements ` +
		`grounded in proven methodologies.`,
	"coach": `You are a business coach focused on leadership development and personal growth. ` +
		`You help leaders build their skills, overcome challenges and reach their goals, ` +
		`using questions, feedback and structured frameworks to guide them.`,
}

type (
	// Catalog maps persona names to system prompts. It is immutable after construction.
	Catalog struct {
		templates map[string]*template.Template
		generic   *template.Template
	}

	promptValues struct {
		Name string
	}
)

// NewCatalog builds the catalog from the built-in personas plus extra definitions.
// An extra definition with a built-in name replaces the built-in template.
func NewCatalog(extra ...config.PersonaDefinition) (*Catalog, error) {
	c := &Catalog{
		templates: make(map[string]*template.Template, len(builtinTemplates)+len(extra)),
		generic:   template.Must(newTemplate("generic").Parse(genericTemplate)),
	}

	for name, text := range builtinTemplates {
		c.templates[name] = template.Must(newTemplate(name).Parse(text))
	}

	for _, def := range extra {
		name := Normalize(def.Name)
		if name == "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "persona name %q is empty once normalized", def.Name)
		}
		tmpl, err := newTemplate(name).Parse(def.Prompt)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "persona %q: %v", name, err)
		}
		c.templates[name] = tmpl
	}

	return c, nil
}

// PromptFor returns the system prompt for a persona. It never fails: unknown names, and
// templates that fail to render, fall back to the generic prompt.
func (c *Catalog) PromptFor(name string) string {
	key := Normalize(name)
	display := strings.TrimSpace(name)
	if display == "" {
		display = unnamedPersona
	}
	values := promptValues{Name: display}

	if tmpl, ok := c.templates[key]; ok {
		if prompt, err := render(tmpl, values); err == nil && prompt != "" {
			return prompt
		}
	}

	if prompt, err := render(c.generic, values); err == nil && prompt != "" {
		return prompt
	}

	return fmt.Sprintf("You are acting as %s. Respond accordingly.", display)
}

func (c *Catalog) Has(name string) bool {
	_, ok := c.templates[Normalize(name)]
	return ok
}

func (c *Catalog) Names() []string {
	names := lo.Keys(c.templates)
	slices.Sort(names)
	return names
}

func newTemplate(name string) *template.Template {
	return template.New(name).Funcs(sprig.TxtFuncMap()).Option("missingkey=error")
}

func render(tmpl *template.Template, values promptValues) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, values); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func init() {
	din.RegisterT(func(c *din.Container) (*Catalog, error) {
		conf, err := din.GetT[*config.Config](c)
		if err != nil {
			return nil, err
		}

		if conf.Persona.File == "" {
			return NewCatalog()
		}

		personas, err := config.LoadPersonaFile(conf.Persona.File)
		if err != nil {
			return nil, err
		}

		return NewCatalog(personas.Personas...)
	})
}
