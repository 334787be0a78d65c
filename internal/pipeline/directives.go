package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Directive is a named style instruction given to one synthesis batch.
type Directive struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

type directiveFile struct {
	Directives []Directive `yaml:"directives"`
}

// DefaultDirectives is used when no directives file is configured.
func DefaultDirectives() []Directive {
	return []Directive{
		{Name: "editorial", Text: "Editorial photography: natural light, candid subjects, shallow depth of field, documentary framing."},
		{Name: "minimal", Text: "Minimalist compositions: generous negative space, a single focal subject, restrained two or three colour palette."},
		{Name: "cinematic", Text: "Cinematic stills: dramatic lighting, anamorphic framing, moody colour grading, strong foreground and background separation."},
		{Name: "flatlay", Text: "Top-down flat lays and product arrangements on textured surfaces, soft even lighting, commercial clarity."},
		{Name: "illustration", Text: "Vector and digital illustration: clean shapes, bold outlines, limited palette suited to icons and banners."},
	}
}

// LoadDirectives reads a YAML file of the form
//
//	directives:
//	  - name: editorial
//	    text: ...
//
// An empty path returns DefaultDirectives.
func LoadDirectives(path string) ([]Directive, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultDirectives(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directives: %w", err)
	}
	var file directiveFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse directives: %w", err)
	}
	out := make([]Directive, 0, len(file.Directives))
	for i, d := range file.Directives {
		d.Name = strings.TrimSpace(d.Name)
		d.Text = strings.TrimSpace(d.Text)
		if d.Text == "" {
			continue
		}
		if d.Name == "" {
			d.Name = fmt.Sprintf("directive-%d", i+1)
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("directives file %s has no usable entries", path)
	}
	return out, nil
}

// DirectiveTexts flattens directives into the form Synthesize takes.
func DirectiveTexts(ds []Directive) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Text)
	}
	return out
}
