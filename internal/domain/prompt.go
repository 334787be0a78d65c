package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Shot struct {
	Composition string `json:"composition"`
	Resolution  string `json:"resolution"`
	Lens        string `json:"lens"`
}

type Lighting struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accents   string `json:"accents"`
}

type ColorPalette struct {
	Background   string `json:"background"`
	InkPrimary   string `json:"ink_primary"`
	InkSecondary string `json:"ink_secondary"`
	TextPrimary  string `json:"text_primary"`
}

type VisualRules struct {
	ProhibitedElements []string `json:"prohibited_elements"`
	Grain              string   `json:"grain"`
	Sharpen            string   `json:"sharpen"`
}

type PromptMetadata struct {
	Series      string   `json:"series"`
	Task        string   `json:"task"`
	SceneNumber string   `json:"scene_number"`
	Tags        []string `json:"tags"`
}

// ImagePrompt is the canonical structured image prompt record.
type ImagePrompt struct {
	Scene        string         `json:"scene"`
	Style        string         `json:"style"`
	Constraints  []string       `json:"constraints"`
	Shot         Shot           `json:"shot"`
	Lighting     Lighting       `json:"lighting"`
	ColorPalette ColorPalette   `json:"color_palette"`
	VisualRules  VisualRules    `json:"visual_rules"`
	Metadata     PromptMetadata `json:"metadata"`
}

// Empty reports whether the prompt lacks both a scene and a style.
func (p ImagePrompt) Empty() bool {
	return strings.TrimSpace(p.Scene) == "" && strings.TrimSpace(p.Style) == ""
}

// NormalizePrompt maps a loosely typed generator object onto ImagePrompt.
// Missing or mistyped fields become empty strings and empty non-nil lists.
func NormalizePrompt(raw map[string]any) ImagePrompt {
	shot := objectField(raw, "shot")
	lighting := objectField(raw, "lighting")
	palette := objectField(raw, "color_palette")
	rules := objectField(raw, "visual_rules")
	meta := objectField(raw, "metadata")

	return ImagePrompt{
		Scene:       stringField(raw, "scene"),
		Style:       stringField(raw, "style"),
		Constraints: listField(raw, "constraints"),
		Shot: Shot{
			Composition: stringField(shot, "composition"),
			Resolution:  stringField(shot, "resolution"),
			Lens:        stringField(shot, "lens"),
		},
		Lighting: Lighting{
			Primary:   stringField(lighting, "primary"),
			Secondary: stringField(lighting, "secondary"),
			Accents:   stringField(lighting, "accents"),
		},
		ColorPalette: ColorPalette{
			Background:   stringField(palette, "background"),
			InkPrimary:   stringField(palette, "ink_primary"),
			InkSecondary: stringField(palette, "ink_secondary"),
			TextPrimary:  stringField(palette, "text_primary"),
		},
		VisualRules: VisualRules{
			ProhibitedElements: listField(rules, "prohibited_elements"),
			Grain:              stringField(rules, "grain"),
			Sharpen:            stringField(rules, "sharpen"),
		},
		Metadata: PromptMetadata{
			Series:      stringField(meta, "series"),
			Task:        stringField(meta, "task"),
			SceneNumber: stringField(meta, "scene_number"),
			Tags:        listField(meta, "tags"),
		},
	}
}

// SceneNumber formats a 1-based index the way prompt files are numbered.
func SceneNumber(index int) string {
	return fmt.Sprintf("%02d", index)
}

func objectField(raw map[string]any, key string) map[string]any {
	if raw == nil {
		return nil
	}
	if v, ok := raw[key].(map[string]any); ok {
		return v
	}
	return nil
}

func stringField(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	return Stringify(raw[key])
}

func listField(raw map[string]any, key string) []string {
	out := []string{}
	if raw == nil {
		return out
	}
	switch v := raw[key].(type) {
	case []any:
		for _, item := range v {
			if s := strings.TrimSpace(Stringify(item)); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Stringify renders scalar JSON values as text; objects, arrays and null
// become the empty string.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
