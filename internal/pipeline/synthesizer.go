package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stockprompt/internal/domain"
	"stockprompt/internal/providers/genai"
)

const (
	DefaultAvoidWindow     = 40
	DefaultFingerprintLen  = 20
	DefaultPromptsPerBatch = 5

	avoidSceneRunes         = 100
	defaultSynthTemperature = 0.9
)

const synthesisSystemPrompt = `You write prompts for a text-to-image model that produces commercial stock imagery. Respond only with JSON of the form {"prompts":[...]} where each prompt has this shape: {"scene":string,"style":string,"constraints":string[],"shot":{"composition":string,"resolution":string,"lens":string},"lighting":{"primary":string,"secondary":string,"accents":string},"color_palette":{"background":string,"ink_primary":string,"ink_secondary":string,"text_primary":string},"visual_rules":{"prohibited_elements":string[],"grain":string,"sharpen":string},"metadata":{"series":string,"task":string,"scene_number":string,"tags":string[]}}. Every scene must be a distinct concept.`

// SynthesisRequest describes one synthesis run.
type SynthesisRequest struct {
	// Context is the market context, usually an analysis summary and keywords.
	Context string
	// Directives are style instructions, one per batch, cycled when there are
	// fewer directives than batches.
	Directives []string
	// BatchCount defaults to len(Directives).
	BatchCount int
	// PerBatch is how many prompts each batch asks for.
	PerBatch int
}

// SynthesizerOptions tunes deduplication and the avoidance hint.
type SynthesizerOptions struct {
	AvoidWindow     int
	FingerprintLen  int
	PromptsPerBatch int
	Temperature     float32
	Logger          *zerolog.Logger
}

// Synthesizer runs batches strictly in order: each batch's avoidance hint is
// built from everything accepted before it.
type Synthesizer struct {
	invoker        ModelInvoker
	avoidWindow    int
	fingerprintLen int
	perBatch       int
	temperature    float32
	logger         zerolog.Logger
}

func NewSynthesizer(invoker ModelInvoker, opts SynthesizerOptions) *Synthesizer {
	s := &Synthesizer{
		invoker:        invoker,
		avoidWindow:    opts.AvoidWindow,
		fingerprintLen: opts.FingerprintLen,
		perBatch:       opts.PromptsPerBatch,
		temperature:    opts.Temperature,
		logger:         zerolog.Nop(),
	}
	if s.avoidWindow <= 0 {
		s.avoidWindow = DefaultAvoidWindow
	}
	if s.fingerprintLen <= 0 {
		s.fingerprintLen = DefaultFingerprintLen
	}
	if s.perBatch <= 0 {
		s.perBatch = DefaultPromptsPerBatch
	}
	if s.temperature <= 0 {
		s.temperature = defaultSynthTemperature
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	return s
}

// Synthesize returns the deduplicated prompts from every batch. A failed
// model invocation aborts the run; a batch whose output cannot be parsed
// contributes nothing.
func (s *Synthesizer) Synthesize(ctx context.Context, req SynthesisRequest) ([]domain.ImagePrompt, error) {
	batches := req.BatchCount
	if batches <= 0 {
		batches = len(req.Directives)
	}
	if batches <= 0 {
		return nil, fmt.Errorf("%w: synthesis needs directives or a batch count", domain.ErrInvalidRequest)
	}
	perBatch := req.PerBatch
	if perBatch <= 0 {
		perBatch = s.perBatch
	}

	seen := make(map[string]struct{})
	accepted := make([]domain.ImagePrompt, 0, batches*perBatch)

	for b := 0; b < batches; b++ {
		directive := ""
		if len(req.Directives) > 0 {
			directive = req.Directives[b%len(req.Directives)]
		}
		genReq := s.batchRequest(req.Context, directive, perBatch, recentScenes(accepted, s.avoidWindow))
		resp, err := s.invoker.Invoke(ctx, genReq)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", b+1, err)
		}

		candidates := ParseObjects(resp.Text)
		added := 0
		for _, raw := range candidates {
			fp := Fingerprint(domain.Stringify(raw["scene"]), s.fingerprintLen)
			if _, dup := seen[fp]; dup {
				continue
			}
			seen[fp] = struct{}{}
			prompt := domain.NormalizePrompt(raw)
			if strings.TrimSpace(prompt.Metadata.SceneNumber) == "" {
				prompt.Metadata.SceneNumber = domain.SceneNumber(len(accepted) + 1)
			}
			accepted = append(accepted, prompt)
			added++
		}
		s.logger.Info().
			Int("batch", b+1).
			Int("batches", batches).
			Str("model", resp.Model).
			Int("candidates", len(candidates)).
			Int("accepted", added).
			Msg("pipeline: synthesis batch completed")
	}
	return accepted, nil
}

func (s *Synthesizer) batchRequest(market, directive string, count int, avoid []string) genai.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %d image prompts.\n", count)
	if c := strings.TrimSpace(market); c != "" {
		fmt.Fprintf(&sb, "\nMarket context:\n%s\n", c)
	}
	if d := strings.TrimSpace(directive); d != "" {
		fmt.Fprintf(&sb, "\nStyle direction for this batch:\n%s\n", d)
	}
	if len(avoid) > 0 {
		sb.WriteString("\nDo not repeat or closely paraphrase these existing scenes:\n")
		for _, scene := range avoid {
			fmt.Fprintf(&sb, "- %s\n", scene)
		}
	}
	return genai.Request{
		System:      synthesisSystemPrompt,
		Parts:       []genai.Part{genai.TextPart(sb.String())},
		Temperature: s.temperature,
		JSON:        true,
	}
}

// recentScenes returns the scenes of the last window prompts, shortened for
// the hint.
func recentScenes(prompts []domain.ImagePrompt, window int) []string {
	start := len(prompts) - window
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(prompts)-start)
	for _, p := range prompts[start:] {
		scene := strings.TrimSpace(p.Scene)
		if scene == "" {
			continue
		}
		if r := []rune(scene); len(r) > avoidSceneRunes {
			scene = string(r[:avoidSceneRunes]) + "..."
		}
		out = append(out, scene)
	}
	return out
}

// Fingerprint is the lowercase of the first n runes of scene. n <= 0 uses
// the whole scene.
func Fingerprint(scene string, n int) string {
	if n > 0 {
		if r := []rune(scene); len(r) > n {
			scene = string(r[:n])
		}
	}
	return cases.Lower(language.Und).String(scene)
}
