package classifier

import (
	"context"
	"log"
	"regexp"
	"strings"
	"sync"

	"diane/internal/models"
)

const (
	maxTitleLen    = 90
	untitledTitle  = "Untitled"
	wakeWordPrefix = "diane "
)

// defaultTagMap maps inline #tags to kinds. Multiple spellings may map to
// the same kind. Keys are lowercase.
var defaultTagMap = map[string]models.Kind{
	"dev": models.KindBugOrDevTask,
	"bug": models.KindBugOrDevTask,
	"fix": models.KindBugOrDevTask,

	"crm":     models.KindRelationshipAction,
	"lead":    models.KindRelationshipAction,
	"contact": models.KindRelationshipAction,

	"demo": models.KindPresentationPrep,
	"prep": models.KindPresentationPrep,

	"biz":      models.KindOperationsTask,
	"business": models.KindOperationsTask,
	"ops":      models.KindOperationsTask,
	"finance":  models.KindOperationsTask,

	"note": models.KindGenericNote,
	"idea": models.KindGenericNote,
}

var (
	tagPattern       = regexp.MustCompile(`#([a-zA-Z0-9_]+)`)
	tagRemovePattern = regexp.MustCompile(`\s*#[a-zA-Z0-9_]+\b`)
	multiSpace       = regexp.MustCompile(`[ \t]{2,}`)
	multiNewline     = regexp.MustCompile("\n{3,}")
	wakeWordPattern  = regexp.MustCompile(`(?i)^\s*diane\s+`)
)

// Classifier turns raw note text into a Decision. Rule precedence:
// explicit #tag, then the LLM (when configured), then keyword heuristics.
// Classify never fails; every input yields a valid kind.
type Classifier struct {
	llm *LLMClient // nil when no API key is configured

	mu     sync.RWMutex
	tagMap map[string]models.Kind
}

// New creates a classifier. llm may be nil to disable the model rule.
func New(llm *LLMClient) *Classifier {
	tags := make(map[string]models.Kind, len(defaultTagMap))
	for t, k := range defaultTagMap {
		tags[t] = k
	}
	return &Classifier{llm: llm, tagMap: tags}
}

// SetTagOverrides merges tag overrides on top of the built-in map.
// Override values outside the closed kind set are rejected.
func (c *Classifier) SetTagOverrides(overrides map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tags := make(map[string]models.Kind, len(defaultTagMap)+len(overrides))
	for t, k := range defaultTagMap {
		tags[t] = k
	}
	applied := 0
	for tag, kind := range overrides {
		if !models.IsValidKind(kind) {
			log.Printf("⚠️ [CLASSIFIER] Ignoring tag override %q: unknown kind %q", tag, kind)
			continue
		}
		tags[strings.ToLower(strings.TrimSpace(tag))] = models.ParseKind(kind)
		applied++
	}
	c.tagMap = tags
	log.Printf("✅ [CLASSIFIER] Tag map reloaded (%d overrides applied)", applied)
}

// Classify decides a kind, title, cleaned content, confidence and reason
// for the given note text
func (c *Classifier) Classify(ctx context.Context, text string) models.Decision {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Decision{
			Kind:       models.KindGenericNote,
			Title:      untitledTitle,
			Content:    "",
			Confidence: 0.0,
			Reason:     "empty",
		}
	}

	if decision, ok := c.classifyByTag(text); ok {
		return decision
	}

	if c.llm != nil {
		decision, err := c.llm.Classify(ctx, removeTags(text), deriveTitle(removeTags(text)))
		if err == nil {
			return decision
		}
		// Never break ingestion: fall back to the heuristic and keep a
		// diagnostic marker in the reason so operators can see the failure.
		log.Printf("⚠️ [CLASSIFIER] LLM classification failed, using heuristic: %v", err)
		fallback := c.classifyByHeuristic(text)
		fallback.Reason = fallback.Reason + " | llm_error: " + errorMarker(err)
		return fallback
	}

	return c.classifyByHeuristic(text)
}

// classifyByTag applies the deterministic #tag rule. The first recognized
// tag wins; all hash tokens are stripped from the content either way.
func (c *Classifier) classifyByTag(text string) (models.Decision, bool) {
	c.mu.RLock()
	tags := c.tagMap
	c.mu.RUnlock()

	for _, match := range tagPattern.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(match[1])
		kind, ok := tags[tag]
		if !ok {
			continue
		}
		cleaned := removeTags(text)
		return models.Decision{
			Kind:       kind,
			Title:      deriveTitle(cleaned),
			Content:    cleaned,
			Confidence: 0.95,
			Reason:     "tag: #" + tag,
		}, true
	}
	return models.Decision{}, false
}

// heuristicGroup is one ordered keyword bucket of the fallback rule
type heuristicGroup struct {
	kind       models.Kind
	confidence float64
	reason     string
	keywords   []string
}

// heuristicGroups are tested in order; the first hit wins
var heuristicGroups = []heuristicGroup{
	{models.KindBugOrDevTask, 0.7, "heuristic: bug/fix terms",
		[]string{"bug", "error", "stacktrace", "doesn't work", "does not work", "broken", "fix", "crash"}},
	{models.KindOperationsTask, 0.65, "heuristic: outreach terms",
		[]string{"follow up", "follow-up", "reach out", "email", "dm", "linkedin", "prospect", "pipeline"}},
	{models.KindPresentationPrep, 0.65, "heuristic: demo/prep terms",
		[]string{"demo", "agenda", "deck", "pitch", "prep"}},
	{models.KindRelationshipAction, 0.65, "heuristic: crm/contact terms",
		[]string{"crm", "lead", "kontakt", "contact", "account", "opportunity"}},
}

func (c *Classifier) classifyByHeuristic(text string) models.Decision {
	lower := strings.ToLower(text)

	kind := models.KindGenericNote
	confidence := 0.55
	reason := "heuristic: default"

	for _, group := range heuristicGroups {
		if containsAny(lower, group.keywords) {
			kind = group.kind
			confidence = group.confidence
			reason = group.reason
			break
		}
	}

	cleaned := removeTags(text)
	return models.Decision{
		Kind:       kind,
		Title:      deriveTitle(cleaned),
		Content:    cleaned,
		Confidence: confidence,
		Reason:     reason,
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// removeTags strips hash tokens and keeps spacing readable
func removeTags(text string) string {
	out := tagRemovePattern.ReplaceAllString(text, "")
	out = multiSpace.ReplaceAllString(out, " ")
	out = multiNewline.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// deriveTitle builds a short title from the first non-empty line, dropping
// the "diane" wake word when the note starts with it
func deriveTitle(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return untitledTitle
	}
	first := text
	if idx := strings.IndexByte(first, '\n'); idx >= 0 {
		first = first[:idx]
	}
	first = strings.TrimSpace(wakeWordPattern.ReplaceAllString(first, ""))
	if first == "" {
		return untitledTitle
	}
	return truncateRunes(first, maxTitleLen)
}

// truncateRunes cuts s to at most n characters without splitting a
// multi-byte rune
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// errorMarker reduces an LLM failure to a short token suitable for the
// decision reason field
func errorMarker(err error) string {
	switch {
	case strings.Contains(err.Error(), "parse"):
		return "bad_response"
	case strings.Contains(err.Error(), "context deadline"):
		return "timeout"
	default:
		return "request_failed"
	}
}
