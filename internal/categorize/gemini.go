package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
)

const (
	// DefaultModelName is the Gemini model used for classification.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultClassifyTimeout bounds a single classification call.
	DefaultClassifyTimeout = 45 * time.Second
)

// Item is one entry in a classification batch.
type Item struct {
	Description string
	Direction   domain.Direction
}

// Classifier assigns one label per item, preserving order. Implementations
// must return exactly len(items) labels or an error.
type Classifier interface {
	ClassifyBatch(ctx context.Context, items []Item) ([]string, error)
}

// GeminiClassifier labels transaction batches through the Gemini API. The
// client reads its API key from the environment (GEMINI_API_KEY or
// GOOGLE_API_KEY).
type GeminiClassifier struct {
	model   string
	timeout time.Duration
}

var _ Classifier = (*GeminiClassifier)(nil)

// NewGeminiClassifier creates a classifier for the given model. Empty model
// and zero timeout select the defaults.
func NewGeminiClassifier(model string, timeout time.Duration) *GeminiClassifier {
	if model == "" {
		model = DefaultModelName
	}
	if timeout <= 0 {
		timeout = DefaultClassifyTimeout
	}
	return &GeminiClassifier{model: model, timeout: timeout}
}

// NewGeminiClassifierFromEnv returns a classifier with default settings, or
// nil when no API key is configured. Callers must keep the nil check on the
// concrete type so a typed nil never hides inside a Classifier interface.
func NewGeminiClassifierFromEnv() *GeminiClassifier {
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return nil
	}
	return NewGeminiClassifier(DefaultModelName, DefaultClassifyTimeout)
}

// ClassifyBatch sends one prompt covering the whole batch and parses the
// JSON array of labels out of the response.
func (c *GeminiClassifier) ClassifyBatch(ctx context.Context, items []Item) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("ClassifyBatch: failed to create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildClassifyPrompt(items)},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("ClassifyBatch: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("ClassifyBatch: empty response from model")
	}

	var labels []string
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &labels); err != nil {
		return nil, fmt.Errorf("ClassifyBatch: failed to parse model response: %w", err)
	}
	if len(labels) != len(items) {
		return nil, fmt.Errorf("ClassifyBatch: model returned %d labels for %d transactions", len(labels), len(items))
	}
	return labels, nil
}

// buildClassifyPrompt renders the batch as a numbered list with an explicit
// output contract. One label per line keeps the mapping unambiguous for the
// model.
func buildClassifyPrompt(items []Item) string {
	var b strings.Builder
	b.WriteString("You classify personal finance transactions into spending categories.\n\n")
	b.WriteString("Use ONLY the following category labels:\n")
	for _, l := range CanonicalLabels {
		b.WriteString("- ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("\nTransactions:\n")
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, it.Description, it.Direction)
	}
	b.WriteString("\nRules:\n")
	b.WriteString("1. Return ONLY a valid raw JSON array of strings.\n")
	fmt.Fprintf(&b, "2. The array must contain exactly %d labels, one per transaction, in the same order.\n", len(items))
	b.WriteString("3. Copy each label exactly from the list above.\n")
	b.WriteString("4. Do NOT wrap the response in code fences.\n")
	b.WriteString("5. Do NOT include explanations or extra text.\n\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")
	return b.String()
}

// cleanModelJSON strips markdown code fences and any stray prose around the
// JSON array the model was asked for.
func cleanModelJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	s = strings.TrimSpace(s)

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start != -1 && end != -1 && end > start {
		s = s[start : end+1]
	}
	return s
}
