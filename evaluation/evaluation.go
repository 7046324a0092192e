package evaluation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/model"
)

// DefaultInstructions is the scoring prompt used when none is configured.
// The grader is asked for a bare number so parsing stays trivial.
const DefaultInstructions = `You grade simulated customer service conversations for realism and quality.
Rate the following conversation on a scale from 1 to 10, where 10 means the
conversation is indistinguishable from a real one and fully resolves the
customer's issue. Reply with the numeric score only.`

// ScoredRecord pairs a conversation with its grade.
type ScoredRecord struct {
	Record *core.ConversationRecord
	Score  float64
}

// EvaluatorOptions configure an Evaluator instance.
type EvaluatorOptions struct {
	Instructions string
}

// Evaluator grades finalized conversations with a model. Scores are parsed
// tolerantly: the first number found in the reply wins, so chatty graders
// still produce usable results.
type Evaluator struct {
	llm          model.Model
	instructions string
}

// NewEvaluator creates an Evaluator backed by the given model.
func NewEvaluator(llm model.Model, optFns ...func(o *EvaluatorOptions)) *Evaluator {
	opts := EvaluatorOptions{
		Instructions: DefaultInstructions,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Evaluator{llm: llm, instructions: opts.Instructions}
}

// Score grades a single conversation.
func (e *Evaluator) Score(ctx context.Context, record *core.ConversationRecord) (float64, error) {
	transcript := transcriptOf(record)
	if transcript == "" {
		return 0, fmt.Errorf("record %s has no scorable turns", record.CallID)
	}

	resp, err := e.llm.Generate(ctx, model.Request{
		Instructions: e.instructions,
		Messages:     []model.Message{{Role: model.RoleUser, Content: transcript}},
	})
	if err != nil {
		return 0, fmt.Errorf("scoring record %s: %w", record.CallID, err)
	}

	score, ok := ParseScore(resp.Text)
	if !ok {
		return 0, &core.InvalidResponseError{Provider: e.llm.Info().Provider, Reason: fmt.Sprintf("no numeric score in %q", resp.Text)}
	}

	return score, nil
}

// ScoreAll grades every record, skipping those whose scoring fails.
func (e *Evaluator) ScoreAll(ctx context.Context, records []*core.ConversationRecord) []ScoredRecord {
	scored := make([]ScoredRecord, 0, len(records))

	for _, r := range records {
		score, err := e.Score(ctx, r)
		if err != nil {
			continue
		}
		scored = append(scored, ScoredRecord{Record: r, Score: score})
	}

	return scored
}

// ParseScore extracts the first number from a grader reply. Returns false
// when the reply contains none.
func ParseScore(text string) (float64, bool) {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != ','
	}) {
		field = strings.Trim(strings.ReplaceAll(field, ",", "."), ".")
		if field == "" {
			continue
		}
		if v, err := strconv.ParseFloat(field, 64); err == nil {
			return v, true
		}
	}

	return 0, false
}

// FilterByMediaType keeps records whose sampled communication channel matches.
func FilterByMediaType(records []*core.ConversationRecord, mediaType string) []*core.ConversationRecord {
	out := make([]*core.ConversationRecord, 0, len(records))

	for _, r := range records {
		if r.InputSettings.MediaType == mediaType {
			out = append(out, r)
		}
	}

	return out
}

// TopN returns the n best scored records, highest first. The input is not
// modified.
func TopN(scored []ScoredRecord, n int) []ScoredRecord {
	out := make([]ScoredRecord, len(scored))
	copy(out, scored)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if n < len(out) {
		out = out[:n]
	}

	return out
}

func transcriptOf(record *core.ConversationRecord) string {
	var sb strings.Builder

	for _, t := range record.History() {
		if t.Failed {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", t.Speaker, t.Content))
	}

	return strings.TrimSpace(sb.String())
}
