package evaluation

import (
	"context"
	"testing"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/internal/testutil"
	"github.com/hupe1980/convosim/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{name: "bare number", text: "8", want: 8, ok: true},
		{name: "float", text: "7.5", want: 7.5, ok: true},
		{name: "german decimal comma", text: "7,5", want: 7.5, ok: true},
		{name: "chatty grader", text: "I would rate this conversation a 9 out of 10.", want: 9, ok: true},
		{name: "trailing period", text: "Score: 6.", want: 6, ok: true},
		{name: "no number", text: "quite realistic", ok: false},
		{name: "empty", text: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseScore(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func conversation(t *testing.T, mediaType string) *core.ConversationRecord {
	t.Helper()

	record := testutil.NewRecordBuilder().
		MediaType(mediaType).
		Exchange("Hallo, meine Karte ist weg.", "Ich sperre die Karte sofort.").
		Build()
	record.Finalize(core.StatusCompleted, "")

	return record
}

func TestEvaluator_Score(t *testing.T) {
	grader := model.NewMockModel("mock-model", "mock")
	grader.Script("8.5")

	evaluator := NewEvaluator(grader)

	score, err := evaluator.Score(context.Background(), conversation(t, "chat"))

	require.NoError(t, err)
	assert.Equal(t, 8.5, score)
}

func TestEvaluator_Score_EmptyRecord(t *testing.T) {
	grader := model.NewMockModel("mock-model", "mock")
	evaluator := NewEvaluator(grader)

	record := testutil.NewRecordBuilder().Build()
	record.Finalize(core.StatusAborted, "cancelled")

	_, err := evaluator.Score(context.Background(), record)

	require.Error(t, err)
	assert.Equal(t, 0, grader.Calls())
}

func TestEvaluator_Score_UnparsableReply(t *testing.T) {
	grader := model.NewMockModel("mock-model", "mock")
	grader.Script("hard to say")

	evaluator := NewEvaluator(grader)

	_, err := evaluator.Score(context.Background(), conversation(t, "chat"))

	var ire *core.InvalidResponseError
	assert.ErrorAs(t, err, &ire)
}

func TestEvaluator_ScoreAll_SkipsFailures(t *testing.T) {
	grader := model.NewMockModel("mock-model", "mock")
	grader.Script("9", "no idea", "4")

	evaluator := NewEvaluator(grader)

	records := []*core.ConversationRecord{
		conversation(t, "chat"),
		conversation(t, "chat"),
		conversation(t, "chat"),
	}

	scored := evaluator.ScoreAll(context.Background(), records)

	require.Len(t, scored, 2)
	assert.Equal(t, 9.0, scored[0].Score)
	assert.Equal(t, 4.0, scored[1].Score)
}

func TestFilterByMediaType(t *testing.T) {
	records := []*core.ConversationRecord{
		conversation(t, "phone call"),
		conversation(t, "chat"),
		conversation(t, "phone call"),
	}

	filtered := FilterByMediaType(records, "phone call")

	require.Len(t, filtered, 2)
	for _, r := range filtered {
		assert.Equal(t, "phone call", r.InputSettings.MediaType)
	}
}

func TestTopN(t *testing.T) {
	scored := []ScoredRecord{
		{Score: 3},
		{Score: 9},
		{Score: 7},
	}

	top := TopN(scored, 2)

	require.Len(t, top, 2)
	assert.Equal(t, 9.0, top[0].Score)
	assert.Equal(t, 7.0, top[1].Score)

	// Input order is untouched.
	assert.Equal(t, 3.0, scored[0].Score)
}

func TestTopN_FewerThanN(t *testing.T) {
	top := TopN([]ScoredRecord{{Score: 5}}, 10)
	assert.Len(t, top, 1)
}
