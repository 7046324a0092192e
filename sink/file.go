package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/convosim/core"
)

// FileSink writes each record as an indented JSON file under
// <dir>/<scenario>/, named after the model, agent type and call ID so
// repeated runs in the same scenario never collide.
type FileSink struct {
	dir string
}

// NewFileSink creates a FileSink rooted at dir. The directory tree is created
// lazily per scenario on first write.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Write implements Sink.
func (s *FileSink) Write(_ context.Context, record *core.ConversationRecord) error {
	scenarioDir := filepath.Join(s.dir, sanitize(record.Scenario))

	if err := os.MkdirAll(scenarioDir, 0755); err != nil {
		return &core.SinkError{Sink: "file", Err: fmt.Errorf("creating %s: %w", scenarioDir, err)}
	}

	name := fmt.Sprintf("conversation-%s-%s-%s.json",
		sanitize(record.ModelName), sanitize(record.AgentType), record.CallID)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return &core.SinkError{Sink: "file", Err: fmt.Errorf("encoding record %s: %w", record.CallID, err)}
	}

	path := filepath.Join(scenarioDir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return &core.SinkError{Sink: "file", Err: fmt.Errorf("writing %s: %w", path, err)}
	}

	return nil
}

// sanitize maps record metadata to filesystem-safe path segments.
func sanitize(s string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "_")
	return replacer.Replace(s)
}
