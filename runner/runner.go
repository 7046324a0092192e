package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/logging"
	"github.com/hupe1980/convosim/model"
	"github.com/hupe1980/convosim/sink"
)

// Abort reasons recorded on the conversation when a run does not complete.
const (
	AbortReasonCancelled           = "cancelled"
	AbortReasonConsecutiveFailures = "consecutive step failures"
	AbortReasonNoTurns             = "no successful turns"
)

// Options configure an Orchestrator.
type Options struct {
	// Iterations is the total number of turns the conversation may reach.
	Iterations int
	// MaxConsecutiveFailures aborts the run once this many steps in a row
	// have produced failure sentinels.
	MaxConsecutiveFailures int
	// StepTimeout bounds each agent step. Zero disables the per-step bound.
	StepTimeout time.Duration
	// SummaryModel, when set together with SummaryPrompt, generates a
	// post-run reflection summary. Summary failures never fail the run.
	SummaryModel  model.Model
	SummaryPrompt string
	Logger        logging.Logger
	// Sink receives the finalized record. FallbackSink, when set, receives
	// it instead if the primary sink fails.
	Sink         sink.Sink
	FallbackSink sink.Sink
}

// Orchestrator drives one conversation: it steps the participants round-robin
// for up to Iterations turns, converts step failures into failure sentinels,
// honors cooperative cancellation between turns and hands the finalized
// record to the sink.
type Orchestrator struct {
	participants []core.Agent
	opts         Options
}

// New validates the configuration and creates an Orchestrator. The
// participants step in the given order, one turn each, repeating.
func New(participants []core.Agent, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		Iterations:             10,
		MaxConsecutiveFailures: 3,
		Logger:                 logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if len(participants) == 0 {
		return nil, core.Configf("at least one participant is required")
	}

	if opts.Iterations <= 0 {
		return nil, core.Configf("iterations must be positive, got %d", opts.Iterations)
	}

	if opts.MaxConsecutiveFailures <= 0 {
		return nil, core.Configf("max consecutive failures must be positive, got %d", opts.MaxConsecutiveFailures)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Orchestrator{participants: participants, opts: opts}, nil
}

// Run executes the conversation against the given record, which must be
// freshly initialized. The record is always finalized and, when a sink is
// configured, always handed off, whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context, record *core.ConversationRecord) error {
	record.Begin()

	o.opts.Logger.Info("run %s started: scenario=%s agent_type=%s iterations=%d",
		record.RunID, record.Scenario, record.AgentType, record.Iterations)

	status, abortReason := o.loop(ctx, record)

	if status == core.StatusCompleted {
		o.summarize(ctx, record)
	}

	record.Finalize(status, abortReason)

	o.opts.Logger.Info("run %s finished: status=%s turns=%d", record.RunID, status, record.TurnCount())

	return o.deliver(ctx, record)
}

// loop produces turns until the iteration budget is spent, a participant
// requests termination, failures pile up or the context is cancelled.
func (o *Orchestrator) loop(ctx context.Context, record *core.ConversationRecord) (core.RunStatus, string) {
	consecutiveFailures := 0

	for i := 0; i < o.opts.Iterations; i++ {
		// Cancellation checkpoint between turns: the partial transcript
		// up to here stays intact.
		select {
		case <-ctx.Done():
			o.opts.Logger.Warn("run %s cancelled after %d turns", record.RunID, record.TurnCount())
			return core.StatusAborted, AbortReasonCancelled
		default:
		}

		participant := o.participants[i%len(o.participants)]

		turn, err := o.step(ctx, participant, record, i)
		if err != nil {
			consecutiveFailures++

			o.opts.Logger.Error("run %s iteration %d: step by %s failed (%d consecutive): %v",
				record.RunID, i, participant.Name(), consecutiveFailures, err)

			sentinel := core.NewFailedTurn(record.RunID, participant.Name(), i, err)
			if appendErr := record.AppendTurn(sentinel); appendErr != nil {
				return core.StatusAborted, appendErr.Error()
			}

			if consecutiveFailures >= o.opts.MaxConsecutiveFailures {
				return core.StatusAborted, AbortReasonConsecutiveFailures
			}

			continue
		}

		consecutiveFailures = 0

		terminated := turn.RequestsTermination()
		if terminated {
			turn = turn.StripTermination()
		}

		if err := record.AppendTurn(turn); err != nil {
			return core.StatusAborted, err.Error()
		}

		o.opts.Logger.Debug("run %s iteration %d: %s spoke (%d chars)",
			record.RunID, i, participant.Name(), len(turn.Content))

		if terminated {
			o.opts.Logger.Info("run %s: %s requested termination at iteration %d",
				record.RunID, participant.Name(), i)
			break
		}
	}

	// A completed conversation has at least one successful turn. A budget
	// spent entirely on failure sentinels is an abort, even when the failures
	// never ran consecutively into the threshold.
	if record.TurnCount() == 0 {
		return core.StatusAborted, AbortReasonNoTurns
	}

	return core.StatusCompleted, ""
}

// step invokes one participant under the configured per-step timeout and
// normalizes failures to StepFailedError.
func (o *Orchestrator) step(ctx context.Context, participant core.Agent, record *core.ConversationRecord, iteration int) (core.Turn, error) {
	if o.opts.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.StepTimeout)
		defer cancel()
	}

	sc := core.NewStepContext(record.RunID, iteration, record.History(), o.opts.Logger)

	turn, err := participant.Step(ctx, sc)
	if err != nil {
		var stepErr *core.StepFailedError
		if errors.As(err, &stepErr) {
			return core.Turn{}, err
		}
		return core.Turn{}, &core.StepFailedError{Agent: participant.Name(), Err: err}
	}

	return turn, nil
}

// summarize generates the post-run reflection summary. Best effort: a failing
// summary model leaves the record without one.
func (o *Orchestrator) summarize(ctx context.Context, record *core.ConversationRecord) {
	if o.opts.SummaryModel == nil || o.opts.SummaryPrompt == "" {
		return
	}

	transcript := core.NewStepContext(record.RunID, record.TurnCount(), record.History(), o.opts.Logger).Transcript()
	if transcript == "" {
		return
	}

	resp, err := o.opts.SummaryModel.Generate(ctx, model.Request{
		Instructions: o.opts.SummaryPrompt,
		Messages:     []model.Message{{Role: model.RoleUser, Content: transcript}},
	})
	if err != nil {
		o.opts.Logger.Warn("run %s: summary generation failed: %v", record.RunID, err)
		return
	}

	record.SetSummary(resp.Text)
}

// deliver hands the finalized record to the sink, falling back once when the
// primary write fails.
func (o *Orchestrator) deliver(ctx context.Context, record *core.ConversationRecord) error {
	if o.opts.Sink == nil {
		return nil
	}

	err := o.opts.Sink.Write(ctx, record)
	if err == nil {
		return nil
	}

	o.opts.Logger.Error("run %s: sink write failed: %v", record.RunID, err)

	if o.opts.FallbackSink == nil {
		return err
	}

	if fbErr := o.opts.FallbackSink.Write(ctx, record); fbErr != nil {
		return fmt.Errorf("fallback sink failed: %w (primary: %v)", fbErr, err)
	}

	o.opts.Logger.Warn("run %s: record delivered to fallback sink", record.RunID)

	return nil
}
