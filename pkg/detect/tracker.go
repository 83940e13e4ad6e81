// pkg/detect/tracker.go
package detect

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// FailureSample preserves one failed row for the run summary.
type FailureSample struct {
	RowNumber int
	Detail    string
}

// FailureTracker tallies model-call failures across a run. Individual
// failures are tolerated, but a streak of processing failures means the
// model server is down and the run should stop instead of burning the
// retry budget on every remaining row.
type FailureTracker struct {
	logger *zap.Logger

	mu                 sync.Mutex
	parseFailures      int
	processingFailures int
	consecutive        int
	maxConsecutive     int
	samples            []FailureSample
	maxSamples         int
}

// NewFailureTracker creates a tracker that aborts after 10 consecutive
// processing failures.
func NewFailureTracker(logger *zap.Logger) *FailureTracker {
	return &FailureTracker{
		logger:         logger,
		maxConsecutive: 10,
		maxSamples:     5,
	}
}

// WithMaxConsecutive sets the abort threshold. A non-positive value
// disables aborting.
func (t *FailureTracker) WithMaxConsecutive(n int) *FailureTracker {
	t.maxConsecutive = n
	return t
}

// RecordProcessingFailure notes a row whose model call failed outright.
func (t *FailureTracker) RecordProcessingFailure(rowNumber int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processingFailures++
	t.consecutive++
	t.addSample(rowNumber, err.Error())

	t.logger.Warn("Model call failed for row",
		zap.Int("rowNumber", rowNumber),
		zap.Int("consecutiveFailures", t.consecutive),
		zap.Error(err))
}

// RecordParseFailure notes a row whose reply could not be parsed. Parse
// failures do not count toward the abort streak; the server answered, just
// badly.
func (t *FailureTracker) RecordParseFailure(rowNumber int, raw string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.parseFailures++
	t.consecutive = 0
	t.addSample(rowNumber, "unparseable reply")

	t.logger.Warn("Unparseable model reply for row",
		zap.Int("rowNumber", rowNumber),
		zap.Int("replyLength", len(raw)))
}

// RecordSuccess resets the consecutive failure streak.
func (t *FailureTracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutive = 0
}

func (t *FailureTracker) addSample(rowNumber int, detail string) {
	if len(t.samples) < t.maxSamples {
		t.samples = append(t.samples, FailureSample{RowNumber: rowNumber, Detail: detail})
	}
}

// ShouldAbort reports whether the failure streak has crossed the
// threshold.
func (t *FailureTracker) ShouldAbort() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxConsecutive > 0 && t.consecutive >= t.maxConsecutive
}

// AbortReason describes why the tracker wants the run stopped.
func (t *FailureTracker) AbortReason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("%d consecutive model call failures", t.consecutive)
}

// Counts returns the parse and processing failure tallies.
func (t *FailureTracker) Counts() (parseFailures, processingFailures int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.parseFailures, t.processingFailures
}

// Samples returns up to five recorded failures.
func (t *FailureTracker) Samples() []FailureSample {
	t.mu.Lock()
	defer t.mu.Unlock()

	samples := make([]FailureSample, len(t.samples))
	copy(samples, t.samples)
	return samples
}
