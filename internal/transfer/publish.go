package transfer

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

// publishAttempts is the per-item attempt budget. No backoff between
// attempts beyond the pacing sleep and what the task poll imposes.
const publishAttempts = 3

// Outcome is the lifecycle state of one publish record.
type Outcome string

const (
	OutcomePending Outcome = "PENDING"
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
)

// ShareRecord is one row of a bulk-publish run. Sequence numbers are
// assigned in encounter order, strictly increasing, never reused.
type ShareRecord struct {
	Sequence   int
	ParentName string
	FolderName string
	Fid        string
	Outcome    Outcome
	ShareURL   string
	ErrMessage string
}

// PublishAPI is the slice of the drive client the publish orchestration
// needs.
type PublishAPI interface {
	ListFolder(ctx context.Context, pdirFid string, opts quark.ListOptions) ([]quark.Entry, error)
	SubmitShareTask(ctx context.Context, fid, title string, opts quark.ShareOptions) (string, error)
	AwaitTask(ctx context.Context, taskID string, maxAttempts int) (*quark.TaskResult, error)
	FinalizeShare(ctx context.Context, shareID string) (string, error)
}

// Publisher walks two levels of owned storage and emits a share link
// per second-level folder, recording every outcome in the ledgers.
type Publisher struct {
	api     PublishAPI
	ledgers *LedgerSet
	logger  *slog.Logger

	// sleepFunc paces share submissions. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewPublisher creates a Publisher writing to the given ledger set.
func NewPublisher(api PublishAPI, ledgers *LedgerSet, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		api:     api,
		ledgers: ledgers,
		logger:  logger,
		sleepFunc: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
}

// PublishTree publishes every second-level directory under rootFid.
// Level-1 files are ignored; level-2 files are not individually shared.
// Item failures are recorded in the failure ledger and never abort the
// run. Successes land in the results ledger as the run progresses, not
// buffered to the end.
func (p *Publisher) PublishTree(ctx context.Context, rootFid string, opts quark.ShareOptions) ([]ShareRecord, error) {
	runID := uuid.New().String()
	logger := p.logger.With(slog.String("run_id", runID))

	results, err := p.ledgers.OpenResults()
	if err != nil {
		return nil, err
	}
	defer results.Close()

	level1, err := p.api.ListFolder(ctx, rootFid, quark.PublishListOptions())
	if err != nil {
		return nil, err
	}

	var records []ShareRecord

	seq := 0

	for _, parent := range level1 {
		if !parent.IsDir {
			continue
		}

		level2, err := p.api.ListFolder(ctx, parent.Fid, quark.PublishListOptions())
		if err != nil {
			return records, err
		}

		for _, child := range level2 {
			if !child.IsDir {
				continue
			}

			seq++

			rec := p.publishOne(ctx, logger, seq, parent.Name, child.Name, child.Fid, opts)
			records = append(records, rec)

			if err := p.recordOutcome(results, rec); err != nil {
				return records, err
			}

			if ctx.Err() != nil {
				return records, ctx.Err()
			}
		}
	}

	logger.Info("publish run complete",
		slog.Int("published", countOutcome(records, OutcomeSuccess)),
		slog.Int("failed", countOutcome(records, OutcomeFailed)),
	)

	return records, nil
}

// RetryFailed replays the failure ledger, bypassing re-enumeration.
// Successes are appended to the retry results ledger; the failure
// ledger is rewritten with only the rows still pending.
func (p *Publisher) RetryFailed(ctx context.Context, opts quark.ShareOptions) ([]ShareRecord, error) {
	rows, err := p.ledgers.ReadRetryRows()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}

	results, err := p.ledgers.OpenRetryResults()
	if err != nil {
		return nil, err
	}
	defer results.Close()

	logger := p.logger.With(slog.String("run_id", uuid.New().String()))

	var (
		records []ShareRecord
		pending []RetryRow
	)

	for _, row := range rows {
		rec := p.publishOne(ctx, logger, row.Sequence, row.ParentName, row.FolderName, row.Fid, opts)
		records = append(records, rec)

		if rec.Outcome == OutcomeSuccess {
			if err := results.Append(rec); err != nil {
				return records, err
			}
		} else {
			pending = append(pending, row)
		}

		if ctx.Err() != nil {
			pending = append(pending, remainingRows(rows, len(records))...)
			break
		}
	}

	if err := p.ledgers.WriteRetryRows(pending); err != nil {
		return records, err
	}

	return records, nil
}

// publishOne runs the submit → poll → finalize chain for one folder
// with a bounded retry driver. Only retryable failures loop; capacity
// and missing-destination outcomes fail the item on the spot.
func (p *Publisher) publishOne(ctx context.Context, logger *slog.Logger, seq int, parent, folder, fid string, opts quark.ShareOptions) ShareRecord {
	rec := ShareRecord{
		Sequence:   seq,
		ParentName: parent,
		FolderName: folder,
		Fid:        fid,
		Outcome:    OutcomePending,
	}

	// Pacing happens inside each attempt; the driver itself adds no
	// extra backoff.
	backoff := retry.WithMaxRetries(publishAttempts-1, retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.sleepFunc(ctx, pacingInterval()); err != nil {
			return err
		}

		taskID, err := p.api.SubmitShareTask(ctx, fid, folder, opts)
		if err != nil {
			return markRetryable(err)
		}

		result, err := p.api.AwaitTask(ctx, taskID, 0)
		if err != nil {
			return markRetryable(err)
		}

		shareURL, err := p.api.FinalizeShare(ctx, result.ShareID)
		if err != nil {
			return markRetryable(err)
		}

		rec.ShareURL = shareURL

		return nil
	})
	if err != nil {
		rec.Outcome = OutcomeFailed
		rec.ErrMessage = err.Error()

		logger.Warn("publish item failed",
			slog.Int("sequence", seq),
			slog.String("folder", parent+"/"+folder),
			slog.String("error", err.Error()),
		)

		return rec
	}

	rec.Outcome = OutcomeSuccess

	logger.Info("published folder",
		slog.Int("sequence", seq),
		slog.String("folder", parent+"/"+folder),
	)

	return rec
}

// recordOutcome routes a finished record to the matching ledger.
func (p *Publisher) recordOutcome(results *Ledger, rec ShareRecord) error {
	if rec.Outcome == OutcomeSuccess {
		return results.Append(rec)
	}

	return p.ledgers.AppendRetry(rec)
}

// markRetryable wraps item errors for the retry driver. Capacity and
// missing-destination failures stay unwrapped: retrying them risks
// duplicate partial work.
func markRetryable(err error) error {
	if errors.Is(err, quark.ErrCapacityExceeded) || errors.Is(err, quark.ErrDestinationMissing) {
		return err
	}

	return retry.RetryableError(err)
}

// pacingInterval spaces share submissions out the way the web client
// does, picking from a small set of delays.
func pacingInterval() time.Duration {
	steps := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		1500 * time.Millisecond,
		2 * time.Second,
	}

	return steps[rand.IntN(len(steps))] //nolint:gosec // pacing does not need crypto rand
}

// countOutcome counts records with the given outcome.
func countOutcome(records []ShareRecord, outcome Outcome) int {
	n := 0

	for _, r := range records {
		if r.Outcome == outcome {
			n++
		}
	}

	return n
}

// remainingRows returns the rows not yet attempted after a canceled
// retry run, so they stay in the ledger.
func remainingRows(rows []RetryRow, attempted int) []RetryRow {
	if attempted >= len(rows) {
		return nil
	}

	return rows[attempted:]
}
