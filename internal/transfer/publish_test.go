package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

// stubPublishAPI serves a fixed two-level tree and can be told to fail
// submissions for specific fids.
type stubPublishAPI struct {
	tree      map[string][]quark.Entry
	submitErr map[string]error // fid -> error returned on every submit

	submits map[string]int // fid -> submit attempt count
}

func (s *stubPublishAPI) ListFolder(_ context.Context, pdirFid string, _ quark.ListOptions) ([]quark.Entry, error) {
	return s.tree[pdirFid], nil
}

func (s *stubPublishAPI) SubmitShareTask(_ context.Context, fid, title string, _ quark.ShareOptions) (string, error) {
	if s.submits == nil {
		s.submits = map[string]int{}
	}
	s.submits[fid]++

	if err, ok := s.submitErr[fid]; ok {
		return "", err
	}

	return "task-" + fid, nil
}

func (s *stubPublishAPI) AwaitTask(_ context.Context, taskID string, _ int) (*quark.TaskResult, error) {
	fid := strings.TrimPrefix(taskID, "task-")
	return &quark.TaskResult{TaskID: taskID, ShareID: "share-" + fid}, nil
}

func (s *stubPublishAPI) FinalizeShare(_ context.Context, shareID string) (string, error) {
	return "https://pan.example.com/s/" + strings.TrimPrefix(shareID, "share-"), nil
}

func newTestPublisher(api PublishAPI, dir string) *Publisher {
	p := NewPublisher(api, NewLedgerSet(dir), nil)
	p.sleepFunc = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}

	return p
}

// twoByTwoTree returns a root with 2 level-1 folders, each holding 2
// level-2 folders plus a file that must be skipped.
func twoByTwoTree() map[string][]quark.Entry {
	return map[string][]quark.Entry{
		"0": {
			dirEntry("p1", "cartoons"),
			fileEntry("fx", "notes.txt"),
			dirEntry("p2", "movies"),
		},
		"p1": {dirEntry("c11", "s01"), dirEntry("c12", "s02"), fileEntry("fy", "poster.jpg")},
		"p2": {dirEntry("c21", "hd"), dirEntry("c22", "4k")},
	}
}

func TestPublishTree(t *testing.T) {
	api := &stubPublishAPI{tree: twoByTwoTree()}
	dir := t.TempDir()
	pub := newTestPublisher(api, dir)

	records, err := pub.PublishTree(context.Background(), "0", quark.ShareOptions{})
	require.NoError(t, err)
	require.Len(t, records, 4)

	wantFolders := []struct{ parent, folder, fid string }{
		{"cartoons", "s01", "c11"},
		{"cartoons", "s02", "c12"},
		{"movies", "hd", "c21"},
		{"movies", "4k", "c22"},
	}

	for i, want := range wantFolders {
		rec := records[i]
		assert.Equal(t, i+1, rec.Sequence, "sequence follows encounter order")
		assert.Equal(t, want.parent, rec.ParentName)
		assert.Equal(t, want.folder, rec.FolderName)
		assert.Equal(t, want.fid, rec.Fid)
		assert.Equal(t, OutcomeSuccess, rec.Outcome)
		assert.Equal(t, "https://pan.example.com/s/"+want.fid, rec.ShareURL)
	}

	// Every success lands in share_url.txt, nothing in retry.txt.
	data, err := os.ReadFile(NewLedgerSet(dir).ResultsPath())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "1 | cartoons | s01 | https://pan.example.com/s/c11", lines[0])
	assert.Equal(t, "4 | movies | 4k | https://pan.example.com/s/c22", lines[3])

	_, err = os.Stat(NewLedgerSet(dir).RetryPath())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestPublishTree_FailureGoesToRetryLedger(t *testing.T) {
	api := &stubPublishAPI{
		tree:      twoByTwoTree(),
		submitErr: map[string]error{"c12": fmt.Errorf("share: %w", quark.ErrTransport)},
	}
	dir := t.TempDir()
	pub := newTestPublisher(api, dir)

	records, err := pub.PublishTree(context.Background(), "0", quark.ShareOptions{})
	require.NoError(t, err, "item failures never abort the run")
	require.Len(t, records, 4)

	assert.Equal(t, OutcomeFailed, records[1].Outcome)
	assert.NotEmpty(t, records[1].ErrMessage)
	assert.Equal(t, 3, api.submits["c12"], "transport failures use the full attempt budget")

	for _, i := range []int{0, 2, 3} {
		assert.Equal(t, OutcomeSuccess, records[i].Outcome)
		assert.Equal(t, 1, api.submits[records[i].Fid])
	}

	// retry.txt holds exactly the failed item.
	rows, err := NewLedgerSet(dir).ReadRetryRows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, RetryRow{Sequence: 2, ParentName: "cartoons", FolderName: "s02", Fid: "c12"}, rows[0])

	// share_url.txt holds only the three successes.
	data, err := os.ReadFile(NewLedgerSet(dir).ResultsPath())
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)
}

func TestPublishTree_CapacityFailsWithoutRetry(t *testing.T) {
	api := &stubPublishAPI{
		tree:      twoByTwoTree(),
		submitErr: map[string]error{"c11": fmt.Errorf("capacity limit: %w", quark.ErrCapacityExceeded)},
	}
	dir := t.TempDir()
	pub := newTestPublisher(api, dir)

	records, err := pub.PublishTree(context.Background(), "0", quark.ShareOptions{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, records[0].Outcome)
	assert.Equal(t, 1, api.submits["c11"], "capacity outcome must not be retried")
}

func TestRetryFailed(t *testing.T) {
	dir := t.TempDir()
	ledgers := NewLedgerSet(dir)

	require.NoError(t, ledgers.WriteRetryRows([]RetryRow{
		{Sequence: 2, ParentName: "cartoons", FolderName: "s02", Fid: "c12"},
		{Sequence: 7, ParentName: "movies", FolderName: "4k", Fid: "c22"},
	}))

	api := &stubPublishAPI{
		tree:      map[string][]quark.Entry{},
		submitErr: map[string]error{"c22": fmt.Errorf("share: %w", quark.ErrTransport)},
	}
	pub := newTestPublisher(api, dir)

	records, err := pub.RetryFailed(context.Background(), quark.ShareOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, OutcomeSuccess, records[0].Outcome)
	assert.Equal(t, 2, records[0].Sequence, "replayed rows keep their original sequence")
	assert.Equal(t, OutcomeFailed, records[1].Outcome)

	// Ledger rewritten with only the still-failing row.
	rows, err := ledgers.ReadRetryRows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c22", rows[0].Fid)

	// The success went to the retry results file, not share_url.txt.
	data, err := os.ReadFile(ledgers.dir + "/" + retryResultsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2 | cartoons | s02 | https://pan.example.com/s/c12")

	_, err = os.Stat(ledgers.ResultsPath())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRetryFailed_EmptyLedger(t *testing.T) {
	pub := newTestPublisher(&stubPublishAPI{}, t.TempDir())

	records, err := pub.RetryFailed(context.Background(), quark.ShareOptions{})
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestPublishTree_Canceled(t *testing.T) {
	api := &stubPublishAPI{tree: twoByTwoTree()}
	pub := newTestPublisher(api, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := pub.PublishTree(ctx, "0", quark.ShareOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, len(records), 1)
}
