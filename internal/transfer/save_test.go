package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

type stubSaveAPI struct {
	ref       quark.ShareRef
	listing   *quark.ShareListing
	taskID    string
	task      *quark.TaskResult
	submitErr error

	submitted     bool
	submittedFids []string
	submittedToks []string
	submittedDest string
	awaited       string
	listCalls     int
}

func (s *stubSaveAPI) ResolveShare(_ context.Context, pwdID, passcode string) (quark.ShareRef, error) {
	return s.ref, nil
}

func (s *stubSaveAPI) ListShareDir(_ context.Context, _ quark.ShareRef, _ string) (*quark.ShareListing, error) {
	s.listCalls++
	return s.listing, nil
}

func (s *stubSaveAPI) SubmitSaveTask(_ context.Context, _ quark.ShareRef, fids, shareTokens []string, toPdirFid string) (string, error) {
	s.submitted = true
	s.submittedFids = fids
	s.submittedToks = shareTokens
	s.submittedDest = toPdirFid

	if s.submitErr != nil {
		return "", s.submitErr
	}

	return s.taskID, nil
}

func (s *stubSaveAPI) AwaitTask(_ context.Context, taskID string, _ int) (*quark.TaskResult, error) {
	s.awaited = taskID
	return s.task, nil
}

func TestCopyToStorage(t *testing.T) {
	api := &stubSaveAPI{
		ref: quark.ShareRef{PwdID: "abc123", Stoken: "st"},
		listing: &quark.ShareListing{Entries: []quark.Entry{
			dirEntry("d1", "season1"),
			fileEntry("f1", "readme.txt"),
			fileEntry("f2", "cover.jpg"),
		}},
		taskID: "task-77",
		task:   &quark.TaskResult{TaskID: "task-77", SavedTo: "incoming"},
	}

	saver := NewSaver(api, nil)

	result, err := saver.CopyToStorage(context.Background(), "abc123", "", "dest-9")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Files)
	assert.Equal(t, 1, result.Folders)
	assert.Equal(t, "task-77", result.TaskID)
	assert.Equal(t, "incoming", result.SavedTo)

	assert.Equal(t, []string{"d1", "f1", "f2"}, api.submittedFids)
	assert.Equal(t, []string{"tok-d1", "tok-f1", "tok-f2"}, api.submittedToks)
	assert.Equal(t, "dest-9", api.submittedDest)
	assert.Equal(t, "task-77", api.awaited)
	assert.Equal(t, 1, api.listCalls, "saving enumerates one level, directories transfer whole")
}

func TestCopyToStorage_AlreadyOwned(t *testing.T) {
	api := &stubSaveAPI{
		listing: &quark.ShareListing{
			IsOwner: true,
			Entries: []quark.Entry{fileEntry("f1", "mine.txt")},
		},
	}

	saver := NewSaver(api, nil)

	_, err := saver.CopyToStorage(context.Background(), "abc123", "", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyOwned)
	assert.False(t, api.submitted, "owned share must not submit a task")
}

func TestCopyToStorage_EmptyShare(t *testing.T) {
	api := &stubSaveAPI{listing: &quark.ShareListing{}}

	saver := NewSaver(api, nil)

	result, err := saver.CopyToStorage(context.Background(), "abc123", "", "0")
	require.NoError(t, err)
	assert.Zero(t, result.Files)
	assert.Zero(t, result.Folders)
	assert.Empty(t, result.TaskID)
	assert.False(t, api.submitted)
}

func TestCopyToStorage_MissingDestination(t *testing.T) {
	saver := NewSaver(&stubSaveAPI{}, nil)

	_, err := saver.CopyToStorage(context.Background(), "abc123", "", "")
	assert.ErrorIs(t, err, ErrInvalidDestination)
}
