package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/liuyaboixixi/QuarkPanTool/internal/quark"
)

// SaveAPI is the slice of the drive client the save orchestration
// needs.
type SaveAPI interface {
	ResolveShare(ctx context.Context, pwdID, passcode string) (quark.ShareRef, error)
	ListShareDir(ctx context.Context, ref quark.ShareRef, pdirFid string) (*quark.ShareListing, error)
	SubmitSaveTask(ctx context.Context, ref quark.ShareRef, fids, shareTokens []string, toPdirFid string) (string, error)
	AwaitTask(ctx context.Context, taskID string, maxAttempts int) (*quark.TaskResult, error)
}

// SaveResult summarizes one copy-to-storage run.
type SaveResult struct {
	Files   int
	Folders int
	TaskID  string
	SavedTo string // destination folder name resolved by the server
}

// Saver copies shared content into the caller's own storage.
type Saver struct {
	api    SaveAPI
	enum   *Enumerator
	logger *slog.Logger
}

// NewSaver creates a Saver.
func NewSaver(api SaveAPI, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Saver{api: api, enum: NewEnumerator(api, logger), logger: logger}
}

// CopyToStorage saves every top-level item of a share into the
// destination folder. One level only: nested folders transfer as
// folders, the service preserves hierarchy server-side across the
// whole set.
//
// The share must not already be owned by the caller (ErrAlreadyOwned);
// the owner check happens before any task is submitted.
func (s *Saver) CopyToStorage(ctx context.Context, shareSlug, passcode, destFolderID string) (*SaveResult, error) {
	if destFolderID == "" {
		return nil, ErrInvalidDestination
	}

	ref, err := s.api.ResolveShare(ctx, shareSlug, passcode)
	if err != nil {
		return nil, err
	}

	listing, err := s.enum.EnumerateShare(ctx, ref, "0", OneLevel)
	if err != nil {
		return nil, fmt.Errorf("enumerating share: %w", err)
	}

	if listing.IsOwner {
		return nil, ErrAlreadyOwned
	}

	result := &SaveResult{}

	fids := make([]string, 0, len(listing.Entries))
	tokens := make([]string, 0, len(listing.Entries))

	for _, placed := range listing.Entries {
		e := placed.Entry

		fids = append(fids, e.Fid)
		tokens = append(tokens, e.ShareToken)

		if e.IsDir {
			result.Folders++
		} else {
			result.Files++
		}
	}

	if len(fids) == 0 {
		s.logger.Info("share is empty, nothing to save", slog.String("pwd_id", shareSlug))
		return result, nil
	}

	s.logger.Info("saving share",
		slog.String("pwd_id", shareSlug),
		slog.Int("files", result.Files),
		slog.Int("folders", result.Folders),
		slog.String("to_pdir_fid", destFolderID),
	)

	taskID, err := s.api.SubmitSaveTask(ctx, ref, fids, tokens, destFolderID)
	if err != nil {
		return nil, fmt.Errorf("submitting save task: %w", err)
	}

	result.TaskID = taskID

	taskResult, err := s.api.AwaitTask(ctx, taskID, 0)
	if err != nil {
		return nil, err
	}

	result.SavedTo = taskResult.SavedTo

	return result, nil
}
