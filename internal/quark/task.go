package quark

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// Poll loop constants. The interval is randomized so a fleet of stuck
// clients does not hammer the task endpoint in lockstep.
const (
	defaultPollAttempts = 50
	pollMinInterval     = 500 * time.Millisecond
	pollMaxInterval     = time.Second
)

// taskStatusDone is the server's "done" sentinel for polled tasks.
const taskStatusDone = 2

// rootFolderLabel is the fallback destination name when the task result
// omits one (saves that land in the storage root).
const rootFolderLabel = "root"

type submitEnvelope struct {
	Status  int    `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

type taskEnvelope struct {
	Status  int    `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID    string `json:"task_id"`
		Status    int    `json:"status"`
		TaskTitle string `json:"task_title"`
		ShareID   string `json:"share_id"`
		SaveAs    struct {
			ToPdirName string `json:"to_pdir_name"`
		} `json:"save_as"`
	} `json:"data"`
}

// SubmitSaveTask submits one save-to-storage task covering every
// fid/token pair. Exactly one call; failure to obtain a task id is
// fatal for the operation — retry, if any, belongs to the caller.
func (c *Client) SubmitSaveTask(ctx context.Context, ref ShareRef, fids, shareTokens []string, toPdirFid string) (string, error) {
	body := map[string]any{
		"fid_list":       fids,
		"fid_token_list": shareTokens,
		"to_pdir_fid":    toPdirFid,
		"pwd_id":         ref.PwdID,
		"stoken":         ref.Stoken,
		"pdir_fid":       "0",
		"scene":          "link",
	}

	raw, err := c.doJSON(ctx, http.MethodPost, c.saveBase, "/share/sharepage/save", c.commonQuery(), body)
	if err != nil {
		return "", err
	}

	var env submitEnvelope
	if err := decodeEnvelope(raw, "/share/sharepage/save", &env); err != nil {
		return "", err
	}

	if env.Data.TaskID == "" {
		return "", apiError(env.Code, env.Message)
	}

	c.logger.Info("save task submitted",
		slog.String("task_id", env.Data.TaskID),
		slog.Int("items", len(fids)),
		slog.String("to_pdir_fid", toPdirFid),
	)

	return env.Data.TaskID, nil
}

// SubmitShareTask submits a share-creation task for one folder.
// A passcode is generated when the options demand encryption but
// supply none.
func (c *Client) SubmitShareTask(ctx context.Context, fid, title string, opts ShareOptions) (string, error) {
	body := map[string]any{
		"fid_list":     []string{fid},
		"title":        title,
		"url_type":     opts.URLType,
		"expired_type": opts.ExpiredType,
	}

	if opts.URLType == URLTypePasscode {
		passcode := opts.Passcode
		if passcode == "" {
			passcode = randomPasscode()
		}

		body["passcode"] = passcode
	}

	raw, err := c.doJSON(ctx, http.MethodPost, c.driveBase, "/share", c.commonQuery(), body)
	if err != nil {
		return "", err
	}

	var env submitEnvelope
	if err := decodeEnvelope(raw, "/share", &env); err != nil {
		return "", err
	}

	if env.Data.TaskID == "" {
		return "", apiError(env.Code, env.Message)
	}

	c.logger.Info("share task submitted",
		slog.String("task_id", env.Data.TaskID),
		slog.String("fid", fid),
		slog.String("title", title),
	)

	return env.Data.TaskID, nil
}

// AwaitTask polls a task until terminal state or the attempt budget
// runs out. Each poll sleeps a random interval in [500ms, 1s] first and
// sends the attempt index as retry_index so the server can detect
// stuck clients.
//
// Capacity-exceeded and missing-destination responses abort the loop
// immediately: retrying a capacity failure risks duplicate partial
// transfers. Other application errors keep polling. Exhausting the
// budget yields ErrTaskTimeout — the remote task may still finish
// out of band, and there is no cancel primitive in the wire protocol.
func (c *Client) AwaitTask(ctx context.Context, taskID string, maxAttempts int) (*TaskResult, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultPollAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.sleepFunc(ctx, pollInterval()); err != nil {
			return nil, fmt.Errorf("quark: task poll canceled: %w", err)
		}

		q := c.commonQuery()
		q.Set("task_id", taskID)
		q.Set("retry_index", strconv.Itoa(attempt))

		raw, err := c.doJSON(ctx, http.MethodGet, c.driveBase, "/task", q, nil)
		if err != nil {
			return nil, err
		}

		var env taskEnvelope
		if err := decodeEnvelope(raw, "/task", &env); err != nil {
			return nil, err
		}

		if env.Message == "ok" {
			if env.Data.Status != taskStatusDone {
				c.logger.Debug("task not terminal yet",
					slog.String("task_id", taskID),
					slog.Int("attempt", attempt+1),
					slog.Int("task_status", env.Data.Status),
				)

				continue
			}

			result := &TaskResult{
				TaskID:  taskID,
				ShareID: env.Data.ShareID,
				SavedTo: env.Data.SaveAs.ToPdirName,
			}
			if result.SavedTo == "" {
				result.SavedTo = rootFolderLabel
			}

			c.logger.Info("task complete",
				slog.String("task_id", taskID),
				slog.Int("attempts", attempt+1),
			)

			return result, nil
		}

		appErr := apiError(env.Code, env.Message)
		if appErr.Err != nil {
			// Non-retryable terminal failure.
			return nil, appErr
		}

		c.logger.Warn("task poll returned error, continuing",
			slog.String("task_id", taskID),
			slog.Int("attempt", attempt+1),
			slog.Int("code", env.Code),
			slog.String("message", env.Message),
		)
	}

	return nil, fmt.Errorf("quark: task %s after %d polls: %w", taskID, maxAttempts, ErrTaskTimeout)
}

// FinalizeShare exchanges a share id for its public URL, appending
// ?pwd=<code> when the share carries a passcode.
func (c *Client) FinalizeShare(ctx context.Context, shareID string) (string, error) {
	body := map[string]string{"share_id": shareID}

	raw, err := c.doJSON(ctx, http.MethodPost, c.driveBase, "/share/password", c.commonQuery(), body)
	if err != nil {
		return "", err
	}

	var env struct {
		Status  int    `json:"status"`
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			ShareURL string `json:"share_url"`
			Passcode string `json:"passcode"`
		} `json:"data"`
	}

	if err := decodeEnvelope(raw, "/share/password", &env); err != nil {
		return "", err
	}

	if env.Data.ShareURL == "" {
		return "", apiError(env.Code, env.Message)
	}

	shareURL := env.Data.ShareURL
	if env.Data.Passcode != "" {
		shareURL += "?pwd=" + env.Data.Passcode
	}

	return shareURL, nil
}

// pollInterval returns a random duration in [pollMinInterval, pollMaxInterval].
func pollInterval() time.Duration {
	spread := pollMaxInterval - pollMinInterval
	return pollMinInterval + time.Duration(rand.Int64N(int64(spread)+1)) //nolint:gosec // jitter does not need crypto rand
}

// passcodeAlphabet excludes visually ambiguous characters.
const passcodeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

// randomPasscode generates a 4-character share extraction code.
func randomPasscode() string {
	code := make([]byte, 4)
	for i := range code {
		code[i] = passcodeAlphabet[rand.IntN(len(passcodeAlphabet))] //nolint:gosec // short-lived share code
	}

	return string(code)
}
