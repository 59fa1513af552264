package quark

import (
	"context"
	"log/slog"
	"net/http"
)

// CreateFolder creates a directory under pdirFid ("0" for the storage
// root) and returns its fid. Name collisions surface as ErrNameConflict.
func (c *Client) CreateFolder(ctx context.Context, pdirFid, name string) (string, error) {
	body := map[string]any{
		"pdir_fid":      pdirFid,
		"file_name":     name,
		"dir_path":      "",
		"dir_init_lock": false,
	}

	raw, err := c.doJSON(ctx, http.MethodPost, c.driveBase, "/file", c.commonQuery(), body)
	if err != nil {
		return "", err
	}

	var env struct {
		Status  int    `json:"status"`
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Fid string `json:"fid"`
		} `json:"data"`
	}

	if err := decodeEnvelope(raw, "/file", &env); err != nil {
		return "", err
	}

	if env.Code != codeOK {
		return "", apiError(env.Code, env.Message)
	}

	c.logger.Info("folder created",
		slog.String("pdir_fid", pdirFid),
		slog.String("name", name),
		slog.String("fid", env.Data.Fid),
	)

	return env.Data.Fid, nil
}
