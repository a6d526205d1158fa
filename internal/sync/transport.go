package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/angelmondragon/packfinderz-field/pkg/config"
	"github.com/angelmondragon/packfinderz-field/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-field/pkg/errors"
	"github.com/angelmondragon/packfinderz-field/pkg/types"
)

// Replayer issues one remote call for a queued operation. The payload is
// sent verbatim as the request body; the response body is ignored on
// success.
type Replayer interface {
	Replay(ctx context.Context, op enums.OperationType, payload json.RawMessage) error
}

// HTTPReplayer replays queue entries against the backend API.
type HTTPReplayer struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPReplayer builds the replay transport from remote config.
func NewHTTPReplayer(cfg config.RemoteConfig) *HTTPReplayer {
	return &HTTPReplayer{
		baseURL: cfg.BaseURL,
		token:   cfg.BearerToken,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (r *HTTPReplayer) Replay(ctx context.Context, op enums.OperationType, payload json.RawMessage) error {
	path, ok := EndpointFor(op)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnknownOperation, fmt.Sprintf("unknown queue item type %q", op))
	}

	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemote, err, "building replay request")
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemote, err, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return pkgerrors.New(pkgerrors.CodeRemote, serverMessage(resp))
}

// serverMessage prefers the backend's error envelope message, then falls
// back to the HTTP status line.
func serverMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(body) > 0 {
		var envelope types.ErrorEnvelope
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		var flat struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(body, &flat); jsonErr == nil && flat.Message != "" {
			return flat.Message
		}
	}
	return fmt.Sprintf("request failed with status %s", resp.Status)
}
