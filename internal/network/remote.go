package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultRemoteURL = "http://127.0.0.1:5001"

type remoteConfig struct {
	URL        string `json:"url"`
	Checkpoint string `json:"checkpoint"`
	// TimeoutSeconds bounds each call to the sidecar; 0 means no limit.
	TimeoutSeconds int `json:"timeout_seconds"`
}

type remoteLoadRequest struct {
	Checkpoint string `json:"checkpoint"`
}

type remoteForwardRequest struct {
	Z             []float32 `json:"z"`
	C             []float32 `json:"c"`
	TruncationPsi float64   `json:"truncation_psi"`
	NoiseSeed     uint64    `json:"noise_seed"`
}

type remoteForwardResponse struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// remoteNetwork drives an inference sidecar that holds the real checkpoint.
type remoteNetwork struct {
	baseURL string
	client  *http.Client
	info    Info
}

func init() {
	Register("remote", createRemoteNetwork)
}

func createRemoteNetwork(args interface{}) (Network, error) {
	cfg := &remoteConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Checkpoint == "" {
		return nil, fmt.Errorf("remote network checkpoint is required")
	}
	if _, err := os.Stat(cfg.Checkpoint); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCheckpointMissing, cfg.Checkpoint)
		}
		return nil, fmt.Errorf("stat checkpoint: %w", err)
	}
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		baseURL = defaultRemoteURL
	}
	client := &http.Client{}
	if cfg.TimeoutSeconds > 0 {
		client.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return NewRemote(context.Background(), baseURL, cfg.Checkpoint, client)
}

// NewRemote asks the sidecar at baseURL to load checkpoint and records the
// dimensions it reports.
func NewRemote(ctx context.Context, baseURL, checkpoint string, client *http.Client) (Network, error) {
	if client == nil {
		client = http.DefaultClient
	}
	n := &remoteNetwork{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
	var info Info
	if err := n.post(ctx, "/load", remoteLoadRequest{Checkpoint: checkpoint}, &info); err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if info.ZDim <= 0 || info.CDim <= 0 {
		return nil, fmt.Errorf("%w: sidecar reported %+v", ErrCheckpointFormat, info)
	}
	n.info = info
	return n, nil
}

func (n *remoteNetwork) Name() string {
	return "remote"
}

func (n *remoteNetwork) Info() Info {
	return n.info
}

func (n *remoteNetwork) Forward(ctx context.Context, in Input) (*Tensor, error) {
	if err := checkInput(n.info, in); err != nil {
		return nil, err
	}
	req := remoteForwardRequest{
		Z:             in.Latent,
		C:             in.Condition,
		TruncationPsi: in.Truncation,
	}
	if in.Noise != nil {
		req.NoiseSeed = in.Noise.Uint64()
	}
	var out remoteForwardResponse
	if err := n.post(ctx, "/forward", req, &out); err != nil {
		return nil, err
	}
	t := &Tensor{Shape: out.Shape, Data: out.Data}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (n *remoteNetwork) post(ctx context.Context, path string, body interface{}, dst interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sidecar %s failed: %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
