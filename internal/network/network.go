package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

var (
	ErrCheckpointMissing = errors.New("checkpoint not found")
	ErrCheckpointFormat  = errors.New("incompatible checkpoint")
	ErrShape             = errors.New("shape mismatch")
)

// Info describes the dimensions a loaded checkpoint declares.
type Info struct {
	ZDim       int `json:"z_dim"`
	CDim       int `json:"c_dim"`
	Resolution int `json:"resolution"`
	Channels   int `json:"channels"`
}

// Input is one forward pass. Noise is the general random stream the network
// may draw its own noise inputs from; it is seeded by the caller.
type Input struct {
	Latent     []float32
	Condition  []float32
	Truncation float64
	Noise      *rand.Rand
}

// Tensor is a single channel-first image, Shape = [C, H, W].
type Tensor struct {
	Shape []int
	Data  []float32
}

func (t *Tensor) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil tensor", ErrShape)
	}
	if len(t.Shape) != 3 {
		return fmt.Errorf("%w: expected [C,H,W], got %v", ErrShape, t.Shape)
	}
	size := 1
	for _, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("%w: non-positive dimension in %v", ErrShape, t.Shape)
		}
		size *= d
	}
	if size != len(t.Data) {
		return fmt.Errorf("%w: shape %v holds %d values, got %d", ErrShape, t.Shape, size, len(t.Data))
	}
	return nil
}

// Network is a loaded, pretrained class-conditional generator.
// Implementations must allow concurrent Forward calls.
type Network interface {
	Name() string
	Info() Info
	Forward(ctx context.Context, in Input) (*Tensor, error)
}

func checkInput(info Info, in Input) error {
	if len(in.Latent) != info.ZDim {
		return fmt.Errorf("%w: latent width %d, network expects %d", ErrShape, len(in.Latent), info.ZDim)
	}
	if len(in.Condition) != info.CDim {
		return fmt.Errorf("%w: condition width %d, network expects %d", ErrShape, len(in.Condition), info.CDim)
	}
	return nil
}

type Factory func(args interface{}) (Network, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

// New loads the named backend. Errors here are startup failures.
func New(name string, args interface{}) (Network, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("network.backend is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported network backend: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("network config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode network config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode network config: %w", err)
	}
	return nil
}
