package network

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
)

const LinearFormat = "artgan-linear/v1"

// LinearCheckpoint maps [z; c] to C*H*W outputs with one dense layer.
// Weights is row-major, one row of ZDim+CDim values per output.
type LinearCheckpoint struct {
	Format        string
	Info          Info
	NoiseStrength float32
	Mean          []float32
	Bias          []float32
	Weights       []float32
}

type linearConfig struct {
	Checkpoint string `json:"checkpoint"`
}

type linearNetwork struct {
	ckpt *LinearCheckpoint
	cols int
}

func init() {
	Register("linear", createLinearNetwork)
}

func createLinearNetwork(args interface{}) (Network, error) {
	cfg := &linearConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Checkpoint == "" {
		return nil, fmt.Errorf("linear network checkpoint is required")
	}
	ckpt, err := LoadLinearCheckpoint(cfg.Checkpoint)
	if err != nil {
		return nil, err
	}
	return NewLinear(ckpt)
}

func NewLinear(ckpt *LinearCheckpoint) (Network, error) {
	if err := ckpt.validate(); err != nil {
		return nil, err
	}
	return &linearNetwork{ckpt: ckpt, cols: ckpt.Info.ZDim + ckpt.Info.CDim}, nil
}

func (n *linearNetwork) Name() string {
	return "linear"
}

func (n *linearNetwork) Info() Info {
	return n.ckpt.Info
}

func (n *linearNetwork) Forward(ctx context.Context, in Input) (*Tensor, error) {
	info := n.ckpt.Info
	if err := checkInput(info, in); err != nil {
		return nil, err
	}
	x := make([]float64, 0, n.cols)
	for _, v := range in.Latent {
		x = append(x, float64(v))
	}
	for _, v := range in.Condition {
		x = append(x, float64(v))
	}
	psi := in.Truncation
	pixels := info.Resolution * info.Resolution
	out := make([]float32, info.Channels*pixels)
	for o := range out {
		if o%pixels == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := n.ckpt.Weights[o*n.cols : (o+1)*n.cols]
		h := float64(n.ckpt.Bias[o])
		for j, w := range row {
			h += float64(w) * x[j]
		}
		mean := float64(n.ckpt.Mean[o])
		h = mean + psi*(h-mean)
		if n.ckpt.NoiseStrength > 0 && in.Noise != nil {
			h += float64(n.ckpt.NoiseStrength) * in.Noise.NormFloat64()
		}
		out[o] = float32(math.Tanh(h))
	}
	return &Tensor{
		Shape: []int{info.Channels, info.Resolution, info.Resolution},
		Data:  out,
	}, nil
}

func (c *LinearCheckpoint) validate() error {
	if c == nil {
		return fmt.Errorf("%w: empty checkpoint", ErrCheckpointFormat)
	}
	if c.Format != LinearFormat {
		return fmt.Errorf("%w: format %q, want %q", ErrCheckpointFormat, c.Format, LinearFormat)
	}
	info := c.Info
	if info.ZDim <= 0 || info.CDim <= 0 || info.Resolution <= 0 {
		return fmt.Errorf("%w: invalid dimensions %+v", ErrCheckpointFormat, info)
	}
	if info.Channels != 1 && info.Channels != 3 {
		return fmt.Errorf("%w: unsupported channel count %d", ErrCheckpointFormat, info.Channels)
	}
	outputs := info.Channels * info.Resolution * info.Resolution
	if len(c.Mean) != outputs || len(c.Bias) != outputs {
		return fmt.Errorf("%w: expected %d mean/bias values", ErrCheckpointFormat, outputs)
	}
	if len(c.Weights) != outputs*(info.ZDim+info.CDim) {
		return fmt.Errorf("%w: expected %d weights, got %d", ErrCheckpointFormat, outputs*(info.ZDim+info.CDim), len(c.Weights))
	}
	return nil
}

func LoadLinearCheckpoint(path string) (*LinearCheckpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCheckpointMissing, path)
		}
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer file.Close()
	return ReadLinearCheckpoint(file)
}

func ReadLinearCheckpoint(r io.Reader) (*LinearCheckpoint, error) {
	ckpt := &LinearCheckpoint{}
	if err := gob.NewDecoder(r).Decode(ckpt); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCheckpointFormat, err)
	}
	if err := ckpt.validate(); err != nil {
		return nil, err
	}
	return ckpt, nil
}

func (c *LinearCheckpoint) Write(w io.Writer) error {
	if err := c.validate(); err != nil {
		return err
	}
	return gob.NewEncoder(w).Encode(c)
}

func SaveLinearCheckpoint(path string, ckpt *LinearCheckpoint) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ckpt.Write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// RandomLinearCheckpoint builds a checkpoint with weights drawn from seed.
func RandomLinearCheckpoint(info Info, seed uint64) *LinearCheckpoint {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	cols := info.ZDim + info.CDim
	outputs := info.Channels * info.Resolution * info.Resolution
	scale := 1.5 / math.Sqrt(float64(info.ZDim))
	ckpt := &LinearCheckpoint{
		Format:        LinearFormat,
		Info:          info,
		NoiseStrength: 0.05,
		Mean:          make([]float32, outputs),
		Bias:          make([]float32, outputs),
		Weights:       make([]float32, outputs*cols),
	}
	for o := 0; o < outputs; o++ {
		ckpt.Mean[o] = float32(rng.NormFloat64() * 0.3)
		ckpt.Bias[o] = float32(rng.NormFloat64() * 0.1)
		for j := 0; j < cols; j++ {
			w := rng.NormFloat64() * scale
			if j >= info.ZDim {
				w = rng.NormFloat64() * 0.5
			}
			ckpt.Weights[o*cols+j] = float32(w)
		}
	}
	return ckpt
}
