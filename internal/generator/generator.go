package generator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand/v2"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/artgan/internal/conditioning"
	"github.com/xxxsen/artgan/internal/network"
)

const MaxSeed = math.MaxUint32

// Stream ids for the two generators derived from one seed.
const (
	latentStream uint64 = 0x6c6174656e74
	noiseStream  uint64 = 0x6e6f697365
)

var ErrGeneration = errors.New("generation failed")

// Request is immutable once built; a nil Seed asks the service to draw one.
type Request struct {
	Labels     conditioning.Labels
	Seed       *uint32
	Truncation float64
}

type Result struct {
	Image *image.RGBA
	Seed  uint32
}

type Service struct {
	net  network.Network
	seed func() uint32
}

// New wraps a loaded network. A network whose conditioning input cannot hold
// the label layout is rejected here so the process never becomes ready.
func New(net network.Network) (*Service, error) {
	if net == nil {
		return nil, fmt.Errorf("network is required")
	}
	info := net.Info()
	if info.ZDim <= 0 {
		return nil, fmt.Errorf("%w: latent width %d", network.ErrCheckpointFormat, info.ZDim)
	}
	if info.CDim < conditioning.Width {
		return nil, fmt.Errorf("%w: conditioning width %d, need %d", network.ErrCheckpointFormat, info.CDim, conditioning.Width)
	}
	return &Service{net: net, seed: drawSeed}, nil
}

func (s *Service) Network() network.Network {
	return s.net
}

func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	info := s.net.Info()
	cond, err := conditioning.Encode(req.Labels, info.CDim)
	if err != nil {
		return nil, err
	}
	seed := s.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("artist", string(req.Labels.Artist)),
		zap.String("genre", string(req.Labels.Genre)),
		zap.String("style", string(req.Labels.Style)),
		zap.Uint32("seed", seed),
		zap.Float64("truncation", req.Truncation),
	)
	latentRNG, noiseRNG := seededStreams(seed)
	latent := make([]float32, info.ZDim)
	for i := range latent {
		latent[i] = float32(latentRNG.NormFloat64())
	}
	start := time.Now()
	out, err := s.net.Forward(ctx, network.Input{
		Latent:     latent,
		Condition:  cond,
		Truncation: req.Truncation,
		Noise:      noiseRNG,
	})
	if err != nil {
		logger.Error("network forward failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	img, err := ToImage(out)
	if err != nil {
		logger.Error("convert network output failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	logger.Debug("image generated", zap.Duration("duration", time.Since(start)), zap.Ints("shape", out.Shape))
	return &Result{Image: img, Seed: seed}, nil
}

func seededStreams(seed uint32) (*rand.Rand, *rand.Rand) {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, latentStream)), rand.New(rand.NewPCG(s, noiseStream))
}

func drawSeed() uint32 {
	return uint32(rand.Int64N(int64(MaxSeed) + 1))
}
