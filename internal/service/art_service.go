package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/artgan/internal/filestore"
	"github.com/xxxsen/artgan/internal/generator"
)

const (
	FilePrefix = "generated_"
	FileExt    = ".png"
)

var ErrPersist = errors.New("persist image failed")

type GenerateResult struct {
	Key      string
	ImageURL string
	Seed     uint32
}

type ArtService struct {
	gen   *generator.Service
	store filestore.Store
}

func NewArtService(gen *generator.Service, store filestore.Store) *ArtService {
	return &ArtService{gen: gen, store: store}
}

func (s *ArtService) Generate(ctx context.Context, req generator.Request) (*GenerateResult, error) {
	logger := logutil.GetLogger(ctx)
	res, err := s.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := generator.EncodePNG(res.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	key := newImageKey()
	if err := s.store.Save(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		logger.Error("save generated image failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	logger.Info("generated image saved",
		zap.String("key", key),
		zap.Uint32("seed", res.Seed),
		zap.Int("bytes", len(data)),
	)
	return &GenerateResult{
		Key:      key,
		ImageURL: s.store.URL(key),
		Seed:     res.Seed,
	}, nil
}

// History lists stored generation keys, newest first.
func (s *ArtService) History(ctx context.Context) ([]string, error) {
	entries, err := s.store.List(ctx, FilePrefix)
	if err != nil {
		return nil, err
	}
	return lo.Map(entries, func(e filestore.Entry, _ int) string {
		return e.Key
	}), nil
}

// Prune deletes generated images last modified before cutoff.
func (s *ArtService) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := s.store.List(ctx, FilePrefix)
	if err != nil {
		return 0, err
	}
	expired := lo.Filter(entries, func(e filestore.Entry, _ int) bool {
		return e.ModTime.Before(cutoff)
	})
	removed := 0
	for _, e := range expired {
		if err := s.store.Delete(ctx, e.Key); err != nil {
			return removed, fmt.Errorf("delete %s: %w", e.Key, err)
		}
		removed++
	}
	return removed, nil
}

func (s *ArtService) Store() filestore.Store {
	return s.store
}

func newImageKey() string {
	return FilePrefix + uuid.NewString() + FileExt
}
