package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/artgan/internal/conditioning"
	"github.com/xxxsen/artgan/internal/config"
	"github.com/xxxsen/artgan/internal/filestore"
	"github.com/xxxsen/artgan/internal/generator"
	"github.com/xxxsen/artgan/internal/network"
)

func newTestService(t *testing.T) (*ArtService, string) {
	t.Helper()
	net, err := network.NewLinear(network.RandomLinearCheckpoint(network.Info{
		ZDim: 8, CDim: conditioning.Width, Resolution: 4, Channels: 3,
	}, 3))
	require.NoError(t, err)
	gen, err := generator.New(net)
	require.NoError(t, err)
	dir := t.TempDir()
	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	return NewArtService(gen, store), dir
}

func monetRequest(seed uint32) generator.Request {
	return generator.Request{
		Labels: conditioning.Labels{
			Artist: conditioning.ArtistMonet,
			Genre:  conditioning.GenreLandscape,
			Style:  conditioning.StyleImpressionism,
		},
		Seed:       &seed,
		Truncation: 1.0,
	}
}

func TestArtService_GenerateAndHistory(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Empty(t, history)

	first, err := svc.Generate(ctx, monetRequest(42))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first.Key, FilePrefix))
	require.True(t, strings.HasSuffix(first.Key, FileExt))
	require.Equal(t, "/static/uploads/"+first.Key, first.ImageURL)
	require.Equal(t, uint32(42), first.Seed)

	second, err := svc.Generate(ctx, monetRequest(42))
	require.NoError(t, err)
	require.NotEqual(t, first.Key, second.Key)

	a, err := os.ReadFile(filepath.Join(dir, first.Key))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, second.Key))
	require.NoError(t, err)
	require.Equal(t, a, b)

	history, err = svc.History(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{first.Key, second.Key}, history)
}

type failingStore struct {
	filestore.Store
}

func (failingStore) Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	return errors.New("disk full")
}

func TestArtService_PersistFailure(t *testing.T) {
	svc, _ := newTestService(t)
	svc.store = failingStore{Store: svc.store}
	_, err := svc.Generate(context.Background(), monetRequest(1))
	require.ErrorIs(t, err, ErrPersist)
	require.Contains(t, err.Error(), "disk full")
}

func TestArtService_Prune(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	old, err := svc.Generate(ctx, monetRequest(1))
	require.NoError(t, err)
	fresh, err := svc.Generate(ctx, monetRequest(2))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, old.Key), past, past))

	removed, err := svc.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{fresh.Key}, history)
}
