package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

const defaultLocalPublicPath = "/static/uploads"

type localConfig struct {
	Dir string `json:"dir"`
	// PublicURL prefixes returned keys; defaults to the path the handler serves.
	PublicURL string `json:"public_url"`
}

type localStore struct {
	dir       string
	publicURL string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	publicURL := strings.TrimSuffix(config.PublicURL, "/")
	if publicURL == "" {
		publicURL = defaultLocalPublicPath
	}
	s := &localStore{dir: config.Dir, publicURL: publicURL}
	if err := s.ensureDir(); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return s, nil
}

func (s *localStore) Type() string {
	return "local"
}

func (s *localStore) URL(key string) string {
	return s.publicURL + "/" + strings.TrimPrefix(key, "/")
}

func (s *localStore) Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	_ = ctx
	_ = size
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	target := filepath.Join(s.dir, key)
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	// a partial file must not show up in listings
	if err := writeAll(out, r); err != nil {
		_ = os.Remove(target)
		return err
	}
	return nil
}

func writeAll(out *os.File, r io.ReadSeeker) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		_ = out.Close()
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	if !ValidKey(key) {
		return nil, ErrInvalidKey
	}
	return os.Open(filepath.Join(s.dir, key))
}

func (s *localStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	_ = ctx
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, err
	}
	files := lo.Filter(dirEntries, func(item os.DirEntry, _ int) bool {
		return item.Type().IsRegular() && strings.HasPrefix(item.Name(), prefix)
	})
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		entries = append(entries, Entry{Key: f.Name(), ModTime: info.ModTime()})
	}
	sortEntries(entries)
	return entries, nil
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *localStore) ensureDir() error {
	return os.MkdirAll(s.dir, 0o755)
}
