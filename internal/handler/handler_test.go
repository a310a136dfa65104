package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/artgan/internal/conditioning"
	"github.com/xxxsen/artgan/internal/config"
	"github.com/xxxsen/artgan/internal/filestore"
	"github.com/xxxsen/artgan/internal/generator"
	"github.com/xxxsen/artgan/internal/handler"
	"github.com/xxxsen/artgan/internal/middleware"
	"github.com/xxxsen/artgan/internal/network"
	"github.com/xxxsen/artgan/internal/page"
	"github.com/xxxsen/artgan/internal/pkg/errcode"
	"github.com/xxxsen/artgan/internal/service"
)

type apiResponse struct {
	Status   string   `json:"status"`
	Code     int      `json:"code"`
	Message  string   `json:"message"`
	ImageURL string   `json:"image_url"`
	Seed     uint32   `json:"seed"`
	Images   []string `json:"images"`
}

func setupRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	ckptPath := filepath.Join(t.TempDir(), "dev.ckpt")
	ckpt := network.RandomLinearCheckpoint(network.Info{
		ZDim: 16, CDim: conditioning.Width, Resolution: 8, Channels: 3,
	}, 7)
	require.NoError(t, network.SaveLinearCheckpoint(ckptPath, ckpt))
	net, err := network.New("linear", map[string]interface{}{"checkpoint": ckptPath})
	require.NoError(t, err)

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{
			"dir": uploadDir,
		},
	})
	require.NoError(t, err)
	return setupRouterWith(t, net, store), uploadDir
}

func setupRouterWith(t *testing.T, net network.Network, store filestore.Store) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gen, err := generator.New(net)
	require.NoError(t, err)
	art := service.NewArtService(gen, store)

	deps := handler.RouterDeps{
		Pages:    handler.NewPageHandler(art, page.NewTemplator()),
		Generate: handler.NewGenerateHandler(art),
		Files:    handler.NewFileHandler(store),
		Health:   handler.NewHealthHandler(net),
	}
	engine, err := webapi.NewEngine(
		"/",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.Recover(),
			middleware.RequestID(),
			middleware.BodyLimit(1024),
		),
	)
	require.NoError(t, err)
	return engine
}

func postGenerate(t *testing.T, router http.Handler, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	var out apiResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return resp, out
}

func getJSON(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	var out apiResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return resp, out
}

func readImage(t *testing.T, dir, imageURL string) []byte {
	t.Helper()
	require.True(t, strings.HasPrefix(imageURL, "/static/uploads/generated_"), imageURL)
	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(imageURL, "/static/uploads/")))
	require.NoError(t, err)
	return data
}

func TestGenerate_Success(t *testing.T) {
	router, dir := setupRouter(t)

	resp, out := postGenerate(t, router, `{"artist":"monet","genre":"landscape","style":"impressionism","seed":42,"truncation":1.0}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "success", out.Status)
	require.Equal(t, uint32(42), out.Seed)
	first := readImage(t, dir, out.ImageURL)
	require.True(t, bytes.HasPrefix(first, []byte("\x89PNG")))

	_, again := postGenerate(t, router, `{"artist":"monet","genre":"landscape","style":"impressionism","seed":42,"truncation":1.0}`)
	require.NotEqual(t, out.ImageURL, again.ImageURL)
	require.Equal(t, first, readImage(t, dir, again.ImageURL))

	_, other := postGenerate(t, router, `{"artist":"monet","genre":"landscape","style":"impressionism","seed":43,"truncation":1.0}`)
	require.NotEqual(t, first, readImage(t, dir, other.ImageURL))

	fileResp := httptest.NewRecorder()
	router.ServeHTTP(fileResp, httptest.NewRequest(http.MethodGet, out.ImageURL, nil))
	require.Equal(t, http.StatusOK, fileResp.Code)
	require.Equal(t, "image/png", fileResp.Header().Get("Content-Type"))
	require.Equal(t, first, fileResp.Body.Bytes())
}

func TestGenerate_DefaultsAndSeedReplay(t *testing.T) {
	router, dir := setupRouter(t)

	resp, drawn := postGenerate(t, router, `{}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "success", drawn.Status)

	_, explicit := postGenerate(t, router, `{"artist":"monet","genre":"landscape","style":"impressionism","truncation":1.0,"seed":`+
		jsonNumber(drawn.Seed)+`}`)
	require.Equal(t, drawn.Seed, explicit.Seed)
	require.Equal(t, readImage(t, dir, drawn.ImageURL), readImage(t, dir, explicit.ImageURL))

	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	emptyResp := httptest.NewRecorder()
	router.ServeHTTP(emptyResp, req)
	require.Equal(t, http.StatusOK, emptyResp.Code)
}

func TestGenerate_Failures(t *testing.T) {
	router, dir := setupRouter(t)

	resp, out := postGenerate(t, router, `{"artist":"picasso"}`)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.Equal(t, "error", out.Status)
	require.Equal(t, errcode.ErrUnknownLabel, out.Code)
	require.Contains(t, out.Message, "unknown category label")
	require.Contains(t, out.Message, "picasso")

	resp, out = postGenerate(t, router, `{"artist":"Monet"}`)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.Equal(t, errcode.ErrUnknownLabel, out.Code)

	for _, body := range []string{`{"seed":-1}`, `{"seed":4294967296}`, `{"seed":1.5}`, `{"truncation":"high"}`, `{not json`} {
		resp, out = postGenerate(t, router, body)
		require.Equal(t, http.StatusInternalServerError, resp.Code, body)
		require.Equal(t, "error", out.Status, body)
		require.Equal(t, errcode.ErrInvalid, out.Code, body)
	}

	resp, out = postGenerate(t, router, `{"artist":"`+strings.Repeat("x", 2048)+`"}`)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.Equal(t, "error", out.Status)
	require.Equal(t, errcode.ErrBodyTooLarge, out.Code)

	// undeclared length is cut off while the handler decodes
	req := httptest.NewRequest(http.MethodPost, "/generate",
		io.NopCloser(strings.NewReader(`{"artist":"`+strings.Repeat("x", 2048)+`"}`)))
	req.ContentLength = -1
	streamed := httptest.NewRecorder()
	router.ServeHTTP(streamed, req)
	require.Equal(t, http.StatusInternalServerError, streamed.Code)
	require.NoError(t, json.Unmarshal(streamed.Body.Bytes(), &out))
	require.Equal(t, errcode.ErrBodyTooLarge, out.Code)
	require.Equal(t, "request body exceeds 1024 bytes", out.Message)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

type brokenNetwork struct{}

func (brokenNetwork) Name() string { return "broken" }

func (brokenNetwork) Info() network.Info {
	return network.Info{ZDim: 4, CDim: conditioning.Width, Resolution: 2, Channels: 3}
}

func (brokenNetwork) Forward(ctx context.Context, in network.Input) (*network.Tensor, error) {
	return nil, errors.New("CUDA out of memory")
}

type readOnlyStore struct {
	filestore.Store
}

func (readOnlyStore) Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	return errors.New("read-only file system")
}

func TestGenerate_NetworkFailure(t *testing.T) {
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	router := setupRouterWith(t, brokenNetwork{}, store)

	resp, out := postGenerate(t, router, `{"seed":42}`)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.Equal(t, "error", out.Status)
	require.Equal(t, errcode.ErrGeneration, out.Code)
	require.Contains(t, out.Message, "CUDA out of memory")

	_, history := getJSON(t, router, "/api/history")
	require.Empty(t, history.Images)
}

func TestGenerate_PersistFailure(t *testing.T) {
	ckpt := network.RandomLinearCheckpoint(network.Info{
		ZDim: 4, CDim: conditioning.Width, Resolution: 2, Channels: 3,
	}, 1)
	net, err := network.NewLinear(ckpt)
	require.NoError(t, err)
	dir := t.TempDir()
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": dir},
	})
	require.NoError(t, err)
	router := setupRouterWith(t, net, readOnlyStore{Store: store})

	resp, out := postGenerate(t, router, `{"seed":42}`)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.Equal(t, "error", out.Status)
	require.Equal(t, errcode.ErrPersist, out.Code)
	require.Contains(t, out.Message, "read-only file system")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestHistory(t *testing.T) {
	router, _ := setupRouter(t)

	resp, out := getJSON(t, router, "/api/history")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Empty(t, out.Images)

	historyPage := httptest.NewRecorder()
	router.ServeHTTP(historyPage, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, historyPage.Code)
	require.Contains(t, historyPage.Body.String(), "No images generated yet.")

	var urls []string
	for i := 0; i < 3; i++ {
		_, gen := postGenerate(t, router, `{"seed":`+jsonNumber(uint32(i))+`}`)
		require.Equal(t, "success", gen.Status)
		urls = append(urls, gen.ImageURL)
	}

	_, out = getJSON(t, router, "/api/history")
	require.Len(t, out.Images, 3)
	for _, name := range out.Images {
		require.True(t, strings.HasPrefix(name, "generated_"), name)
		require.Contains(t, urls, "/static/uploads/"+name)
	}

	historyPage = httptest.NewRecorder()
	router.ServeHTTP(historyPage, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, 3, strings.Count(historyPage.Body.String(), "<figure>"))
}

func TestPagesAndHealth(t *testing.T) {
	router, _ := setupRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	for _, label := range []string{"monet", "van_gogh", "portrait", "cubism"} {
		require.Contains(t, resp.Body.String(), `value="`+label+`"`)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/static/js/main.js", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "image_url")

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var health struct {
		Status  string       `json:"status"`
		Network network.Info `json:"network"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, 16, health.Network.ZDim)
	require.Equal(t, conditioning.Width, health.Network.CDim)
	require.Equal(t, 8, health.Network.Resolution)

	fileResp, out := getJSON(t, router, "/static/uploads/generated_missing.png")
	require.Equal(t, http.StatusNotFound, fileResp.Code)
	require.Equal(t, errcode.ErrNotFound, out.Code)
}

func jsonNumber(v uint32) string {
	data, _ := json.Marshal(v)
	return string(data)
}
