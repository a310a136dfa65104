package page

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/artgan/internal/conditioning"
)

//go:embed assets/index.html
var indexTmpl string

//go:embed assets/history.html
var historyTmpl string

//go:embed assets/main.js
var mainJS []byte

type IndexParams struct {
	Artists       []conditioning.Artist
	Genres        []conditioning.Genre
	Styles        []conditioning.Style
	DefaultArtist string
	DefaultGenre  string
	DefaultStyle  string
	MaxSeed       uint32
}

type HistoryImage struct {
	Key string
	URL string
}

type HistoryParams struct {
	Images []HistoryImage
}

// Templator renders the embedded pages. Templates are parsed on first use.
type Templator struct {
	index   *template.Template
	history *template.Template
	once    sync.Once
}

func NewTemplator() *Templator {
	return &Templator{}
}

func (g *Templator) parse() {
	g.once.Do(func() {
		g.index = template.Must(template.New("index").Parse(indexTmpl))
		g.history = template.Must(template.New("history").Parse(historyTmpl))
	})
}

func (g *Templator) Index(ctx context.Context, params IndexParams) ([]byte, error) {
	g.parse()
	logutil.GetLogger(ctx).Debug("render index page")
	return execute(g.index, params)
}

func (g *Templator) History(ctx context.Context, params HistoryParams) ([]byte, error) {
	g.parse()
	logutil.GetLogger(ctx).Debug("render history page", zap.Int("images", len(params.Images)))
	return execute(g.history, params)
}

func execute(tmpl *template.Template, params interface{}) ([]byte, error) {
	var data bytes.Buffer
	if err := tmpl.Execute(&data, params); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

func MainJS() []byte {
	return mainJS
}
