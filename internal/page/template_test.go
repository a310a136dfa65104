package page

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/artgan/internal/conditioning"
)

func TestTemplator_Index(t *testing.T) {
	tmpl := NewTemplator()
	out, err := tmpl.Index(context.Background(), IndexParams{
		Artists:       conditioning.Artists(),
		Genres:        conditioning.Genres(),
		Styles:        conditioning.Styles(),
		DefaultArtist: string(conditioning.ArtistMonet),
		DefaultGenre:  string(conditioning.GenreLandscape),
		DefaultStyle:  string(conditioning.StyleImpressionism),
		MaxSeed:       100,
	})
	require.NoError(t, err)
	html := string(out)
	require.Contains(t, html, `<option value="van_gogh">van_gogh</option>`)
	require.Contains(t, html, `<option value="monet" selected>monet</option>`)
	require.Contains(t, html, `<option value="impressionism" selected>impressionism</option>`)
	require.Contains(t, html, `/static/js/main.js`)
}

func TestTemplator_History(t *testing.T) {
	tmpl := NewTemplator()
	out, err := tmpl.History(context.Background(), HistoryParams{})
	require.NoError(t, err)
	require.Contains(t, string(out), "No images generated yet.")

	out, err = tmpl.History(context.Background(), HistoryParams{Images: []HistoryImage{
		{Key: "generated_a.png", URL: "/static/uploads/generated_a.png"},
	}})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(out), "<figure>"))
	require.Contains(t, string(out), `src="/static/uploads/generated_a.png"`)
}

func TestMainJS(t *testing.T) {
	require.Contains(t, string(MainJS()), `fetch("/generate"`)
}
