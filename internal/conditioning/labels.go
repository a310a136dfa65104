package conditioning

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"
)

var (
	ErrUnknownLabel = errors.New("unknown category label")
	ErrWidth        = errors.New("conditioning width too small")
)

// Class layout of the WikiArt checkpoint: 129 artists, 11 genres, 27 styles.
const (
	artistBase = 0
	genreBase  = 129
	styleBase  = 140
	// Width is the conditioning width of a WikiArt class-conditional checkpoint.
	Width = 167
)

type Artist string

type Genre string

type Style string

const (
	ArtistUnknown Artist = "unknown"
	ArtistMonet   Artist = "monet"
	ArtistVanGogh Artist = "van_gogh"
)

const (
	GenreAbstract  Genre = "abstract"
	GenreLandscape Genre = "landscape"
	GenrePortrait  Genre = "portrait"
)

const (
	StyleAbstractExpressionism Style = "abstract_expressionism"
	StyleCubism                Style = "cubism"
	StyleImpressionism         Style = "impressionism"
)

var artistIndex = map[Artist]int{
	ArtistUnknown: artistBase + 0,
	ArtistMonet:   artistBase + 4,
	ArtistVanGogh: artistBase + 22,
}

var genreIndex = map[Genre]int{
	GenreAbstract:  genreBase + 0,
	GenreLandscape: genreBase + 4,
	GenrePortrait:  genreBase + 6,
}

var styleIndex = map[Style]int{
	StyleAbstractExpressionism: styleBase + 0,
	StyleCubism:                styleBase + 7,
	StyleImpressionism:         styleBase + 12,
}

func (a Artist) Index() (int, bool) {
	idx, ok := artistIndex[a]
	return idx, ok
}

func (g Genre) Index() (int, bool) {
	idx, ok := genreIndex[g]
	return idx, ok
}

func (s Style) Index() (int, bool) {
	idx, ok := styleIndex[s]
	return idx, ok
}

func ParseArtist(v string) (Artist, error) {
	a := Artist(v)
	if _, ok := a.Index(); !ok {
		return "", fmt.Errorf("%w: artist %q", ErrUnknownLabel, v)
	}
	return a, nil
}

func ParseGenre(v string) (Genre, error) {
	g := Genre(v)
	if _, ok := g.Index(); !ok {
		return "", fmt.Errorf("%w: genre %q", ErrUnknownLabel, v)
	}
	return g, nil
}

func ParseStyle(v string) (Style, error) {
	s := Style(v)
	if _, ok := s.Index(); !ok {
		return "", fmt.Errorf("%w: style %q", ErrUnknownLabel, v)
	}
	return s, nil
}

// Artists returns the artist labels ordered by class index.
func Artists() []Artist {
	return sortedKeys(artistIndex)
}

func Genres() []Genre {
	return sortedKeys(genreIndex)
}

func Styles() []Style {
	return sortedKeys(styleIndex)
}

func sortedKeys[K ~string](m map[K]int) []K {
	keys := lo.Keys(m)
	sort.Slice(keys, func(i, j int) bool {
		return m[keys[i]] < m[keys[j]]
	})
	return keys
}
