package conditioning

import "fmt"

// Labels is one (artist, genre, style) selection.
type Labels struct {
	Artist Artist `json:"artist"`
	Genre  Genre  `json:"genre"`
	Style  Style  `json:"style"`
}

func ParseLabels(artist, genre, style string) (Labels, error) {
	a, err := ParseArtist(artist)
	if err != nil {
		return Labels{}, err
	}
	g, err := ParseGenre(genre)
	if err != nil {
		return Labels{}, err
	}
	s, err := ParseStyle(style)
	if err != nil {
		return Labels{}, err
	}
	return Labels{Artist: a, Genre: g, Style: s}, nil
}

// Encode builds a conditioning vector of the given width with exactly the
// artist, genre and style positions set to 1.
func Encode(l Labels, width int) ([]float32, error) {
	ai, ok := l.Artist.Index()
	if !ok {
		return nil, fmt.Errorf("%w: artist %q", ErrUnknownLabel, l.Artist)
	}
	gi, ok := l.Genre.Index()
	if !ok {
		return nil, fmt.Errorf("%w: genre %q", ErrUnknownLabel, l.Genre)
	}
	si, ok := l.Style.Index()
	if !ok {
		return nil, fmt.Errorf("%w: style %q", ErrUnknownLabel, l.Style)
	}
	highest := max(ai, gi, si)
	if width <= highest {
		return nil, fmt.Errorf("%w: width %d, need > %d", ErrWidth, width, highest)
	}
	vec := make([]float32, width)
	vec[ai] = 1
	vec[gi] = 1
	vec[si] = 1
	return vec, nil
}
