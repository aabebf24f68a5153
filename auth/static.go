package auth

import "context"

// StaticSource provides cookies from a static map, typically values
// passed on the command line.
type StaticSource struct {
	cookies map[string]string
}

// NewStaticSource creates a cookie source from a static map.
func NewStaticSource(cookies map[string]string) *StaticSource {
	return &StaticSource{cookies: cookies}
}

// Cookies returns the non-empty static cookies.
func (s *StaticSource) Cookies(_ context.Context) (map[string]string, error) {
	// Copy so callers cannot mutate the source; drop blanks so unset
	// flag values do not mask later sources in a chain.
	result := make(map[string]string, len(s.cookies))
	for k, v := range s.cookies {
		if v != "" {
			result[k] = v
		}
	}
	if len(result) == 0 {
		return nil, nil //nolint:nilnil // empty static source is not an error
	}
	return result, nil
}
