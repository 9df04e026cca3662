package config

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
)

// Gradient is the parsed form of the colors option: 2 or 3 colors followed by 1 to 3 strictly increasing
// midpoints in [0,1].
type Gradient struct {
	Colors    []mgl32.Vec4
	Midpoints []float32
}

// ParseGradient reads "c1,c2[,c3][,m1[,m2[,m3]]]". Colors are CSS names or #rgb / #rrggbb hex values, midpoints
// are plain numbers. Missing midpoints are defaulted: 1.0 for two colors, 0.25 for three.
func ParseGradient(list string) (Gradient, error) {
	var g Gradient
	for _, tok := range strings.Split(list, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return Gradient{}, errors.Errorf("empty entry in gradient %q", list)
		}
		if m, err := strconv.ParseFloat(tok, 32); err == nil {
			g.Midpoints = append(g.Midpoints, float32(m))
			continue
		}
		if len(g.Midpoints) > 0 {
			return Gradient{}, errors.Errorf("color %q after a midpoint in gradient %q", tok, list)
		}
		c, err := ParseColor(tok)
		if err != nil {
			return Gradient{}, err
		}
		g.Colors = append(g.Colors, c)
	}

	switch len(g.Colors) {
	case 2:
		if len(g.Midpoints) == 0 {
			g.Midpoints = []float32{1}
		}
		if len(g.Midpoints) > 2 {
			return Gradient{}, errors.Errorf("two colors take at most 2 midpoints, got %d", len(g.Midpoints))
		}
	case 3:
		if len(g.Midpoints) == 0 {
			g.Midpoints = []float32{0.25}
		}
		if len(g.Midpoints) > 3 {
			return Gradient{}, errors.Errorf("three colors take at most 3 midpoints, got %d", len(g.Midpoints))
		}
	default:
		return Gradient{}, errors.Errorf("gradient needs 2 or 3 colors, got %d", len(g.Colors))
	}
	if err := checkMidpoints(g.Midpoints); err != nil {
		return Gradient{}, err
	}
	return g, nil
}

func checkMidpoints(midpoints []float32) error {
	for i, m := range midpoints {
		if !(m >= 0 && m <= 1) {
			return errors.Errorf("midpoint %g outside [0,1]", m)
		}
		if i > 0 && m <= midpoints[i-1] {
			return errors.Errorf("midpoints must be strictly increasing, %g follows %g", m, midpoints[i-1])
		}
	}
	return nil
}

// ParseColor accepts CSS color names and #rgb or #rrggbb hex. Values are stored as given, without any sRGB
// decoding, and are fully opaque.
func ParseColor(s string) (mgl32.Vec4, error) {
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(expandShortHex(s))
		if err != nil {
			return mgl32.Vec4{}, errors.Wrapf(err, "parse hex color %q", s)
		}
		return mgl32.Vec4{float32(c.R), float32(c.G), float32(c.B), 1}, nil
	}
	named, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return mgl32.Vec4{}, errors.Errorf("unknown color %q", s)
	}
	return mgl32.Vec4{float32(named.R) / 255, float32(named.G) / 255, float32(named.B) / 255, 1}, nil
}

// expandShortHex turns #rgb into #rrggbb.
func expandShortHex(s string) string {
	if len(s) != 4 {
		return s
	}
	return string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
}
