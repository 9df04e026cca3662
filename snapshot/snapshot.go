package snapshot

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"julia_explorer/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Image wraps a tightly packed RGBA8 buffer, rows top to bottom, without copying it. The kernel writes opaque
// pixels, so the buffer is used as non-premultiplied.
func Image(w uint32, h uint32, pix []byte) (*image.NRGBA, error) {
	if want := int(w) * int(h) * 4; len(pix) != want {
		return nil, errors.Errorf("pixel buffer holds %d bytes, %dx%d needs %d", len(pix), w, h, want)
	}
	return &image.NRGBA{
		Pix:    pix,
		Stride: int(w) * 4,
		Rect:   image.Rect(0, 0, int(w), int(h)),
	}, nil
}

func Encode(out io.Writer, w uint32, h uint32, pix []byte) error {
	img, err := Image(w, h, pix)
	if err != nil {
		return err
	}
	return errors.Wrap(png.Encode(out, img), "encode png")
}

// WritePNG writes the buffer as a PNG file at path, replacing an existing file.
func WritePNG(path string, w uint32, h uint32, pix []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export file")
	}
	bw := bufio.NewWriter(f)
	if err = Encode(bw, w, h, pix); err == nil {
		err = errors.Wrap(bw.Flush(), "write export file")
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "close export file")
	}
	if err != nil {
		return err
	}
	log.Printf("Wrote %dx%d image to %s", w, h, path)
	return nil
}

// Filename names an export after everything needed to render it again:
// x{n}_{cr}_{ci}i_m{iters}_c{cx}-{cy}_e{extent}_c{hex0}-{hex1}-{hex2}-{midpoints}_{w}x{h}.png
// A two color gradient repeats its last color as the third.
func Filename(s *model.VisualizationState, w uint32, h uint32) string {
	hex := make([]string, 3)
	for i := range hex {
		hex[i] = "000000"
		if n := len(s.Colors); n > 0 {
			hex[i] = Hex(s.Colors[min(i, n-1)])
		}
	}
	midpoints := make([]string, len(s.Midpoints))
	for i, m := range s.Midpoints {
		midpoints[i] = num(m)
	}
	return fmt.Sprintf("x%d_%s_%si_m%d_c%s-%s_e%s_c%s-%s_%dx%d.png",
		s.N,
		num(s.C.X()), num(s.C.Y()),
		s.Iters,
		num(s.Viewport.Center.X()), num(s.Viewport.Center.Y()),
		num(s.Viewport.Extent()),
		strings.Join(hex, "-"), strings.Join(midpoints, "-"),
		w, h,
	)
}

// Hex formats a color as rrggbb, the # left off so it can be part of a filename.
func Hex(c mgl32.Vec4) string {
	return strings.TrimPrefix(colorful.Color{R: float64(c.X()), G: float64(c.Y()), B: float64(c.Z())}.Clamped().Hex(), "#")
}

// num prints the shortest decimal that reads back as the same float32.
func num(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
