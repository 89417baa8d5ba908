package auth

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"math/big"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

const (
	defaultPhraseLength = 4
	phraseCharset       = "abcdefghijklmnpqrstuvwxyz123456789"
)

// RenderOptions controls captcha image generation.
type RenderOptions struct {
	Width       int
	Height      int
	MaxAngle    float64 // degrees
	LinesBehind int
	LinesFront  int
	Quality     int
}

// DefaultRenderOptions returns the login form image settings.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Width:    100,
		Height:   40,
		MaxAngle: 8,
		Quality:  90,
	}
}

// GeneratePhrase returns a random phrase of n characters. The charset leaves
// out the easily confused "o" and "0".
func GeneratePhrase(n int) (string, error) {
	if n <= 0 {
		n = defaultPhraseLength
	}
	out := make([]byte, n)
	for i := range out {
		idx, err := randInt(len(phraseCharset))
		if err != nil {
			return "", err
		}
		out[i] = phraseCharset[idx]
	}
	return string(out), nil
}

// RenderCaptcha draws phrase on a random pastel background and encodes it
// as JPEG.
func RenderCaptcha(phrase string, opts RenderOptions) ([]byte, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", opts.Width, opts.Height)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	bg, err := randomColor(200, 255)
	if err != nil {
		return nil, err
	}
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for i := 0; i < opts.LinesBehind; i++ {
		if err := drawRandomLine(canvas); err != nil {
			return nil, err
		}
	}

	face := basicfont.Face7x13
	const scale = 2.0
	glyphW := face.Advance
	glyphH := face.Height
	step := float64(opts.Width) / float64(len(phrase)+1)

	for i, r := range phrase {
		fg, err := randomColor(0, 110)
		if err != nil {
			return nil, err
		}
		glyph := image.NewRGBA(image.Rect(0, 0, glyphW, glyphH))
		d := &font.Drawer{
			Dst:  glyph,
			Src:  image.NewUniform(fg),
			Face: face,
			Dot:  fixed.P(0, face.Ascent),
		}
		d.DrawString(string(r))

		angle, err := randomAngle(opts.MaxAngle)
		if err != nil {
			return nil, err
		}
		cx := step * float64(i+1)
		cy := float64(opts.Height) / 2
		draw.BiLinear.Transform(canvas, glyphTransform(angle, scale, glyphW, glyphH, cx, cy), glyph, glyph.Bounds(), draw.Over, nil)
	}

	for i := 0; i < opts.LinesFront; i++ {
		if err := drawRandomLine(canvas); err != nil {
			return nil, err
		}
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// glyphTransform maps glyph space onto the canvas: scaled, rotated by angle
// radians around the glyph centre, and centred on (cx, cy).
func glyphTransform(angle, scale float64, w, h int, cx, cy float64) f64.Aff3 {
	sin, cos := math.Sincos(angle)
	hw, hh := float64(w)/2, float64(h)/2
	a, b := scale*cos, -scale*sin
	c, d := scale*sin, scale*cos
	return f64.Aff3{
		a, b, cx - a*hw - b*hh,
		c, d, cy - c*hw - d*hh,
	}
}

// drawRandomLine draws a one pixel line between two random points.
func drawRandomLine(img *image.RGBA) error {
	b := img.Bounds()
	pts := make([]int, 4)
	for i := range pts {
		limit := b.Dx()
		if i%2 == 1 {
			limit = b.Dy()
		}
		v, err := randInt(limit)
		if err != nil {
			return err
		}
		pts[i] = v
	}
	c, err := randomColor(60, 180)
	if err != nil {
		return err
	}

	x0, y0, x1, y1 := float64(pts[0]), float64(pts[1]), float64(pts[2]), float64(pts[3])
	steps := int(math.Max(math.Abs(x1-x0), math.Abs(y1-y0)))
	if steps == 0 {
		img.Set(pts[0], pts[1], c)
		return nil
	}
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		img.Set(int(math.Round(x0+t*(x1-x0))), int(math.Round(y0+t*(y1-y0))), c)
	}
	return nil
}

func randomAngle(maxDegrees float64) (float64, error) {
	if maxDegrees <= 0 {
		return 0, nil
	}
	span := int(maxDegrees * 2)
	v, err := randInt(span + 1)
	if err != nil {
		return 0, err
	}
	return (float64(v) - maxDegrees) * math.Pi / 180, nil
}

func randomColor(lo, hi int) (color.RGBA, error) {
	var rgb [3]uint8
	for i := range rgb {
		v, err := randInt(hi - lo + 1)
		if err != nil {
			return color.RGBA{}, err
		}
		rgb[i] = uint8(lo + v)
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random: %w", err)
	}
	return int(v.Int64()), nil
}
