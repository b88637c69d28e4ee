// Package qrimage renders QR code symbols to PNG data URLs.
package qrimage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/errors"
)

// DataURLPrefix prefixes every rendered image.
const DataURLPrefix = "data:image/png;base64,"

// Size bounds in pixels.
const (
	MinSize = 64
	MaxSize = 2048
)

// Renderer encodes content into a styled QR image.
type Renderer struct {
	level qrcode.RecoveryLevel
}

// NewRenderer returns a renderer using medium error correction.
func NewRenderer() *Renderer {
	return &Renderer{level: qrcode.Medium}
}

// Render encodes content with the given style and returns a PNG data URL.
// Margin is the quiet zone in modules; Size is the output width in pixels.
func (r *Renderer) Render(content string, style domain.Customization) (string, error) {
	img, err := r.Image(content, style)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "encode png")
	}
	return DataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Image renders the symbol as a size x size paletted image.
func (r *Renderer) Image(content string, style domain.Customization) (image.Image, error) {
	if content == "" {
		return nil, errors.Validation("content is required")
	}

	fg, err := ParseColor(style.ForegroundColor, domain.DefaultForegroundColor)
	if err != nil {
		return nil, errors.Validationf("invalid foregroundColor: %v", err)
	}
	bg, err := ParseColor(style.BackgroundColor, domain.DefaultBackgroundColor)
	if err != nil {
		return nil, errors.Validationf("invalid backgroundColor: %v", err)
	}

	size := style.Size
	if size <= 0 {
		size = domain.DefaultSize
	}
	if size < MinSize || size > MaxSize {
		return nil, errors.Validationf("size must be between %d and %d", MinSize, MaxSize)
	}
	margin := style.Margin
	if margin < 0 {
		margin = 0
	}

	code, err := qrcode.New(content, r.level)
	if err != nil {
		return nil, errors.Validationf("content cannot be encoded: %v", err)
	}
	code.DisableBorder = true
	bitmap := code.Bitmap()

	modules := len(bitmap) + 2*margin
	if modules > size {
		return nil, errors.Validationf("size %d is too small for %d modules", size, modules)
	}

	palette := color.Palette{bg, fg}
	grid := image.NewPaletted(image.Rect(0, 0, modules, modules), palette)
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				grid.SetColorIndex(x+margin, y+margin, 1)
			}
		}
	}

	out := image.NewPaletted(image.Rect(0, 0, size, size), palette)
	draw.NearestNeighbor.Scale(out, out.Bounds(), grid, grid.Bounds(), draw.Src, nil)
	return out, nil
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa or an SVG color name.
// An empty value yields fallback.
func ParseColor(s, fallback string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = fallback
	}

	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}

	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return nil, fmt.Errorf("unrecognized color %q", s)
	}

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return nil, fmt.Errorf("unrecognized color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("unrecognized color %q", s)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// PNGBytes returns the raw PNG file embedded in a data URL.
func PNGBytes(dataURL string) ([]byte, error) {
	payload, ok := strings.CutPrefix(dataURL, DataURLPrefix)
	if !ok {
		return nil, fmt.Errorf("not a png data url")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}

// DecodeDataURL returns the PNG image embedded in a data URL.
func DecodeDataURL(dataURL string) (image.Image, error) {
	raw, err := PNGBytes(dataURL)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(raw))
}
