package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeQR(t *testing.T) {
	img, err := Code("https://example.com/member/42", true)
	require.NoError(t, err)

	b := img.Bounds()
	assert.Equal(t, b.Dx(), b.Dy())
	assert.GreaterOrEqual(t, b.Dx(), qrSize)
	assertWhite(t, img.At(0, 0))
}

func TestCodeBarcode(t *testing.T) {
	img, err := Code("4006381333931", false)
	require.NoError(t, err)

	b := img.Bounds()
	assert.Equal(t, barHeight+2*barcodeMargin, b.Dy())
	assert.Greater(t, b.Dx(), b.Dy())
	assertWhite(t, img.At(1, 1))
}

func TestCodeEmptyPayload(t *testing.T) {
	_, err := Code("", true)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = Code("", false)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, "CARD-0001", false))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, barHeight+2*barcodeMargin, img.Bounds().Dy())
}

func assertWhite(t *testing.T, c color.Color) {
	t.Helper()
	r, g, b, _ := c.RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)
}
