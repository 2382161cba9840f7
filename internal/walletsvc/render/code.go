package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
)

const (
	qrSize        = 220
	qrMargin      = 4
	barModule     = 2
	barHeight     = 100
	barcodeMargin = 10
)

var ErrEmptyPayload = errors.New("nothing to encode")

// Code renders payload as a QR code or a CODE128 barcode on a white
// background with a quiet zone.
func Code(payload string, isQR bool) (image.Image, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	if isQR {
		return qrCode(payload)
	}
	return linear(payload)
}

// PNG writes the rendered code to w.
func PNG(w io.Writer, payload string, isQR bool) error {
	img, err := Code(payload, isQR)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func qrCode(payload string) (image.Image, error) {
	bc, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}

	size := qrSize
	if d := bc.Bounds().Dx(); d > size {
		size = d
	}
	scaled, err := barcode.Scale(bc, size, size)
	if err != nil {
		return nil, fmt.Errorf("qr scale: %w", err)
	}
	return withMargin(scaled, qrMargin), nil
}

func linear(payload string) (image.Image, error) {
	bc, err := code128.Encode(payload)
	if err != nil {
		return nil, fmt.Errorf("code128 encode: %w", err)
	}

	scaled, err := barcode.Scale(bc, bc.Bounds().Dx()*barModule, barHeight)
	if err != nil {
		return nil, fmt.Errorf("code128 scale: %w", err)
	}
	return withMargin(scaled, barcodeMargin), nil
}

func withMargin(img image.Image, margin int) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()+2*margin, b.Dy()+2*margin))
	draw.Draw(out, out.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(margin, margin, margin+b.Dx(), margin+b.Dy()), img, b.Min, draw.Src)
	return out
}
