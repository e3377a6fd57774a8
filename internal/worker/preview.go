package worker

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"disputebot/internal/statestore"
)

// writePreview downscales a viewport screenshot to the configured width and
// publishes it as the dashboard's preview image. Screenshots narrower than
// the bound pass through unchanged.
func writePreview(store *statestore.Store, screenshot []byte, maxWidth int) error {
	if len(screenshot) == 0 {
		return nil
	}
	img, err := png.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return fmt.Errorf("decode screenshot: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxWidth && maxWidth > 0 {
		height := bounds.Dy() * maxWidth / bounds.Dx()
		scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return store.WritePreview(buf.Bytes())
}
