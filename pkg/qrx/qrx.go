// Package qrx renders text payloads as PNG QR codes. Output is a pure
// function of the inputs, so identical calls produce byte-identical
// images and responses can be cached or compared in tests.
package qrx

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// Level selects the QR error-correction redundancy. Higher levels survive
// more image damage at the cost of payload capacity.
type Level int

const (
	LevelL Level = iota // ~7% recovery
	LevelM              // ~15% recovery
	LevelQ              // ~25% recovery
	LevelH              // ~30% recovery
)

// ErrPayloadTooLarge reports text that exceeds the QR capacity for the
// chosen error-correction level. Content is never silently truncated.
var ErrPayloadTooLarge = errors.New("qrx: payload exceeds qr capacity")

// Render encodes text into a sizePx-square PNG. The margin selects
// whether the quiet zone border is drawn at all: zero or negative drops
// it (used for inline display where the page supplies its own padding),
// positive keeps the encoder's fixed-width border. Deterministic for
// identical arguments.
func Render(text string, sizePx, margin int, level Level) ([]byte, error) {
	if text == "" {
		return nil, errors.New("qrx: empty content")
	}

	code, err := qrcode.New(text, recoveryLevel(level))
	if err != nil {
		// With non-empty input the encoder fails only when no QR
		// version can hold the content at the requested level.
		return nil, fmt.Errorf("%w: %v", ErrPayloadTooLarge, err)
	}

	if margin <= 0 {
		code.DisableBorder = true
	}

	png, err := code.PNG(sizePx)
	if err != nil {
		return nil, fmt.Errorf("qrx: encode png: %w", err)
	}
	return png, nil
}

// DataURI wraps PNG bytes as a data: URI suitable for an <img> src.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func recoveryLevel(level Level) qrcode.RecoveryLevel {
	switch level {
	case LevelL:
		return qrcode.Low
	case LevelM:
		return qrcode.Medium
	case LevelQ:
		return qrcode.High
	default:
		return qrcode.Highest
	}
}
