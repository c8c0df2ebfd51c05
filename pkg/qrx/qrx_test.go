package qrx_test

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/aussiebroadwan/totpguard/pkg/qrx"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()

	const uri = "otpauth://totp/TotpGuard:alice%40example.com?secret=JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP&issuer=TotpGuard"

	t.Run("produces a decodable square png", func(t *testing.T) {
		out, err := qrx.Render(uri, 250, 10, qrx.LevelH)
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)

		bounds := img.Bounds()
		require.Equal(t, 250, bounds.Dx())
		require.Equal(t, 250, bounds.Dy())
	})

	t.Run("identical inputs yield byte-identical output", func(t *testing.T) {
		first, err := qrx.Render(uri, 250, 10, qrx.LevelH)
		require.NoError(t, err)
		second, err := qrx.Render(uri, 250, 10, qrx.LevelH)
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("margin and level change the output", func(t *testing.T) {
		withBorder, err := qrx.Render(uri, 250, 10, qrx.LevelH)
		require.NoError(t, err)
		noBorder, err := qrx.Render(uri, 250, 0, qrx.LevelH)
		require.NoError(t, err)
		require.NotEqual(t, withBorder, noBorder)

		low, err := qrx.Render(uri, 250, 10, qrx.LevelL)
		require.NoError(t, err)
		require.NotEqual(t, withBorder, low)
	})

	t.Run("oversized payload fails instead of truncating", func(t *testing.T) {
		_, err := qrx.Render(strings.Repeat("x", 8000), 250, 10, qrx.LevelH)
		require.ErrorIs(t, err, qrx.ErrPayloadTooLarge)
	})

	t.Run("empty content is rejected without the oversize label", func(t *testing.T) {
		_, err := qrx.Render("", 250, 10, qrx.LevelH)
		require.Error(t, err)
		require.NotErrorIs(t, err, qrx.ErrPayloadTooLarge)
	})
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	out, err := qrx.Render("hello", 128, 4, qrx.LevelM)
	require.NoError(t, err)

	uri := qrx.DataURI(out)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	require.Greater(t, len(uri), len("data:image/png;base64,"))
}
