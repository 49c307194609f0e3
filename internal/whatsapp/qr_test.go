package whatsapp

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePairingCode = "2@abc123,def456,ghi789,jkl012"

func TestRenderQR(t *testing.T) {
	url, err := RenderQR(samplePairingCode)
	require.NoError(t, err)

	prefix := "data:image/png;base64,"
	require.True(t, strings.HasPrefix(url, prefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, qrImageSize, img.Bounds().Dx())
}

func TestRenderQR_DistinctCodes(t *testing.T) {
	a, err := RenderQR(samplePairingCode)
	require.NoError(t, err)
	b, err := RenderQR(samplePairingCode + "x")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPrintQR(t *testing.T) {
	var buf bytes.Buffer
	PrintQR(&buf, samplePairingCode)
	assert.Contains(t, buf.String(), "Scan this QR code")
	assert.Greater(t, buf.Len(), 100)
}
