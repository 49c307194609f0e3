package whatsapp

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/mdp/qrterminal/v3"
	"github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// RenderQR encodes a pairing code as a PNG data URL suitable for an <img> src.
func RenderQR(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// PrintQR writes a pairing code to w as half-block terminal art.
func PrintQR(w io.Writer, code string) {
	fmt.Fprintln(w, "\nScan this QR code with WhatsApp (Linked Devices > Link a Device):")
	qrterminal.GenerateHalfBlock(code, qrterminal.L, w)
}
