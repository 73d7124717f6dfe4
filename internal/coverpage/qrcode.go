package coverpage

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultQRCodeSize is the side length in pixels of generated QR codes.
const DefaultQRCodeSize = 256

// QRCodeDataURL encodes content as a PNG QR code and returns it as a data URL usable as Config.QRCodeImage.
func QRCodeDataURL(content string, size int) (string, error) {
	if content == "" {
		return "", fmt.Errorf("QR code content is empty")
	}
	if size <= 0 {
		size = DefaultQRCodeSize
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
