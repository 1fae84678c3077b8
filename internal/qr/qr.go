package qr

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

const imageSize = 256

// KioskLinkPNG encodes a kiosk URL as a PNG QR code.
func KioskLinkPNG(url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("kiosk url not configured")
	}
	return qrcode.Encode(url, qrcode.Medium, imageSize)
}
