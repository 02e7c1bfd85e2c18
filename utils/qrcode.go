package utils

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

// EncodeQR renders a payload as a base64 PNG QR code suitable for embedding
// in API responses and emails.
func EncodeQR(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
