package qr

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

// GenerateBookingQR encodes a booking code as a QR code PNG and returns it
// base64 encoded, ready to embed in a JSON response or an email.
func GenerateBookingQR(bookingCode string) (string, error) {
	png, err := qrcode.Encode(bookingCode, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
