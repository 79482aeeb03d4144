package publisher

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRCode renders content as a size x size PNG QR code.
func QRCode(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("publisher.QRCode: %w", err)
	}
	return png, nil
}
