package ticket

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/makiuchi-d/gozxing"
	gozxingqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeQR(t *testing.T, data []byte) string {
	t.Helper()

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	require.NoError(t, err)

	result, err := gozxingqr.NewQRCodeReader().Decode(bmp, nil)
	require.NoError(t, err)
	return result.GetText()
}

func TestQRCodeRoundTrip(t *testing.T) {
	id := uuid.New().String()

	data, err := QRCode(id)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	assert.Equal(t, id, decodeQR(t, data))
}

func TestQRCodeDeterministic(t *testing.T) {
	id := uuid.New().String()

	first, err := QRCode(id)
	require.NoError(t, err)
	second, err := QRCode(id)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestQRCodeMalformedID(t *testing.T) {
	for _, id := range []string{"", "not-a-uuid", "12345"} {
		_, err := QRCode(id)
		assert.ErrorIs(t, err, ErrInvalidArtifactInput, "id %q", id)
	}
}

func TestCredential(t *testing.T) {
	id := uuid.New().String()
	qr, err := QRCode(id)
	require.NoError(t, err)

	pdf, err := Credential("GopherCon", "jane@example.com", id, qr)
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")), "output is not a PDF")
}

func TestCredentialDeterministic(t *testing.T) {
	id := uuid.New().String()
	qr, err := QRCode(id)
	require.NoError(t, err)

	first, err := Credential("GopherCon", "jane@example.com", id, qr)
	require.NoError(t, err)
	second, err := Credential("GopherCon", "jane@example.com", id, qr)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCredentialInvalidInputs(t *testing.T) {
	id := uuid.New().String()
	qr, err := QRCode(id)
	require.NoError(t, err)

	tests := []struct {
		name     string
		title    string
		email    string
		ticketID string
		qr       []byte
	}{
		{"empty title", "", "jane@example.com", id, qr},
		{"blank title", "   ", "jane@example.com", id, qr},
		{"empty email", "GopherCon", "", id, qr},
		{"malformed ticket id", "GopherCon", "jane@example.com", "nope", qr},
		{"empty qr", "GopherCon", "jane@example.com", id, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Credential(tt.title, tt.email, tt.ticketID, tt.qr)
			assert.ErrorIs(t, err, ErrInvalidArtifactInput)
		})
	}
}
