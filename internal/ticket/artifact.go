// Package ticket generates the printable entry credential: a QR code
// encoding the ticket identifier, composed with event and attendee text
// into a single PDF blob.
//
// Both functions are pure and deterministic for a given input, hold no
// shared state, and are safe to call from any number of goroutines.
package ticket

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// ErrInvalidArtifactInput is returned for empty or malformed generator
// inputs. The orchestrator surfaces it as an internal error, never
// silently.
var ErrInvalidArtifactInput = errors.New("invalid artifact input")

const qrSizePx = 256

// QRCode renders the ticket identifier as a PNG QR code. The encoded
// content is exactly the identifier, nothing else, so a scanner decodes
// back the original string.
func QRCode(ticketID string) ([]byte, error) {
	if err := uuid.Validate(ticketID); err != nil {
		return nil, fmt.Errorf("%w: ticket id %q", ErrInvalidArtifactInput, ticketID)
	}
	png, err := qrcode.Encode(ticketID, qrcode.Medium, qrSizePx)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// Credential composes the printable A4 ticket: header, event/attendee
// lines, the QR code, and an entry instruction footer.
func Credential(eventTitle, email, ticketID string, qrPNG []byte) ([]byte, error) {
	if strings.TrimSpace(eventTitle) == "" {
		return nil, fmt.Errorf("%w: empty event title", ErrInvalidArtifactInput)
	}
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: empty email", ErrInvalidArtifactInput)
	}
	if err := uuid.Validate(ticketID); err != nil {
		return nil, fmt.Errorf("%w: ticket id %q", ErrInvalidArtifactInput, ticketID)
	}
	if len(qrPNG) == 0 {
		return nil, fmt.Errorf("%w: empty qr image", ErrInvalidArtifactInput)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	// Fixed creation date keeps the output byte-identical for equal inputs.
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Text(40, 50, "Event Ticket")

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(40, 100, "Event: "+eventTitle)
	pdf.Text(40, 120, "Email: "+email)
	pdf.Text(40, 140, "Ticket ID: "+ticketID)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 40, 180, 160, 160, false, opts, 0, "")

	_, pageH := pdf.GetPageSize()
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Text(40, pageH-50, "Present this QR code at the event entry")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render credential: %w", err)
	}
	return buf.Bytes(), nil
}
