package delivery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/wabridge/transport"
)

var (
	// ErrInvalidMedia indicates an unrecognized media kind; rejected
	// before any send attempt.
	ErrInvalidMedia = errors.New("invalid media type, use image, video, audio, or document")

	// ErrEmptyPayload indicates a request with nothing to send.
	ErrEmptyPayload = errors.New("message, media or contact content is required")

	// ErrInvalidTypingState indicates an unknown chat presence verb.
	ErrInvalidTypingState = errors.New("invalid typing state, use composing, recording, or paused")
)

// ContactCard is the contact payload variant rendered as a vCard.
type ContactCard struct {
	Name         string
	Number       string
	Organization string
}

// VCard renders the card in vCard 3.0 format with the network's
// account id parameter on the phone entry.
func (c ContactCard) VCard() string {
	var b strings.Builder
	b.WriteString("BEGIN:VCARD\n")
	b.WriteString("VERSION:3.0\n")
	fmt.Fprintf(&b, "FN:%s\n", c.Name)
	fmt.Fprintf(&b, "ORG:%s;\n", c.Organization)
	fmt.Fprintf(&b, "TEL;type=CELL;type=VOICE;waid=%s:%s\n", c.Number, c.Number)
	b.WriteString("END:VCARD")
	return b.String()
}

// Payload describes one outbound message as requested by a caller.
// Exactly one variant applies: plain text, a media reference, or a
// contact card.
type Payload struct {
	Text string

	MediaURL  string
	MediaType string
	FileName  string
	Caption   string

	Contact *ContactCard
}

// shape validates the payload and produces the transport form. Media
// variants fall back to the message text as caption when no explicit
// caption is given; documents default their file name. An unknown
// media kind is a validation error, reported before any send attempt.
func (p Payload) shape() (transport.Payload, error) {
	if p.Contact != nil {
		return transport.Payload{
			VCard:       p.Contact.VCard(),
			DisplayName: p.Contact.Name,
		}, nil
	}
	if p.MediaURL != "" {
		kind := transport.MediaKind(p.MediaType)
		if !kind.Valid() {
			return transport.Payload{}, ErrInvalidMedia
		}
		caption := p.Caption
		if caption == "" {
			caption = p.Text
		}
		out := transport.Payload{
			MediaURL: p.MediaURL,
			Kind:     kind,
			Caption:  caption,
		}
		if kind == transport.MediaAudio {
			// Audio carries no caption on the network.
			out.Caption = ""
		}
		if kind == transport.MediaDocument {
			out.FileName = p.FileName
			if out.FileName == "" {
				out.FileName = "file"
			}
		}
		return out, nil
	}
	if p.Text == "" {
		return transport.Payload{}, ErrEmptyPayload
	}
	return transport.Payload{Text: p.Text}, nil
}
