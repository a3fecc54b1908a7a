package intake

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/pkg/apperr"
)

var (
	// Signature delimiters like "--" or "____" cut the body
	signatureDelimRe = regexp.MustCompile(`[-_]{2,}`)

	// Quoted reply tails on the collapsed single-line body
	quotedTailRe = regexp.MustCompile(`(?:\bOn\b[^.!?]{0,200}?\bwrote:|(?:^|\s)>\s).*$`)

	entityPatterns = map[domain.EntityKind]*regexp.Regexp{
		domain.EntityEmail: regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`),
		domain.EntityPhone: regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
		domain.EntityURL:   regexp.MustCompile(`https?://[^\s<>"]+`),
	}
)

// Normalizer parses raw RFC 822 messages into the cleaned, entity-tagged
// form the rest of the pipeline operates on.
type Normalizer struct {
	log zerolog.Logger
}

func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Normalize parses, cleans and tags one raw message. Malformed input
// yields a PARSE_ERROR; nothing downstream runs on unparsed bytes.
func (n *Normalizer) Normalize(raw []byte, messageID string, receivedAt time.Time) (*domain.NormalizedEmail, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, apperr.ParseError("unreadable message headers", err)
	}

	sender := strings.TrimSpace(msg.Header.Get("From"))
	if sender == "" {
		return nil, apperr.ParseError("missing From header", nil)
	}
	if _, err := mail.ParseAddress(sender); err != nil {
		return nil, apperr.ParseError("invalid sender address", err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))

	var recipients []string
	if addrs, err := msg.Header.AddressList("To"); err == nil {
		for _, a := range addrs {
			recipients = append(recipients, a.Address)
		}
	}

	if messageID == "" {
		messageID = strings.Trim(msg.Header.Get("Message-Id"), "<> ")
	}
	if receivedAt.IsZero() {
		if d, err := msg.Header.Date(); err == nil {
			receivedAt = d
		} else {
			receivedAt = time.Now().UTC()
		}
	}

	body, attachments, err := extractBody(msg)
	if err != nil {
		return nil, err
	}

	cleaned := CleanBody(body)

	email := &domain.NormalizedEmail{
		InboundMessage: domain.InboundMessage{
			MessageID:   messageID,
			Sender:      sender,
			Recipients:  recipients,
			Subject:     subject,
			Body:        body,
			Attachments: attachments,
			ReceivedAt:  receivedAt,
		},
		CleanedBody: cleaned,
		Entities:    ExtractEntities(cleaned),
	}

	n.log.Debug().
		Str("message_id", messageID).
		Int("body_len", len(body)).
		Int("cleaned_len", len(cleaned)).
		Int("attachments", len(attachments)).
		Msg("[Normalizer.Normalize] message normalized")

	return email, nil
}

// CleanBody strips signatures, collapses whitespace and removes quoted
// reply tails. The result is a fixed point: cleaning it again is a no-op.
func CleanBody(body string) string {
	if loc := signatureDelimRe.FindStringIndex(body); loc != nil {
		body = body[:loc[0]]
	}
	body = strings.Join(strings.Fields(body), " ")
	body = quotedTailRe.ReplaceAllString(body, "")
	return strings.TrimSpace(body)
}

// ExtractEntities pulls email addresses, phone numbers and URLs out of
// the cleaned body, in order of occurrence with duplicates kept.
func ExtractEntities(body string) map[domain.EntityKind][]string {
	entities := make(map[domain.EntityKind][]string)
	for kind, pattern := range entityPatterns {
		if matches := pattern.FindAllString(body, -1); len(matches) > 0 {
			entities[kind] = matches
		}
	}
	if len(entities) == 0 {
		return nil
	}
	return entities
}

func extractBody(msg *mail.Message) (string, []domain.Attachment, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		return readTextPart(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", nil, apperr.ParseError("invalid Content-Type", err)
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		return readTextPart(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	}

	boundary := params["boundary"]
	if boundary == "" {
		return "", nil, apperr.ParseError("multipart message without boundary", nil)
	}

	var (
		textBody    string
		foundText   bool
		attachments []domain.Attachment
	)
	reader := multipart.NewReader(msg.Body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, apperr.ParseError("broken multipart body", err)
		}

		disposition, dispParams, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))

		if disposition == "attachment" {
			data, _ := io.ReadAll(part)
			attachments = append(attachments, domain.Attachment{
				Filename:    dispParams["filename"],
				ContentType: partType,
				Size:        len(data),
			})
			continue
		}

		// First text/plain part wins; nested multiparts are skipped
		if !foundText && (partType == "text/plain" || partType == "") {
			body, _, err := readTextPart(part, part.Header.Get("Content-Transfer-Encoding"))
			if err != nil {
				return "", nil, err
			}
			textBody = body
			foundText = true
		}
	}

	if !foundText {
		return "", nil, apperr.ParseError("no decodable text part", nil)
	}

	sort.SliceStable(attachments, func(i, j int) bool {
		return attachments[i].Filename < attachments[j].Filename
	})
	return textBody, attachments, nil
}

func readTextPart(r io.Reader, encoding string) (string, []domain.Attachment, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", nil, apperr.ParseError("unreadable message body", err)
	}
	return string(data), nil, nil
}

func decodeHeader(value string) string {
	decoder := mime.WordDecoder{}
	if decoded, err := decoder.DecodeHeader(value); err == nil {
		return decoded
	}
	return value
}
