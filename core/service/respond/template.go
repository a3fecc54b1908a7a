package respond

import (
	"net/mail"
	"strings"
	"unicode"
)

// Reply template: greeting, generated content, optional reference line,
// signature, joined by blank lines. Extraction reverses rendering so
// the generated content survives a round trip unchanged.

const signatureBlock = "Best regards,\nAutomated Response Team"

// Reference lines are recognized by their fixed prefixes on extraction.
var referencePrefixes = []string{
	"Ticket reference:",
	"Regarding our previous conversation",
	"Proposed meeting times:",
}

// RenderReply assembles the full reply body for the given sender.
func RenderReply(sender, content, reference string) string {
	sections := []string{
		"Dear " + GreetingName(sender) + ",",
		content,
	}
	if reference != "" {
		sections = append(sections, reference)
	}
	sections = append(sections, signatureBlock)
	return strings.Join(sections, "\n\n")
}

// ExtractContent recovers the generated content section from a rendered
// reply: everything between the greeting and the reference/signature
// tail.
func ExtractContent(rendered string) string {
	body, ok := strings.CutSuffix(rendered, "\n\n"+signatureBlock)
	if !ok {
		return rendered
	}
	_, body, ok = strings.Cut(body, "\n\n")
	if !ok {
		return body
	}
	if idx := strings.LastIndex(body, "\n\n"); idx >= 0 {
		tail := body[idx+2:]
		for _, prefix := range referencePrefixes {
			if strings.HasPrefix(tail, prefix) {
				return body[:idx]
			}
		}
	}
	return body
}

// GreetingName derives a display name from the sender address: the
// display name when present, otherwise the title-cased local part.
func GreetingName(sender string) string {
	addr, err := mail.ParseAddress(sender)
	if err != nil {
		addr = &mail.Address{Address: sender}
	}
	if addr.Name != "" {
		return addr.Name
	}

	local := addr.Address
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)

	words := strings.Fields(local)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	if len(words) == 0 {
		return "Customer"
	}
	return strings.Join(words, " ")
}
