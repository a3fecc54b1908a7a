package provider

import (
	"strings"
	"testing"
)

func TestBuildRawMessage(t *testing.T) {
	raw := buildRawMessage("msg-123", "jane@example.com", "Re: Help", "Hello Jane")

	wantHeaders := []string{
		"To: jane@example.com\r\n",
		"Subject: Re: Help\r\n",
		"In-Reply-To: <msg-123>\r\n",
		"References: <msg-123>\r\n",
	}
	for _, h := range wantHeaders {
		if !strings.Contains(raw, h) {
			t.Errorf("raw message missing header %q", h)
		}
	}
	if !strings.HasSuffix(raw, "\r\n\r\nHello Jane") {
		t.Errorf("raw message body malformed: %q", raw)
	}
}

func TestBuildRawMessageWithoutThread(t *testing.T) {
	raw := buildRawMessage("", "jane@example.com", "Hi", "Body")
	if strings.Contains(raw, "In-Reply-To") || strings.Contains(raw, "References") {
		t.Errorf("threadless message must not carry reply headers: %q", raw)
	}
}
