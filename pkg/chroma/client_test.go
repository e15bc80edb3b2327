package chroma

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentText(t *testing.T) {
	text := DocumentText(Document{SenderHandle: "brand", Source: "EMAIL", Subject: "Collab", Message: "Let's work together"})
	assert.Contains(t, text, "From: brand")
	assert.Contains(t, text, "Subject: Collab")
	assert.True(t, strings.HasSuffix(text, "Let's work together"))

	long := DocumentText(Document{Message: strings.Repeat("x", 2*maxDocumentChars)})
	assert.Len(t, long, maxDocumentChars)
}
