package mailgun

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestVerifySignature(t *testing.T) {
	sig := Sign("key-123", "1700000000", "abc")

	require.NoError(t, VerifySignature("key-123", "1700000000", "abc", sig))
	assert.ErrorIs(t, VerifySignature("key-123", "1700000001", "abc", sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("other", "1700000000", "abc", sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("", "1700000000", "abc", sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("key-123", "1700000000", "abc", ""), ErrInvalidSignature)
}

func TestVerifySignature_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[a-z0-9-]{1,40}`).Draw(t, "key")
		ts := rapid.StringMatching(`[0-9]{10}`).Draw(t, "timestamp")
		token := rapid.StringMatching(`[a-f0-9]{50}`).Draw(t, "token")

		sig := Sign(key, ts, token)
		if err := VerifySignature(key, ts, token, sig); err != nil {
			t.Fatalf("own signature rejected: %v", err)
		}
		if err := VerifySignature(key, ts, token+"0", sig); err == nil {
			t.Fatalf("tampered token accepted")
		}
	})
}

func TestReplyAddressRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.StringMatching(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`).Draw(t, "id")
		got, ok := ParseReplyAddress(ReplyAddress(id, "mg.example.com"))
		if !ok || got != id {
			t.Fatalf("round trip: got %q ok=%v, want %q", got, ok, id)
		}
	})
}

func TestParseReplyAddress(t *testing.T) {
	cases := []struct {
		in     string
		wantID string
		wantOK bool
	}{
		{"reply+abc@mg.example.com", "abc", true},
		{"Team <Reply+abc@mg.example.com>", "abc", true},
		{"hello@mg.example.com, reply+xyz@mg.example.com", "xyz", true},
		{"reply+@mg.example.com", "", false},
		{"talent@example.com", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		id, ok := ParseReplyAddress(tc.in)
		assert.Equal(t, tc.wantOK, ok, tc.in)
		assert.Equal(t, tc.wantID, id, tc.in)
	}
}

func TestParseSender(t *testing.T) {
	name, addr := ParseSender(`"Jane Doe" <jane@brand.com>`)
	assert.Equal(t, "Jane Doe", name)
	assert.Equal(t, "jane@brand.com", addr)

	name, addr = ParseSender("not an address")
	assert.Empty(t, name)
	assert.Equal(t, "not an address", addr)
}

func TestRecipients(t *testing.T) {
	assert.Equal(t, []string{"talent@example.com", "cc@example.com"}, Recipients("Talent@Example.com, <CC@example.com>"))
	assert.Nil(t, Recipients("  "))
}

func TestFromAddress(t *testing.T) {
	assert.Equal(t, "hello@mg.example.com", FromAddress("", "mg.example.com"))
	assert.True(t, strings.HasSuffix(FromAddress("Ada Team", "mg.example.com"), "<hello@mg.example.com>"))
}
