package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner("test-secret")
	require.NoError(t, err)
	return s
}

func TestNewSigner_RejectsEmptySecret(t *testing.T) {
	s, err := NewSigner("")
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestSigner_SignIsDeterministic(t *testing.T) {
	s := newTestSigner(t)

	a := s.Sign("t:tck_1:u:u1")
	b := s.Sign("t:tck_1:u:u1")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "t:tck_1:u:u1."))
	// hex SHA-256 digest
	assert.Len(t, a, len("t:tck_1:u:u1.")+64)
}

func TestSigner_RoundTrip(t *testing.T) {
	s := newTestSigner(t)

	for _, payload := range []string{"x", "t:tck_1:u:u1", "with spaces and ümlauts", ":::"} {
		got, ok := s.Verify(s.Sign(payload))
		assert.True(t, ok, payload)
		assert.Equal(t, payload, got)
	}
}

func TestSigner_DifferentSecretsDisagree(t *testing.T) {
	a := newTestSigner(t)
	b, err := NewSigner("other-secret")
	require.NoError(t, err)

	_, ok := b.Verify(a.Sign("t:tck_1:u:u1"))
	assert.False(t, ok)
}

func TestSigner_DetectsEverySingleCharacterChange(t *testing.T) {
	s := newTestSigner(t)
	signed := s.Sign("t:tck_abc:u:42")

	for i := 0; i < len(signed); i++ {
		mutated := []byte(signed)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		payload, ok := s.Verify(string(mutated))
		assert.False(t, ok, "position %d", i)
		assert.Empty(t, payload)
	}
}

func TestSigner_VerifyMalformed(t *testing.T) {
	s := newTestSigner(t)
	valid := s.Sign("t:tck_1:u:u1")

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no separator", "t:tck_1:u:u1"},
		{"empty digest", "t:tck_1:u:u1."},
		{"non hex digest", "t:tck_1:u:u1.zzzz"},
		{"odd length hex", "t:tck_1:u:u1.abc"},
		{"truncated digest", valid[:len(valid)-2]},
		{"digest only", valid[strings.Index(valid, "."):]},
		{"trailing data", valid + ".extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				payload, ok := s.Verify(tt.input)
				assert.False(t, ok)
				assert.Empty(t, payload)
			})
		})
	}
}

func TestParseTicketPayload(t *testing.T) {
	tests := []struct {
		payload    string
		wantTicket string
		wantUser   string
	}{
		{"t:tck_1:u:u1", "tck_1", "u1"},
		{"u:u1:t:tck_1", "tck_1", "u1"},
		{"t:tck_1:u:u1:x:extra", "tck_1", "u1"},
		{"t:tck_1", "tck_1", ""},
		{"garbage", "", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			ticketID, userID := ParseTicketPayload(tt.payload)
			assert.Equal(t, tt.wantTicket, ticketID)
			assert.Equal(t, tt.wantUser, userID)
		})
	}
}

func TestReplyToken(t *testing.T) {
	s := newTestSigner(t)

	tok := s.MintReplyToken("tck_abc", "u9")
	claims, ok := s.OpenReplyToken(tok)
	require.True(t, ok)
	assert.Equal(t, TicketClaims{TicketID: "tck_abc", UserID: "u9"}, claims)

	_, ok = s.OpenReplyToken(s.Sign("no-ticket-here"))
	assert.False(t, ok)

	_, ok = s.OpenReplyToken("t:tck_abc:u:u9.deadbeef")
	assert.False(t, ok)
}

func TestReplyToken_DottedUserIDDoesNotOpen(t *testing.T) {
	s := newTestSigner(t)

	// the digest starts at the first '.', so a dotted payload never verifies
	tok := s.MintReplyToken("tck_abc", "maria.silva")
	_, ok := s.OpenReplyToken(tok)
	assert.False(t, ok)

	_, ok = s.Verify(s.Sign("t:tck_abc:u:maria.silva"))
	assert.False(t, ok)
}
