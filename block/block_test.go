package block

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenesisBlock(t *testing.T) {
	g, err := NewGenesisBlock(1_700_000_000)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), g.Height)
	assert.Empty(t, g.PreviousHash)
	assert.Equal(t, GenesisText, g.Body.Text)
	assert.Len(t, g.Hash, 64)
	assert.True(t, g.VerifyHash())
}

func TestHashIsDeterministic(t *testing.T) {
	body := OwnedContent("1MwQ", Star{RA: "16h 29m 1.0s", Dec: "-26° 29' 24.9", Story: []byte("hello")})

	b1, err := Assemble(3, 100, body, "abc")
	require.NoError(t, err)
	b2, err := Assemble(3, 100, body, "abc")
	require.NoError(t, err)

	assert.Equal(t, b1.Hash, b2.Hash)

	b3, err := Assemble(3, 101, body, "abc")
	require.NoError(t, err)
	assert.NotEqual(t, b1.Hash, b3.Hash)
}

func TestEncodeDecodeKeepsHashValid(t *testing.T) {
	star := Star{RA: "1", Dec: "2", Magnitude: "4.2", Constellation: "Orion", Story: []byte("Found star using https://www.google.com/sky/")}
	b, err := Assemble(7, 1_700_000_123, OwnedContent("1MwQ", star), "prev")
	require.NoError(t, err)

	data, err := b.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"story":"466f756e64`)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, b, decoded)
	assert.True(t, decoded.VerifyHash())
	assert.Equal(t, "1MwQ", decoded.Owner())
	assert.Equal(t, string(star.Story), decoded.Body.Star.StoryDecoded())
}

func TestTamperedBlockFailsVerification(t *testing.T) {
	b, err := Assemble(1, 100, FreeText("original"), "prev")
	require.NoError(t, err)

	b.Body.Text = "tampered"
	assert.False(t, b.VerifyHash())
}

func TestFreeTextHasNoOwner(t *testing.T) {
	b, err := Assemble(1, 100, FreeText("note"), "prev")
	require.NoError(t, err)
	assert.Empty(t, b.Owner())
}

func TestBodyValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    Body
		wantErr bool
	}{
		{"text", FreeText("hello"), false},
		{"empty text", FreeText(""), true},
		{"owned", OwnedContent("1MwQ", Star{RA: "1", Dec: "2", Story: []byte("story")}), false},
		{"missing owner", OwnedContent("", Star{RA: "1", Dec: "2"}), true},
		{"missing coordinates", OwnedContent("1MwQ", Star{RA: "1"}), true},
		{"story too long", OwnedContent("1MwQ", Star{RA: "1", Dec: "2", Story: []byte(strings.Repeat("a", MaxStoryBytes+1))}), true},
		{"too many words", OwnedContent("1MwQ", Star{RA: "1", Dec: "2", Story: []byte(strings.Repeat("a ", MaxStoryWords+1))}), true},
		{"unknown kind", Body{Kind: "other"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.body.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidBody))
				return
			}
			require.NoError(t, err)
		})
	}
}
