package notelink

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncryptDecrypt(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	ciphertext, iv, err := Encrypt(key, []byte("meet at noon"))
	require.NoError(t, err)
	assert.Len(t, iv, IVSize)
	assert.Len(t, ciphertext, len("meet at noon")+16)

	plaintext, err := Decrypt(key, ciphertext, iv)
	require.NoError(t, err)
	assert.Equal(t, "meet at noon", string(plaintext))

	other, err := GenerateKey()
	require.NoError(t, err)
	_, err = Decrypt(other, ciphertext, iv)
	assert.ErrorIs(t, err, ErrDecrypt)

	tampered := bytes.Clone(ciphertext)
	tampered[0] ^= 0xff
	_, err = Decrypt(key, tampered, iv)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = Decrypt(key, ciphertext, iv[:8])
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestEncrypt_FreshIVs(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	_, iv1, err := Encrypt(key, []byte("x"))
	require.NoError(t, err)
	_, iv2, err := Encrypt(key, []byte("x"))
	require.NoError(t, err)
	assert.NotEqual(t, iv1, iv2)
}

func TestEncryptDecrypt_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var key Key
		copy(key[:], rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "key"))
		plaintext := rapid.SliceOf(rapid.Byte()).Draw(t, "plaintext")

		ciphertext, iv, err := Encrypt(key, plaintext)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Decrypt(key, ciphertext, iv)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("round trip mismatch")
		}
	})
}

func TestKeyFromBytes(t *testing.T) {
	_, err := KeyFromBytes(make([]byte, 16))
	assert.ErrorIs(t, err, ErrInvalidKey)

	raw := bytes.Repeat([]byte{7}, KeySize)
	k, err := KeyFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, k[:])
}

func TestBuildAndParseLink(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	link := BuildLink("https://notes.example/", "3f1c8a2e-0000-4000-8000-000000000001", key)
	assert.True(t, strings.HasPrefix(link, "https://notes.example/view?id=3f1c8a2e-0000-4000-8000-000000000001#key="))

	beforeFragment, _, _ := strings.Cut(link, "#")
	assert.NotContains(t, beforeFragment, base64.RawURLEncoding.EncodeToString(key[:]))

	id, parsed, err := ParseLink(link)
	require.NoError(t, err)
	assert.Equal(t, "3f1c8a2e-0000-4000-8000-000000000001", id)
	assert.Equal(t, key, parsed)
}

func TestParseLink_StandardBase64(t *testing.T) {
	var key Key
	for i := range key {
		key[i] = 0xfb // encodes to '+' and '/' heavy output
	}
	std := base64.StdEncoding.EncodeToString(key[:])
	require.True(t, strings.ContainsAny(std, "+/"))

	id, parsed, err := ParseLink("http://127.0.0.1:5500/view?id=abc#key=" + std)
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
	assert.Equal(t, key, parsed)
}

func TestParseLink_Errors(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	encoded := base64.RawURLEncoding.EncodeToString(key[:])

	tests := []struct {
		name string
		link string
		want error
	}{
		{name: "missing id", link: "https://n.example/view#key=" + encoded, want: ErrMissingID},
		{name: "missing fragment", link: "https://n.example/view?id=abc", want: ErrMissingKey},
		{name: "key in query only", link: "https://n.example/view?id=abc&key=" + encoded, want: ErrMissingKey},
		{name: "short key", link: "https://n.example/view?id=abc#key=" + encoded[:10], want: ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseLink(tt.link)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, _, err = ParseLink("https://n.example/view?id=abc#key=***")
	assert.ErrorContains(t, err, "decode key")
}

func TestFormatTTL(t *testing.T) {
	at := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)

	assert.Equal(t, "10 minutes (14:05:09)", FormatTTL(10, at))
	assert.Equal(t, "1 hour (2026-03-01 14:05)", FormatTTL(60, at))
	assert.Equal(t, "2 hours (2026-03-01 14:05)", FormatTTL(179, at))
	assert.Equal(t, "1 day (2026-03-01)", FormatTTL(1440, at))
	assert.Equal(t, "7 days (2026-03-01)", FormatTTL(7*1440, at))
}

func TestFormatCountdown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "9m 5s", FormatCountdown(now, now.Add(9*time.Minute+5*time.Second)))
	assert.Equal(t, "Expired", FormatCountdown(now, now))
	assert.Equal(t, "Expired", FormatCountdown(now, now.Add(-time.Second)))
}
