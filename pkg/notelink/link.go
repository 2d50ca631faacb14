package notelink

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrMissingID  = errors.New("notelink: link has no note id")
	ErrMissingKey = errors.New("notelink: link has no key fragment")
)

// BuildLink composes <origin>/view?id=<id>#key=<key>. The key is encoded as
// unpadded base64url so it survives copy and paste without escaping.
func BuildLink(origin, id string, key Key) string {
	q := url.Values{"id": {id}}
	return strings.TrimRight(origin, "/") + "/view?" + q.Encode() +
		"#key=" + base64.RawURLEncoding.EncodeToString(key[:])
}

// ParseLink extracts the note id and key from a share link. The key may be
// standard or URL-safe base64, padded or not.
func ParseLink(raw string) (string, Key, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", Key{}, fmt.Errorf("notelink: parse link: %w", err)
	}

	id := u.Query().Get("id")
	if id == "" {
		return "", Key{}, ErrMissingID
	}

	encoded := fragmentValue(u.EscapedFragment(), "key")
	if encoded == "" {
		return "", Key{}, ErrMissingKey
	}

	keyBytes, err := decodeKey(encoded)
	if err != nil {
		return "", Key{}, err
	}
	key, err := KeyFromBytes(keyBytes)
	if err != nil {
		return "", Key{}, err
	}

	return id, key, nil
}

// fragmentValue reads name from a key=value&... fragment without treating
// '+' as a space, since standard base64 keys contain it.
func fragmentValue(fragment, name string) string {
	for _, part := range strings.Split(fragment, "&") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k != name {
			continue
		}
		if unescaped, err := url.PathUnescape(v); err == nil {
			return unescaped
		}
		return v
	}
	return ""
}

func decodeKey(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if strings.ContainsAny(s, "+/") {
		s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("notelink: decode key: %w", err)
	}
	return b, nil
}
