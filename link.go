package odloader

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultAPIBase = "https://api.onedrive.com/v1.0"

	sharePrefix = "u!"
)

// EncodeShareLink turns a public share URL into the "u!" token the shares API
// expects: base64 of the raw link with the URL-safe alphabet and no padding.
func EncodeShareLink(link string) (string, error) {
	if !utf8.ValidString(link) {
		return "", &EncodingError{Link: link}
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(link))
	encoded = strings.NewReplacer("/", "_", "+", "-").Replace(encoded)
	return sharePrefix + strings.TrimRight(encoded, "="), nil
}

// DecodeShareToken reverses EncodeShareLink. The "u!" prefix is optional.
func DecodeShareToken(token string) (string, error) {
	token = strings.TrimPrefix(token, sharePrefix)
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode share token: %w", err)
	}
	return string(raw), nil
}

// ShareEndpoint returns the metadata endpoint of a share link on the public API.
func ShareEndpoint(link string) (string, error) {
	return shareEndpoint(DefaultAPIBase, link)
}

func shareEndpoint(base, link string) (string, error) {
	token, err := EncodeShareLink(link)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/shares/%s/root", strings.TrimRight(base, "/"), token), nil
}
