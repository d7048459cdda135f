package odloader

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeShareLink(t *testing.T) {
	tests := []struct {
		link, want string
	}{
		{
			"https://1drv.ms/f/s!BOkKr2xV9XySgQRrEARB24iyX913",
			"u!aHR0cHM6Ly8xZHJ2Lm1zL2YvcyFCT2tLcjJ4VjlYeVNnUVJyRUFSQjI0aXlYOTEz",
		},
		{
			// exercises "/" and "+" substitution and padding removal
			"https://1drv.ms/u/s!AbC?x=>>>",
			"u!aHR0cHM6Ly8xZHJ2Lm1zL3UvcyFBYkM_eD0-Pj4",
		},
		{"", "u!"},
	}
	for _, tt := range tests {
		got, err := EncodeShareLink(tt.link)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "EncodeShareLink(%q)", tt.link)
	}
}

func TestEncodeShareLink_Deterministic(t *testing.T) {
	link := "https://1drv.ms/a/s!BOkKr2xV9XySdWsQBEHbiLJf3Xc"
	first, err := EncodeShareLink(link)
	require.NoError(t, err)
	second, err := EncodeShareLink(link)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEncodeShareLink_RoundTrip(t *testing.T) {
	links := []string{
		"https://1drv.ms/p/s!BOkKr2xV9XySdkj8ToXsbXlRfKY",
		"https://1drv.ms/u/s!AbC?x=>>>",
		"https://onedrive.live.com/?cid=1&id=ABC%21123&authkey=!xyz",
		"https://1drv.ms/f/s!ünïcødé",
		"a",
		"ab",
	}
	for _, link := range links {
		token, err := EncodeShareLink(link)
		require.NoError(t, err)
		require.False(t, strings.ContainsAny(strings.TrimPrefix(token, "u!"), "+/="), "token %q is not url-safe", token)

		decoded, err := DecodeShareToken(token)
		require.NoError(t, err)
		require.Equal(t, link, decoded)
	}
}

func TestEncodeShareLink_InvalidUTF8(t *testing.T) {
	_, err := EncodeShareLink("https://1drv.ms/f/\xff\xfe")
	require.Error(t, err)

	var encErr *EncodingError
	require.True(t, errors.As(err, &encErr))

	_, err = ShareEndpoint("\xff")
	require.True(t, errors.As(err, &encErr))
}

func TestDecodeShareToken_Invalid(t *testing.T) {
	_, err := DecodeShareToken("u!not*base64")
	require.Error(t, err)
}

func TestShareEndpoint(t *testing.T) {
	link := "https://1drv.ms/f/s!BOkKr2xV9XySgQRrEARB24iyX913"
	got, err := ShareEndpoint(link)
	require.NoError(t, err)
	require.Equal(t,
		"https://api.onedrive.com/v1.0/shares/u!aHR0cHM6Ly8xZHJ2Lm1zL2YvcyFCT2tLcjJ4VjlYeVNnUVJyRUFSQjI0aXlYOTEz/root",
		got)

	got, err = shareEndpoint("http://127.0.0.1:8080/", link)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got, "http://127.0.0.1:8080/shares/u!"))
	require.True(t, strings.HasSuffix(got, "/root"))
}
