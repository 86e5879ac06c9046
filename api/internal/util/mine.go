package util

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrNoDelimiter = errors.New("image: data URI has no ',' between prefix and payload")
	ErrEmptyImage  = errors.New("image: empty payload")
)

// SplitDataURL splits "data:<mime>;base64,<payload>" on the first comma.
// The prefix is not validated; only the delimiter is required.
func SplitDataURL(s string) (mime, payload string, err error) {
	s = strings.TrimSpace(s)
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return "", "", ErrNoDelimiter
	}
	meta := s[:idx]
	if strings.HasPrefix(strings.ToLower(meta), "data:") {
		meta = meta[len("data:"):]
		if semi := strings.IndexByte(meta, ';'); semi >= 0 {
			meta = meta[:semi]
		}
		mime = strings.TrimSpace(meta)
	}
	return mime, s[idx+1:], nil
}

// DecodeBase64 decodes standard base64, then URL-safe base64 as a fallback.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b2, err2 := base64.URLEncoding.DecodeString(s)
		if err2 != nil {
			return nil, err
		}
		b = b2
	}
	if len(b) == 0 {
		return nil, ErrEmptyImage
	}
	return b, nil
}

func MakeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// PickMIME prefers the explicit MIME, then the data URI hint, then sniffs the bytes.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "image/png"
}
