package drawing

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// 허용 MIME 은 모델이 인라인 이미지로 받는 형식으로 제한한다.
var allowedImageMIME = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
	"image/heic": true,
	"image/heif": true,
}

// 클라이언트가 흔히 보내는 비표준 MIME 별칭.
var mimeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
}

// ISO BMFF ftyp 브랜드. http.DetectContentType 은 HEIC/HEIF 를 판별하지 못한다.
var heifBrands = map[string]string{
	"heic": "image/heic",
	"heix": "image/heic",
	"heim": "image/heic",
	"heis": "image/heic",
	"hevc": "image/heic",
	"hevx": "image/heic",
	"mif1": "image/heif",
	"msf1": "image/heif",
}

// maxEncodedLen 은 디코딩 전에 거를 base64 길이 상한이다.
var maxEncodedLen = base64.StdEncoding.EncodedLen(MaxImageBytes) + 4

// DecodeImage 는 data URI, 표준/URL-safe base64 를 디코딩하고 MIME 을 결정한다.
// 크기 예산은 디코딩된 바이트 기준이다.
func DecodeImage(field string, content string) (Image, error) {
	payload, hint := splitDataURI(strings.TrimSpace(content))
	payload = stripWhitespace(payload)
	if payload == "" {
		return Image{}, &ValidationError{Field: field, Reason: "empty image content"}
	}
	if len(payload) > maxEncodedLen {
		return Image{}, &ValidationError{Field: field, Reason: "image exceeds 3932160 bytes"}
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return Image{}, &ValidationError{Field: field, Reason: "image content is not valid base64"}
	}
	if len(data) > MaxImageBytes {
		return Image{}, &ValidationError{Field: field, Reason: "image exceeds 3932160 bytes"}
	}

	mime := pickMIME(hint, data)
	if !allowedImageMIME[mime] {
		return Image{}, &ValidationError{Field: field, Reason: "unsupported image type " + mime}
	}
	return Image{MIMEType: mime, Data: data}, nil
}

func splitDataURI(s string) (payload string, mime string) {
	if !strings.HasPrefix(s, "data:") {
		return s, ""
	}
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return "", ""
	}
	meta := s[len("data:"):idx]
	mime, _, _ = strings.Cut(meta, ";")
	return s[idx+1:], strings.ToLower(strings.TrimSpace(mime))
}

func stripWhitespace(s string) string {
	if !strings.ContainsAny(s, " \t\r\n") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}

func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// pickMIME 은 data URI 의 MIME 을 우선하고, 없으면 바이트로 판별한다.
func pickMIME(hint string, data []byte) string {
	if hint != "" {
		if canonical, ok := mimeAliases[hint]; ok {
			return canonical
		}
		return hint
	}
	if mime, ok := sniffHEIF(data); ok {
		return mime
	}
	sniffed := http.DetectContentType(data)
	mime, _, _ := strings.Cut(sniffed, ";")
	return strings.TrimSpace(mime)
}

// sniffHEIF 는 첫 박스가 ftyp 이고 주 브랜드가 HEIF 계열인지 본다.
func sniffHEIF(data []byte) (string, bool) {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return "", false
	}
	mime, ok := heifBrands[string(data[8:12])]
	return mime, ok
}
