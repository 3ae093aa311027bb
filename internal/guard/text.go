package guard

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
	"github.com/mtibben/confusables"
	"golang.org/x/text/unicode/norm"
)

// 20자 이상의 표준/URL-safe base64 덩어리
var base64Run = regexp.MustCompile(`[A-Za-z0-9+/_-]{20,}={0,2}`)

var base64Encodings = []*base64.Encoding{base64.RawStdEncoding, base64.RawURLEncoding}

// containsSuspiciousBase64 는 입력 안에 사람이 읽을 수 있는 문장으로 디코딩되는
// base64 덩어리가 있는지 확인한다. 디코딩 결과가 바이너리면 무시한다.
func containsSuspiciousBase64(input string) bool {
	for _, run := range base64Run.FindAllString(input, -1) {
		if decoded, ok := decodeBase64(run); ok && isReadableText(decoded) {
			return true
		}
	}
	return false
}

func decodeBase64(run string) ([]byte, bool) {
	raw := strings.TrimRight(run, "=")
	for _, enc := range base64Encodings {
		if decoded, err := enc.DecodeString(raw); err == nil {
			return decoded, true
		}
	}
	return nil, false
}

// isReadableText: 유효한 UTF-8 이고 90% 넘게 출력 가능 문자/공백인지
func isReadableText(data []byte) bool {
	if len(data) == 0 || !utf8.Valid(data) {
		return false
	}
	total, printable := 0, 0
	for _, r := range string(data) {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return printable*10 > total*9
}

// normalizeText 는 정규식 매칭용 두 번째 후보를 만든다.
func normalizeText(text string) string {
	if isASCIIOnly(text) {
		return stripControlChars(text)
	}
	return canonicalize(text)
}

func isASCIIOnly(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool { return r > unicode.MaxASCII }) < 0
}

// canonicalize: NFC → 이모지 제거 → 제어 문자 제거 → confusable skeleton → NFKC
func canonicalize(text string) string {
	text = norm.NFC.String(text)
	if gomoji.ContainsEmoji(text) {
		text = gomoji.RemoveEmojis(text)
	}
	return norm.NFKC.String(confusables.Skeleton(stripControlChars(text)))
}

// foldText 는 구문 매칭용 소문자 정규형이다. 규칙 구문도 같은 함수로 접으므로
// skeleton 치환(예: m → rn)은 입력과 규칙 양쪽에 똑같이 걸린다.
func foldText(text string) string {
	return strings.ToLower(canonicalize(strings.ToLower(text)))
}

func stripControlChars(text string) string {
	if strings.IndexFunc(text, isControl) < 0 {
		return text
	}
	return strings.Map(func(r rune) rune {
		if isControl(r) {
			return -1
		}
		return r
	}, text)
}

// isControl: 줄바꿈/탭을 뺀 Cc, Cf 범주
func isControl(r rune) bool {
	if r == '\n' || r == '\t' {
		return false
	}
	return unicode.In(r, unicode.Cc, unicode.Cf)
}
