package drawing

import (
	"encoding/base64"
	"testing"
)

func pngBytes(size int) []byte {
	header := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	if size < len(header) {
		size = len(header)
	}
	data := make([]byte, size)
	copy(data, header)
	return data
}

func pngBase64(size int) string {
	return base64.StdEncoding.EncodeToString(pngBytes(size))
}

func intPtr(v int) *int {
	return &v
}

func mustCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

func mustValidate(t *testing.T, in AnalysisRequest) *Request {
	t.Helper()
	req, err := ValidateRequest(in)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	return req
}
