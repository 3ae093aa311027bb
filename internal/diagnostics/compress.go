package diagnostics

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// 압축 해제 결과의 상한. 저장 시 원문 크기 제한보다 넉넉하다.
const maxDecodedBytes = 8 << 20

type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// codec 은 프로세스 전체에서 하나의 encoder/decoder 를 공유한다. EncodeAll/DecodeAll 은 동시 호출에 안전하다.
var codec = sync.OnceValues(func() (*zstdCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedBytes))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &zstdCodec{enc: enc, dec: dec}, nil
})

func compressZstd(src []byte) ([]byte, error) {
	c, err := codec()
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func decompressZstd(src []byte) ([]byte, error) {
	c, err := codec()
	if err != nil {
		return nil, err
	}
	out, err := c.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}
