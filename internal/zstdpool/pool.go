// Package zstdpool manages reusable zstd decoders for frame decoding.
package zstdpool

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Pool decodes individual zstd frames using pooled decoders to reduce
// allocation overhead. Pool is safe for concurrent use.
type Pool struct {
	pool             sync.Pool
	maxDecoderMemory uint64
}

// New creates a decoder pool.
// If maxMemory is 0, no memory limit is applied to decoders.
func New(maxMemory uint64) *Pool {
	p := &Pool{maxDecoderMemory: maxMemory}
	p.pool.New = func() any {
		dec, err := p.newDecoder()
		if err != nil {
			return nil
		}
		return dec
	}
	return p
}

// DecodeFrame appends the decompressed content of src to dst and returns
// the resulting slice.
func (p *Pool) DecodeFrame(dst, src []byte) ([]byte, error) {
	dec, release, err := p.get()
	if err != nil {
		return nil, err
	}
	defer release()
	return dec.DecodeAll(src, dst)
}

// get returns a decoder and a release function that must be called when done.
func (p *Pool) get() (*zstd.Decoder, func(), error) {
	dec, ok := p.pool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		// Pool's New function failed, try directly for the error.
		fresh, err := p.newDecoder()
		if err != nil {
			return nil, nil, err
		}
		dec = fresh
	}
	return dec, func() { p.pool.Put(dec) }, nil
}

func (p *Pool) newDecoder() (*zstd.Decoder, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if p.maxDecoderMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxDecoderMemory))
	}
	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("zstdpool: create decoder: %w", err)
	}
	return dec, nil
}
