// Package seekzstd provides random-access reads of zstd seekable-format
// archives over any byte source that supports range reads.
//
// A seekable archive is a sequence of independently decodable zstd frames
// followed by a seek table stored in a skippable frame. The seek table maps
// decompressed offsets to compressed frame extents, so a [Reader] can serve
// reads at arbitrary offsets by fetching and decompressing only the frames
// that cover the requested range.
//
// Byte sources are injected via the [ByteSource] interface. Implementations
// are provided for local files ([OpenFile]) and HTTP range requests (the
// http subpackage); anything with ReadAt plus a known size works, including
// object stores fronted by range-capable gateways.
//
// # Quick Start
//
// Read from a remote archive:
//
//	src, err := seekhttp.NewSource("https://example.com/data.zst")
//	if err != nil {
//	    return err
//	}
//	r, err := seekzstd.NewReader(src)
//	if err != nil {
//	    return err
//	}
//	if _, err := r.Seek(1 << 20, io.SeekStart); err != nil {
//	    return err
//	}
//	buf := make([]byte, 4096)
//	n, err := r.Read(buf)
//
// # Caching
//
// Decompressed frames are cached so that sequential reads and backward
// seeks do not refetch data. Each reader keeps a small bounded cache by
// default; use [WithCache] to share a larger cache (see the cache and
// cache/disk subpackages) across readers.
//
// # Concurrency
//
// Read and Seek mutate the reader's cursor and must not be called
// concurrently. ReadAt is stateless and safe for concurrent use;
// simultaneous requests for the same frame are coalesced into a single
// fetch.
package seekzstd
