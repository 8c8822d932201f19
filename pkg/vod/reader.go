package vod

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"camkeep/pkg/video/customformat"
)

// Reader implements io.ReadSeekCloser over a synthesized ftyp+moov prefix
// followed by the recording's raw mdat payload, read directly from the
// .mdat file without ever loading it into memory.
type Reader struct {
	meta io.ReadSeeker // ftyp+moov+mdat-header, generated in memory.
	mdat *os.File

	metaSize int64
	mdatSize int64

	pos int64

	modTime time.Time
}

// mdatHeaderSize is the 8-byte box header ("size" + "mdat") prefixed to
// the raw payload so the synthesized file is a well-formed ISO-BMFF mdat.
const mdatHeaderSize = 8

// NewReader opens recordingPath+".meta" and recordingPath+".mdat" and
// returns a seekable view of the reconstructed single-file MP4. Caller
// must call Close. If cache is non-nil, the generated moov is memoized.
func NewReader(recordingPath string, cache *Cache) (*Reader, error) {
	metaPath := recordingPath + ".meta"
	mdatPath := recordingPath + ".mdat"

	metaStat, err := os.Stat(metaPath)
	if err != nil {
		return nil, fmt.Errorf("stat meta file: %w", err)
	}

	var entry *cacheEntry
	if cache != nil {
		entry = cache.get(recordingPath, metaStat.ModTime())
	}
	if entry == nil {
		entry, err = generateCacheEntry(metaPath, int(metaStat.Size()), metaStat.ModTime())
		if err != nil {
			return nil, err
		}
		if cache != nil {
			cache.add(recordingPath, entry)
		}
	}

	mdat, err := os.Open(mdatPath)
	if err != nil {
		return nil, fmt.Errorf("open mdat file: %w", err)
	}

	return &Reader{
		meta:     bytes.NewReader(entry.buf),
		mdat:     mdat,
		metaSize: int64(len(entry.buf)),
		mdatSize: entry.mdatSize,
		modTime:  entry.modTime,
	}, nil
}

func generateCacheEntry(metaPath string, metaFileSize int, modTime time.Time) (*cacheEntry, error) {
	f, err := os.Open(metaPath)
	if err != nil {
		return nil, fmt.Errorf("open meta file: %w", err)
	}
	defer f.Close()

	reader, header, err := customformat.NewReader(f, metaFileSize)
	if err != nil {
		return nil, fmt.Errorf("new reader: %w", err)
	}

	samples, err := reader.ReadAllSamples()
	if err != nil {
		return nil, fmt.Errorf("read all samples: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("generate cache entry: recording has no samples")
	}

	moov, mdatSize, err := GenerateMoov(*header, samples)
	if err != nil {
		return nil, fmt.Errorf("generate moov: %w", err)
	}

	buf := make([]byte, 0, len(moov)+mdatHeaderSize)
	buf = append(buf, moov...)
	buf = appendMdatHeader(buf, mdatSize)

	return &cacheEntry{
		buf:      buf,
		mdatSize: mdatSize,
		modTime:  modTime,
	}, nil
}

func appendMdatHeader(buf []byte, mdatSize int64) []byte {
	size := uint32(mdatHeaderSize + mdatSize)
	buf = append(buf, byte(size>>24), byte(size>>16), byte(size>>8), byte(size))
	return append(buf, 'm', 'd', 'a', 't')
}

// Read implements io.Reader. A read straddling the meta/mdat boundary
// concatenates the tail of the generated prefix with a read from the
// .mdat file; a read past end-of-file returns a short read, not an error.
func (r *Reader) Read(p []byte) (int, error) {
	total := r.metaSize + r.mdatSize
	if r.pos >= total {
		return 0, io.EOF
	}

	if r.pos >= r.metaSize {
		if _, err := r.mdat.Seek(r.pos-r.metaSize, io.SeekStart); err != nil {
			return 0, err
		}
		n, err := r.mdat.Read(p)
		r.pos += int64(n)
		return n, err
	}

	if _, err := r.meta.Seek(r.pos, io.SeekStart); err != nil {
		return 0, err
	}

	n, err := r.meta.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err
	}
	r.pos += int64(n)

	if n == len(p) || r.pos >= total {
		return n, nil
	}

	if _, err := r.mdat.Seek(r.pos-r.metaSize, io.SeekStart); err != nil {
		return n, err
	}
	n2, err := r.mdat.Read(p[n:])
	r.pos += int64(n2)
	if err != nil && !errors.Is(err, io.EOF) {
		return n + n2, err
	}
	return n + n2, nil
}

// Seek implements io.Seeker.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = r.metaSize + r.mdatSize + offset
	default:
		return 0, fmt.Errorf("vod reader seek: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("vod reader seek: negative position")
	}
	r.pos = abs
	return abs, nil
}

// Close implements io.Closer.
func (r *Reader) Close() error {
	return r.mdat.Close()
}

// Size is the logical size of the synthesized file.
func (r *Reader) Size() int64 {
	return r.metaSize + r.mdatSize
}

// ModTime is the modification time of the backing .meta file.
func (r *Reader) ModTime() time.Time {
	return r.modTime
}
