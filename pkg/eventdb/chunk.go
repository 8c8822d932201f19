package eventdb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"camkeep/pkg/storage"
)

const (
	chunkAPIVersion   = 0
	chunkIDLength     = 5
	chunkHeaderLength = 1
	recordSize        = 16 // time(8) + payloadOffset(4) + payloadSize(4)
)

var padChunkID = "%0" + strconv.Itoa(chunkIDLength) + "d"

func formatChunkID(n int64) string {
	return fmt.Sprintf(padChunkID, n)
}

func chunkPaths(dir, chunkID string) (string, string) {
	return filepath.Join(dir, chunkID+".data"), filepath.Join(dir, chunkID+".payload")
}

func listChunkIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read event chunk dir: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if len(name) < chunkIDLength+5 || filepath.Ext(name) != ".data" {
			continue
		}
		ids = append(ids, name[:chunkIDLength])
	}
	return ids, nil
}

type chunkDecoder struct {
	nRecords int
	data     io.ReadSeekCloser
	payload  io.ReadSeekCloser
}

func newChunkDecoder(dir, chunkID string) (*chunkDecoder, error) {
	dataPath, payloadPath := chunkPaths(dir, chunkID)

	data, err := os.Open(dataPath)
	if err != nil {
		return nil, err
	}

	version := make([]byte, 1)
	if _, err := io.ReadFull(data, version); err != nil {
		data.Close()
		return nil, fmt.Errorf("read chunk version: %w", err)
	}
	if version[0] != chunkAPIVersion {
		data.Close()
		return nil, fmt.Errorf("event chunk %s: %w", chunkID, ErrUnknownChunkVersion)
	}

	stat, err := data.Stat()
	if err != nil {
		data.Close()
		return nil, err
	}

	payload, err := os.Open(payloadPath)
	if err != nil {
		data.Close()
		return nil, err
	}

	return &chunkDecoder{
		data:     data,
		payload:  payload,
		nRecords: calculateNRecords(stat.Size()),
	}, nil
}

func calculateNRecords(size int64) int {
	n := (size - chunkHeaderLength) / recordSize
	if n < 0 {
		return 0
	}
	return int(n)
}

func calculateDataEnd(size int64) int64 {
	return int64(chunkHeaderLength) + int64(calculateNRecords(size))*recordSize
}

func (c *chunkDecoder) close() {
	c.data.Close()
	c.payload.Close()
}

func (c *chunkDecoder) lastIndex() int {
	return c.nRecords - 1
}

// search returns the index of the first record whose time is >= t.
func (c *chunkDecoder) search(t int64) (int, error) {
	l, r := 0, c.nRecords-1
	for l <= r {
		i := (l + r) / 2
		rec, _, err := c.decodeRecord(i)
		if err != nil {
			return 0, err
		}
		switch {
		case rec.time < t:
			l = i + 1
		case rec.time > t:
			r = i - 1
		default:
			return i, nil
		}
	}
	return l, nil
}

type record struct {
	time          int64
	payloadOffset uint32
	payloadSize   uint32
}

func (c *chunkDecoder) decodeRecord(index int) (record, int64, error) {
	pos := int64(chunkHeaderLength + index*recordSize)
	if _, err := c.data.Seek(pos, io.SeekStart); err != nil {
		return record{}, 0, fmt.Errorf("seek record: %w", err)
	}

	buf := make([]byte, recordSize)
	if _, err := io.ReadFull(c.data, buf); err != nil {
		return record{}, 0, fmt.Errorf("read record: %w", err)
	}

	return record{
		time:          int64(binary.BigEndian.Uint64(buf[0:8])),
		payloadOffset: binary.BigEndian.Uint32(buf[8:12]),
		payloadSize:   binary.BigEndian.Uint32(buf[12:16]),
	}, pos, nil
}

// decode returns the event at index, or (nil, io.EOF) if index names a
// truncated final record (a crash mid-write).
func (c *chunkDecoder) decode(index int) (*storage.Event, error) {
	if index < 0 || index >= c.nRecords {
		return nil, io.EOF
	}
	rec, _, err := c.decodeRecord(index)
	if err != nil {
		return nil, io.EOF
	}

	if _, err := c.payload.Seek(int64(rec.payloadOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek payload: %w", err)
	}
	buf := make([]byte, rec.payloadSize)
	if _, err := io.ReadFull(c.payload, buf); err != nil {
		return nil, io.EOF
	}

	var ev storage.Event
	if err := json.Unmarshal(buf, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &ev, nil
}

type writeSeekCloser interface {
	io.Writer
	io.Seeker
	io.Closer
}

type chunkEncoder struct {
	chunkID string
	data    writeSeekCloser
	payload writeSeekCloser
	pos     uint32
}

// newChunkEncoder opens (or creates) the chunk, positioned to append, and
// returns the time of its last record so the caller can keep times
// strictly increasing within the chunk.
func newChunkEncoder(dir, chunkID string) (*chunkEncoder, int64, error) {
	dataPath, payloadPath := chunkPaths(dir, chunkID)

	dataEnd := int64(chunkHeaderLength)
	payloadPos := uint32(0)
	var prevTime int64

	dataSize := fileSize(dataPath)
	if dataSize == 0 {
		if err := os.WriteFile(dataPath, []byte{chunkAPIVersion}, 0o600); err != nil {
			return nil, 0, fmt.Errorf("write chunk version: %w", err)
		}
	} else {
		decoder, err := newChunkDecoder(dir, chunkID)
		if err != nil {
			return nil, 0, fmt.Errorf("open chunk for resume: %w", err)
		}
		defer decoder.close()

		i := decoder.lastIndex()
		rec, _, err := decoder.decodeRecord(i)
		if err != nil {
			return nil, 0, err
		}
		prevTime = rec.time
		dataEnd = calculateDataEnd(dataSize)
		payloadPos = rec.payloadOffset + rec.payloadSize
	}

	data, err := os.OpenFile(dataPath, os.O_WRONLY, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("open chunk data: %w", err)
	}
	if _, err := data.Seek(dataEnd, io.SeekStart); err != nil {
		data.Close()
		return nil, 0, fmt.Errorf("seek chunk data end: %w", err)
	}

	payload, err := os.OpenFile(payloadPath, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		data.Close()
		return nil, 0, fmt.Errorf("open chunk payload: %w", err)
	}
	if _, err := payload.Seek(int64(payloadPos), io.SeekStart); err != nil {
		data.Close()
		payload.Close()
		return nil, 0, fmt.Errorf("seek chunk payload end: %w", err)
	}

	return &chunkEncoder{chunkID: chunkID, data: data, payload: payload, pos: payloadPos}, prevTime, nil
}

func fileSize(path string) int64 {
	stat, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return stat.Size()
}

func (c *chunkEncoder) encode(t int64, ev storage.Event) error {
	buf, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := c.payload.Write(buf); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	rec := make([]byte, recordSize)
	binary.BigEndian.PutUint64(rec[0:8], uint64(t))
	binary.BigEndian.PutUint32(rec[8:12], c.pos)
	binary.BigEndian.PutUint32(rec[12:16], uint32(len(buf)))
	if _, err := c.data.Write(rec); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	c.pos += uint32(len(buf))
	return nil
}

func (c *chunkEncoder) close() {
	c.data.Close()
	c.payload.Close()
}
