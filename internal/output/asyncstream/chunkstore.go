package asyncstream

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// chunkStore persists write chunks to a temporary file, length-prefixed
// with a varint (spec.md §4.7: "length-prefixed, using multi-byte length
// encoding"), while a DialOutput is disconnected. Replay reads them back
// in the order they were written.
type chunkStore struct {
	f *os.File
}

func newChunkStore() (*chunkStore, error) {
	f, err := os.CreateTemp("", "eagine-log-chunk-*")
	if err != nil {
		return nil, fmt.Errorf("asyncstream: create chunk store: %w", err)
	}
	return &chunkStore{f: f}, nil
}

// append writes one length-prefixed chunk to the end of the store.
func (c *chunkStore) append(data []byte) error {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(data)))
	if _, err := c.f.Write(hdr[:n]); err != nil {
		return err
	}
	_, err := c.f.Write(data)
	return err
}

// replay invokes send for every stored chunk in write order, then
// truncates the store. If send returns an error, replay stops and leaves
// the unsent remainder (including the failed chunk) in the store.
func (c *chunkStore) replay(send func([]byte) error) error {
	if _, err := c.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r := newVarintReader(c.f)
	for {
		before := r.consumed
		chunk, err := r.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := send(chunk); err != nil {
			if cerr := c.compactFrom(before); cerr != nil {
				return cerr
			}
			return err
		}
	}
	return c.reset()
}

// reset empties the store after a full, successful replay.
func (c *chunkStore) reset() error {
	if err := c.f.Truncate(0); err != nil {
		return err
	}
	_, err := c.f.Seek(0, io.SeekStart)
	return err
}

// compactFrom drops the already-replayed prefix, keeping the chunk that
// failed to send and everything after it.
func (c *chunkStore) compactFrom(offset int64) error {
	if _, err := c.f.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	remainder, err := io.ReadAll(c.f)
	if err != nil {
		return err
	}
	if err := c.f.Truncate(0); err != nil {
		return err
	}
	if _, err := c.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err = c.f.Write(remainder)
	return err
}

func (c *chunkStore) close() error {
	name := c.f.Name()
	c.f.Close()
	return os.Remove(name)
}

type varintReader struct {
	r        io.Reader
	consumed int64
}

func newVarintReader(r io.Reader) *varintReader { return &varintReader{r: r} }

func (r *varintReader) next() ([]byte, error) {
	n, err := binary.ReadUvarint(byteReaderOf(r))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, err
	}
	r.consumed += int64(n)
	return buf, nil
}

// byteReaderOf adapts an io.Reader to io.ByteReader, tracking bytes
// consumed so the caller can compact the store from an exact offset.
type countingByteReader struct {
	r    *varintReader
	read int64
}

func byteReaderOf(r *varintReader) io.ByteReader { return &countingByteReader{r: r} }

func (c *countingByteReader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(c.r.r, b[:]); err != nil {
		return 0, err
	}
	c.r.consumed++
	return b[0], nil
}
