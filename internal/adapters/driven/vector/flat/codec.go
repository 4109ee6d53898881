package flat

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// File layout, little-endian:
//
//	magic      [8]byte  "RCLIDX\x00\x00"
//	version    uint32
//	dimension  uint32
//	count      uint64
//	generation [16]byte
//	builtAt    int64    unix nanoseconds
//	records    count * (id int64, dimension * float32)
//	crc32      uint32   IEEE, over every preceding byte
const formatVersion = 1

var magic = [8]byte{'R', 'C', 'L', 'I', 'D', 'X', 0, 0}

type header struct {
	Magic      [8]byte
	Version    uint32
	Dimension  uint32
	Count      uint64
	Generation [16]byte
	BuiltAt    int64
}

// maxDimension guards against allocating from a corrupt header.
const maxDimension = 1 << 16

// WriteTo encodes the index. It implements io.WriterTo.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(io.MultiWriter(cw, crc))

	h := header{
		Magic:      magic,
		Version:    formatVersion,
		Dimension:  uint32(x.dimension),
		Count:      uint64(len(x.ids)),
		Generation: x.generation,
		BuiltAt:    x.builtAt.UnixNano(),
	}
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return cw.n, fmt.Errorf("writing header: %w", err)
	}

	record := make([]byte, 8+4*x.dimension)
	for i, id := range x.ids {
		binary.LittleEndian.PutUint64(record, uint64(id))
		row := x.vectors[i*x.dimension : (i+1)*x.dimension]
		for j, f := range row {
			binary.LittleEndian.PutUint32(record[8+j*4:], math.Float32bits(f))
		}
		if _, err := bw.Write(record); err != nil {
			return cw.n, fmt.Errorf("writing record %d: %w", id, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("flushing records: %w", err)
	}

	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], crc.Sum32())
	if _, err := cw.Write(trailer[:]); err != nil {
		return cw.n, fmt.Errorf("writing checksum: %w", err)
	}
	return cw.n, nil
}

// Decode reads an index written by WriteTo.
// Any structural problem or checksum mismatch returns domain.ErrCorruptIndex.
func Decode(r io.Reader) (*Index, error) {
	crc := crc32.NewIEEE()
	br := io.TeeReader(bufio.NewReader(r), crc)

	var h header
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, corrupt("reading header", err)
	}
	if h.Magic != magic {
		return nil, corrupt("bad magic", nil)
	}
	if h.Version != formatVersion {
		return nil, corrupt(fmt.Sprintf("unsupported format version %d", h.Version), nil)
	}
	if h.Dimension == 0 || h.Dimension > maxDimension {
		return nil, corrupt(fmt.Sprintf("invalid dimension %d", h.Dimension), nil)
	}

	dim := int(h.Dimension)
	x := &Index{
		dimension:  dim,
		positions:  make(map[int64]int),
		generation: uuid.UUID(h.Generation),
		builtAt:    time.Unix(0, h.BuiltAt).UTC(),
	}

	record := make([]byte, 8+4*dim)
	for i := uint64(0); i < h.Count; i++ {
		if _, err := io.ReadFull(br, record); err != nil {
			return nil, corrupt(fmt.Sprintf("reading record %d of %d", i, h.Count), err)
		}
		id := int64(binary.LittleEndian.Uint64(record))
		if _, dup := x.positions[id]; dup {
			return nil, corrupt(fmt.Sprintf("duplicate id %d", id), nil)
		}
		x.positions[id] = len(x.ids)
		x.ids = append(x.ids, id)
		for j := 0; j < dim; j++ {
			x.vectors = append(x.vectors, math.Float32frombits(binary.LittleEndian.Uint32(record[8+j*4:])))
		}
	}

	sum := crc.Sum32()
	var trailer [4]byte
	if _, err := io.ReadFull(br, trailer[:]); err != nil {
		return nil, corrupt("reading checksum", err)
	}
	if binary.LittleEndian.Uint32(trailer[:]) != sum {
		return nil, corrupt("checksum mismatch", nil)
	}
	return x, nil
}

func corrupt(msg string, err error) error {
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrCorruptIndex, err)
	}
	return fmt.Errorf("%s: %w", msg, domain.ErrCorruptIndex)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
