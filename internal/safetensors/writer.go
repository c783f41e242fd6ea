package safetensors

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/x448/float16"
)

// Tensor is an in-memory float32 tensor to be written.
type Tensor struct {
	Shape []int
	Data  []float32
}

// WriteOptions controls how tensors are encoded.
type WriteOptions struct {
	// DType is DTypeF32 (default) or DTypeF16.
	DType    string
	Metadata map[string]string
}

// WriteFile writes tensors to path in safetensors layout.
func WriteFile(path string, tensors map[string]Tensor, opts WriteOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return Write(f, tensors, opts)
}

// Write encodes tensors to w. Tensors are laid out in name order so output
// is deterministic.
func Write(w io.Writer, tensors map[string]Tensor, opts WriteOptions) error {
	dtype := opts.DType
	if dtype == "" {
		dtype = DTypeF32
	}
	var elemSize int
	switch dtype {
	case DTypeF32:
		elemSize = 4
	case DTypeF16:
		elemSize = 2
	default:
		return fmt.Errorf("unsupported write dtype %s", dtype)
	}

	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(tensors)+1)
	if len(opts.Metadata) > 0 {
		header["__metadata__"] = opts.Metadata
	}
	var offset int64
	for _, name := range names {
		t := tensors[name]
		n, err := NumElements(t.Shape)
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		if n != len(t.Data) {
			return fmt.Errorf("tensor %s: shape %v does not match %d values", name, t.Shape, len(t.Data))
		}
		size := int64(n * elemSize)
		header[name] = tensorHeader{
			DType:       dtype,
			Shape:       t.Shape,
			DataOffsets: []int64{offset, offset + size},
		}
		offset += size
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	// Pad the header with spaces so the payload starts 8-byte aligned.
	for (8+len(headerBytes))%8 != 0 {
		headerBytes = append(headerBytes, ' ')
	}

	bw := bufio.NewWriter(w)
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(headerBytes)))
	if _, err := bw.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := bw.Write(headerBytes); err != nil {
		return err
	}

	var buf [4]byte
	for _, name := range names {
		for _, v := range tensors[name].Data {
			switch dtype {
			case DTypeF32:
				binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			case DTypeF16:
				binary.LittleEndian.PutUint16(buf[:], float16.Fromfloat32(v).Bits())
			}
			if _, err := bw.Write(buf[:elemSize]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
