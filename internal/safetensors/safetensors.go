package safetensors

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/x448/float16"
)

// Supported element types.
const (
	DTypeF32  = "F32"
	DTypeF16  = "F16"
	DTypeBF16 = "BF16"
)

// maxHeaderLen bounds the JSON header so a corrupt length prefix cannot
// trigger a huge allocation.
const maxHeaderLen = 100 << 20

type TensorInfo struct {
	DType string
	Shape []int
	Start int64
	End   int64
}

// File is an opened safetensors file. Only the header is held in memory;
// tensor payloads are read on demand.
type File struct {
	Path      string
	Size      int64
	DataStart int64
	Tensors   map[string]TensorInfo
	Metadata  map[string]string
}

type tensorHeader struct {
	DType       string  `json:"dtype"`
	Shape       []int   `json:"shape"`
	DataOffsets []int64 `json:"data_offsets"`
}

func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	headerLen, err := readU64(f)
	if err != nil {
		return nil, fmt.Errorf("read header length: %w", err)
	}
	if headerLen > maxHeaderLen || int64(headerLen) > st.Size()-8 {
		return nil, fmt.Errorf("invalid header length %d", headerLen)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerBytes); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	var meta map[string]string
	if m, ok := raw["__metadata__"]; ok {
		if err := json.Unmarshal(m, &meta); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
		delete(raw, "__metadata__")
	}

	dataStart := int64(8 + headerLen)
	dataLen := st.Size() - dataStart
	tensors := make(map[string]TensorInfo, len(raw))
	for name, msg := range raw {
		var th tensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, fmt.Errorf("parse tensor %s: %w", name, err)
		}
		if len(th.DataOffsets) != 2 {
			return nil, fmt.Errorf("tensor %s: invalid data_offsets", name)
		}
		if th.DataOffsets[0] < 0 || th.DataOffsets[1] < th.DataOffsets[0] || th.DataOffsets[1] > dataLen {
			return nil, fmt.Errorf("tensor %s: data_offsets %v out of bounds", name, th.DataOffsets)
		}
		tensors[name] = TensorInfo{
			DType: th.DType,
			Shape: th.Shape,
			Start: th.DataOffsets[0],
			End:   th.DataOffsets[1],
		}
	}
	return &File{
		Path:      path,
		Size:      st.Size(),
		DataStart: dataStart,
		Tensors:   tensors,
		Metadata:  meta,
	}, nil
}

func (f *File) Tensor(name string) (TensorInfo, bool) {
	t, ok := f.Tensors[name]
	return t, ok
}

// Names returns the tensor names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *File) ReadTensor(name string) ([]byte, TensorInfo, error) {
	t, ok := f.Tensors[name]
	if !ok {
		return nil, TensorInfo{}, fmt.Errorf("tensor not found: %s", name)
	}
	if t.End < t.Start {
		return nil, TensorInfo{}, fmt.Errorf("tensor %s: invalid offsets", name)
	}
	n := t.End - t.Start
	buf := make([]byte, n)

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, TensorInfo{}, err
	}
	defer func() { _ = file.Close() }()

	off := f.DataStart + t.Start
	if _, err := file.ReadAt(buf, off); err != nil {
		return nil, TensorInfo{}, fmt.Errorf("read tensor %s: %w", name, err)
	}
	return buf, t, nil
}

// ReadTensorF32 reads a tensor and widens it to float32. The payload size
// implied by the header shape is checked before anything is allocated.
func (f *File) ReadTensorF32(name string) ([]float32, TensorInfo, error) {
	t, ok := f.Tensors[name]
	if !ok {
		return nil, TensorInfo{}, fmt.Errorf("tensor not found: %s", name)
	}
	n, err := NumElements(t.Shape)
	if err != nil {
		return nil, TensorInfo{}, fmt.Errorf("tensor %s: %w", name, err)
	}
	if err := checkPayload(t.DType, n, t.End-t.Start); err != nil {
		return nil, TensorInfo{}, fmt.Errorf("tensor %s: %w", name, err)
	}
	raw, info, err := f.ReadTensor(name)
	if err != nil {
		return nil, TensorInfo{}, err
	}
	out, err := decodeF32(raw, info.DType, n)
	if err != nil {
		return nil, TensorInfo{}, fmt.Errorf("tensor %s: %w", name, err)
	}
	return out, info, nil
}

// ElementSize returns the byte width of a supported dtype.
func ElementSize(dtype string) (int, error) {
	switch dtype {
	case DTypeF32:
		return 4, nil
	case DTypeF16, DTypeBF16:
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %s", dtype)
	}
}

func checkPayload(dtype string, n int, size int64) error {
	width, err := ElementSize(dtype)
	if err != nil {
		return err
	}
	if int64(n) > size/int64(width) || int64(n)*int64(width) != size {
		return fmt.Errorf("%d elements of %s do not fit %d payload bytes", n, dtype, size)
	}
	return nil
}

func decodeF32(raw []byte, dtype string, n int) ([]float32, error) {
	if err := checkPayload(dtype, n, int64(len(raw))); err != nil {
		return nil, err
	}
	out := make([]float32, n)
	switch dtype {
	case DTypeF32:
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	case DTypeBF16:
		for i := 0; i < n; i++ {
			u := binary.LittleEndian.Uint16(raw[i*2:])
			out[i] = math.Float32frombits(uint32(u) << 16)
		}
	case DTypeF16:
		for i := 0; i < n; i++ {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[i*2:])).Float32()
		}
	}
	return out, nil
}

// NumElements returns the product of shape, rejecting empty and non-positive
// dimensions.
func NumElements(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("empty shape")
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("invalid dim %d", d)
		}
		if n > (int(^uint(0)>>1))/d {
			return 0, fmt.Errorf("tensor too large")
		}
		n *= d
	}
	return n, nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
