package safetensors

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
)

// writeRaw creates a safetensors file from a hand-built header.
func writeRaw(t *testing.T, path string, header map[string]tensorHeader, payload []byte) {
	t.Helper()
	headerBytes, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	var buf bytes.Buffer
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(headerBytes)))
	buf.Write(lenBuf[:])
	buf.Write(headerBytes)
	buf.Write(payload)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func TestOpenValidFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "test.safetensors")

	writeRaw(t, path, map[string]tensorHeader{
		"weight": {DType: "F32", Shape: []int{2, 3}, DataOffsets: []int64{0, 24}},
	}, make([]byte, 24))

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(f.Tensors) != 1 {
		t.Fatalf("expected 1 tensor, got %d", len(f.Tensors))
	}
	info, ok := f.Tensor("weight")
	if !ok {
		t.Fatal("tensor 'weight' not found")
	}
	if info.DType != "F32" || len(info.Shape) != 2 || info.Shape[0] != 2 || info.Shape[1] != 3 {
		t.Fatalf("unexpected tensor info: %+v", info)
	}
}

func TestOpenNonexistentFile(t *testing.T) {
	t.Parallel()
	if _, err := Open(filepath.Join(t.TempDir(), "missing.safetensors")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestOpenRejectsOutOfBoundsOffsets(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.safetensors")
	writeRaw(t, path, map[string]tensorHeader{
		"weight": {DType: "F32", Shape: []int{4}, DataOffsets: []int64{0, 16}},
	}, make([]byte, 8))

	if _, err := Open(path); err == nil {
		t.Fatal("expected out of bounds error")
	}
}

func TestOpenRejectsHugeHeaderLength(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "huge.safetensors")
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], math.MaxUint32)
	if err := os.WriteFile(path, lenBuf[:], 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected invalid header length error")
	}
}

func TestReadTensorF32RejectsHugeShape(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "huge-shape.safetensors")
	writeRaw(t, path, map[string]tensorHeader{
		"w": {DType: "F32", Shape: []int{1 << 40}, DataOffsets: []int64{0, 4}},
	}, make([]byte, 4))

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, _, err := f.ReadTensorF32("w"); err == nil {
		t.Fatal("expected payload size error")
	}
}

func TestReadTensorF32RejectsPayloadMismatch(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		dtype string
		shape []int
		size  int64
	}{
		{"f32 short", DTypeF32, []int{3}, 8},
		{"f32 long", DTypeF32, []int{1}, 8},
		{"f16 short", DTypeF16, []int{4}, 6},
		{"bf16 huge", DTypeBF16, []int{1 << 20, 1 << 20}, 2},
		{"unknown dtype", "I8", []int{2}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.safetensors")
			writeRaw(t, path, map[string]tensorHeader{
				"w": {DType: tc.dtype, Shape: tc.shape, DataOffsets: []int64{0, tc.size}},
			}, make([]byte, tc.size))
			f, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if _, _, err := f.ReadTensorF32("w"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestElementSize(t *testing.T) {
	for dtype, want := range map[string]int{DTypeF32: 4, DTypeF16: 2, DTypeBF16: 2} {
		got, err := ElementSize(dtype)
		if err != nil || got != want {
			t.Fatalf("ElementSize(%s) = %d, %v; want %d", dtype, got, err, want)
		}
	}
	if _, err := ElementSize("F64"); err == nil {
		t.Fatal("expected unsupported dtype error")
	}
}

func TestWriteReadRoundTripF32(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rt.safetensors")
	tensors := map[string]Tensor{
		"b.bias":   {Shape: []int{3}, Data: []float32{0.5, -1, 2}},
		"a.kernel": {Shape: []int{2, 2}, Data: []float32{1, 2, 3, 4}},
	}
	if err := WriteFile(path, tensors, WriteOptions{Metadata: map[string]string{"format": "keras"}}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.DataStart%8 != 0 {
		t.Fatalf("payload not aligned: data start %d", f.DataStart)
	}
	if f.Metadata["format"] != "keras" {
		t.Fatalf("metadata lost: %v", f.Metadata)
	}
	names := f.Names()
	if len(names) != 2 || names[0] != "a.kernel" || names[1] != "b.bias" {
		t.Fatalf("unexpected names: %v", names)
	}
	for name, want := range tensors {
		got, info, err := f.ReadTensorF32(name)
		if err != nil {
			t.Fatalf("ReadTensorF32(%s): %v", name, err)
		}
		if len(info.Shape) != len(want.Shape) {
			t.Fatalf("%s: shape %v, want %v", name, info.Shape, want.Shape)
		}
		for i := range want.Data {
			if got[i] != want.Data[i] {
				t.Fatalf("%s[%d] = %f, want %f", name, i, got[i], want.Data[i])
			}
		}
	}
}

func TestWriteReadRoundTripF16(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "half.safetensors")
	want := []float32{0.25, -1.5, 3, 0}
	if err := WriteFile(path, map[string]Tensor{"w": {Shape: []int{4}, Data: want}}, WriteOptions{DType: DTypeF16}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, info, err := f.ReadTensorF32("w")
	if err != nil {
		t.Fatalf("ReadTensorF32: %v", err)
	}
	if info.DType != DTypeF16 {
		t.Fatalf("dtype = %s, want F16", info.DType)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("w[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestWriteRejectsShapeMismatch(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := Write(&buf, map[string]Tensor{"w": {Shape: []int{3}, Data: []float32{1, 2}}}, WriteOptions{})
	if err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestReadTensorBF16(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bf16.safetensors")
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:], uint16(math.Float32bits(1.0)>>16))
	binary.LittleEndian.PutUint16(payload[2:], uint16(math.Float32bits(-2.0)>>16))
	writeRaw(t, path, map[string]tensorHeader{
		"w": {DType: "BF16", Shape: []int{2}, DataOffsets: []int64{0, 4}},
	}, payload)

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _, err := f.ReadTensorF32("w")
	if err != nil {
		t.Fatalf("ReadTensorF32: %v", err)
	}
	if got[0] != 1 || got[1] != -2 {
		t.Fatalf("unexpected bf16 decode: %v", got)
	}
}

func TestNumElements(t *testing.T) {
	t.Parallel()
	cases := []struct {
		shape   []int
		want    int
		wantErr bool
	}{
		{shape: []int{2, 3}, want: 6},
		{shape: []int{7}, want: 7},
		{shape: nil, wantErr: true},
		{shape: []int{2, 0}, wantErr: true},
	}
	for _, tc := range cases {
		got, err := NumElements(tc.shape)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("NumElements(%v): expected error", tc.shape)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("NumElements(%v) = %d, %v; want %d", tc.shape, got, err, tc.want)
		}
	}
}
