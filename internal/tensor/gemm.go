package tensor

import (
	"runtime"
)

const (
	tileM = 32
	tileN = 32
	tileK = 16

	// Products smaller than this many multiply-adds run on the caller's
	// goroutine.
	parallelThreshold = 1 << 16
)

type gemmTask struct {
	C, A, B *Mat
	rs, re  int
	done    chan struct{}
}

type gemmPool struct {
	size      int
	tasks     chan gemmTask
	doneSlots chan chan struct{}
}

func newGemmPool() *gemmPool {
	size := max(runtime.GOMAXPROCS(0), 1)
	p := &gemmPool{
		size:      size,
		tasks:     make(chan gemmTask, size*2),
		doneSlots: make(chan chan struct{}, size),
	}
	for i := 0; i < size; i++ {
		p.doneSlots <- make(chan struct{}, size)
	}
	for w := 0; w < size; w++ {
		go func() {
			for task := range p.tasks {
				gemmRows(task.C, task.A, task.B, task.rs, task.re)
				task.done <- struct{}{}
			}
		}()
	}
	return p
}

var gemmWorkPool = newGemmPool()

// MatMul computes C = A·B. Large products are split across a shared worker
// pool by ranges of output rows; C must not alias A or B.
func MatMul(C, A, B *Mat) {
	GemmPar(C, A, B, 0)
}

// GemmPar computes C = A·B with at most workers goroutines (0 means
// GOMAXPROCS).
func GemmPar(C, A, B *Mat, workers int) {
	if A.C != B.R || C.R != A.R || C.C != B.C {
		panic("gemm: dimension mismatch")
	}
	if C.R == 0 || C.C == 0 {
		return
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, C.R, gemmWorkPool.size)
	if workers <= 1 || C.R*A.C*B.C < parallelThreshold {
		gemmRows(C, A, B, 0, C.R)
		return
	}

	chunk := (C.R + workers - 1) / workers
	done := <-gemmWorkPool.doneSlots
	n := 0
	for rs := 0; rs < C.R; rs += chunk {
		gemmWorkPool.tasks <- gemmTask{C: C, A: A, B: B, rs: rs, re: min(rs+chunk, C.R), done: done}
		n++
	}
	for i := 0; i < n; i++ {
		<-done
	}
	gemmWorkPool.doneSlots <- done
}

// gemmRows computes rows [rs, re) of C with a tiled loop.
func gemmRows(C, A, B *Mat, rs, re int) {
	n := C.C
	for i := rs; i < re; i++ {
		base := i * C.Stride
		clear(C.Data[base : base+n])
	}

	k := A.C
	for i0 := rs; i0 < re; i0 += tileM {
		iMax := min(i0+tileM, re)
		for k0 := 0; k0 < k; k0 += tileK {
			kMax := min(k0+tileK, k)
			for j0 := 0; j0 < n; j0 += tileN {
				jMax := min(j0+tileN, n)
				blockUpdate(C, A, B, i0, iMax, j0, jMax, k0, kMax)
			}
		}
	}
}

func blockUpdate(C, A, B *Mat, i0, iMax, j0, jMax, k0, kMax int) {
	width := jMax - j0
	for i := i0; i < iMax; i++ {
		aRow := A.Data[i*A.Stride:]
		cOff := i*C.Stride + j0
		cRow := C.Data[cOff : cOff+width]

		for kk := k0; kk < kMax; kk++ {
			aik := aRow[kk]
			if aik == 0 {
				continue
			}
			bOff := kk*B.Stride + j0
			bRow := B.Data[bOff : bOff+width]

			j := 0
			for ; j+7 < width; j += 8 {
				cRow[j+0] += aik * bRow[j+0]
				cRow[j+1] += aik * bRow[j+1]
				cRow[j+2] += aik * bRow[j+2]
				cRow[j+3] += aik * bRow[j+3]
				cRow[j+4] += aik * bRow[j+4]
				cRow[j+5] += aik * bRow[j+5]
				cRow[j+6] += aik * bRow[j+6]
				cRow[j+7] += aik * bRow[j+7]
			}
			for ; j < width; j++ {
				cRow[j] += aik * bRow[j]
			}
		}
	}
}
