package tensor

// VecMat computes dst = x · w where w is stored [in, out] (the layout Keras
// uses for Dense kernels). len(x) must equal w.R and len(dst) must equal w.C.
func VecMat(dst, x []float32, w *Mat) {
	if len(x) != w.R {
		panic("VecMat: input length does not match matrix rows")
	}
	if len(dst) < w.C {
		panic("VecMat: dst too small")
	}
	out := dst[:w.C]
	for j := range out {
		out[j] = 0
	}
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		row := w.Data[i*w.Stride : i*w.Stride+w.C]
		for j, v := range row {
			out[j] += xi * v
		}
	}
}

// Linear computes dst = x · w + bias. bias may be nil.
func Linear(dst, x []float32, w *Mat, bias []float32) {
	VecMat(dst, x, w)
	if bias != nil {
		Add(dst[:w.C], bias)
	}
}
