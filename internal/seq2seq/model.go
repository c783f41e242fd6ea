// Package seq2seq runs inference for a post-norm encoder-decoder transformer
// exported from the Keras chatbot training code. Only the forward pass is
// implemented; weights come from a safetensors file.
package seq2seq

import (
	"fmt"
	"math"

	"github.com/samcharles93/seqchat/internal/tensor"
)

// maskBias is added to attention logits of masked positions, matching the
// exported model.
const maskBias = -1e9

type dense struct {
	Kernel tensor.Mat // [in, out]
	Bias   []float32  // [out]
}

func newDense(in, out int) dense {
	return dense{Kernel: tensor.NewMat(in, out), Bias: make([]float32, out)}
}

func (d *dense) apply(dst, x []float32) {
	tensor.Linear(dst, x, &d.Kernel, d.Bias)
}

type layerNorm struct {
	Gamma []float32
	Beta  []float32
}

func newLayerNorm(n int) layerNorm {
	ln := layerNorm{Gamma: make([]float32, n), Beta: make([]float32, n)}
	for i := range ln.Gamma {
		ln.Gamma[i] = 1
	}
	return ln
}

type attention struct {
	Query, Key, Value, Output dense
}

type feedForward struct {
	Hidden dense // relu
	Output dense
}

type encoderLayer struct {
	SelfAttn     attention
	Norm1, Norm2 layerNorm
	FFN          feedForward
}

type decoderLayer struct {
	SelfAttn, CrossAttn attention
	Norm1, Norm2, Norm3 layerNorm
	FFN                 feedForward
}

// Model is an immutable encoder-decoder transformer. Logits allocates its
// own activations, so one Model can serve concurrent callers.
type Model struct {
	cfg Config

	encEmbed tensor.Mat // [vocab, d_model]
	decEmbed tensor.Mat // [vocab, d_model]
	posEnc   tensor.Mat // [max_position, d_model]
	encoder  []encoderLayer
	decoder  []decoderLayer
	output   dense // [d_model, vocab]
}

// newModel allocates a zero-weight model shaped by cfg.
func newModel(cfg Config) *Model {
	d := cfg.DModel
	att := func() attention {
		return attention{Query: newDense(d, d), Key: newDense(d, d), Value: newDense(d, d), Output: newDense(d, d)}
	}
	ffn := func() feedForward {
		return feedForward{Hidden: newDense(d, cfg.DFF), Output: newDense(cfg.DFF, d)}
	}
	m := &Model{
		cfg:      cfg,
		encEmbed: tensor.NewMat(cfg.VocabSize, d),
		decEmbed: tensor.NewMat(cfg.VocabSize, d),
		posEnc:   positionalEncoding(cfg.MaxPosition, d, cfg.PositionalEncoding),
		encoder:  make([]encoderLayer, cfg.NumLayers),
		decoder:  make([]decoderLayer, cfg.NumLayers),
		output:   newDense(d, cfg.VocabSize),
	}
	for i := range m.encoder {
		m.encoder[i] = encoderLayer{SelfAttn: att(), Norm1: newLayerNorm(d), Norm2: newLayerNorm(d), FFN: ffn()}
	}
	for i := range m.decoder {
		m.decoder[i] = decoderLayer{
			SelfAttn: att(), CrossAttn: att(),
			Norm1: newLayerNorm(d), Norm2: newLayerNorm(d), Norm3: newLayerNorm(d),
			FFN: ffn(),
		}
	}
	return m
}

func (m *Model) Config() Config { return m.cfg }

// VocabSize returns the number of output classes.
func (m *Model) VocabSize() int { return m.cfg.VocabSize }

// ParamCount returns the number of trainable parameters.
func (m *Model) ParamCount() int {
	n := 0
	for _, p := range m.params() {
		n += len(*p.data)
	}
	return n
}

// Logits runs the full model and returns next-token logits for the last
// decoder position.
func (m *Model) Logits(encoderIDs, decoderIDs []int) ([]float32, error) {
	if err := m.checkIDs("encoder", encoderIDs); err != nil {
		return nil, err
	}
	if err := m.checkIDs("decoder", decoderIDs); err != nil {
		return nil, err
	}

	encOut := m.encode(encoderIDs)
	h := m.decode(decoderIDs, encoderIDs, encOut)

	logits := make([]float32, m.cfg.VocabSize)
	m.output.apply(logits, h.Row(h.R-1))
	return logits, nil
}

func (m *Model) checkIDs(which string, ids []int) error {
	if len(ids) == 0 {
		return fmt.Errorf("%s input is empty", which)
	}
	if len(ids) > m.cfg.MaxPosition {
		return fmt.Errorf("%s input has %d tokens, model supports %d", which, len(ids), m.cfg.MaxPosition)
	}
	for i, id := range ids {
		if id < 0 || id >= m.cfg.VocabSize {
			return fmt.Errorf("%s token %d at position %d out of range [0,%d)", which, id, i, m.cfg.VocabSize)
		}
	}
	return nil
}

// embed looks up token embeddings, scales them by sqrt(d_model) and adds the
// positional encoding.
func (m *Model) embed(table *tensor.Mat, ids []int) tensor.Mat {
	d := m.cfg.DModel
	scale := float32(math.Sqrt(float64(d)))
	x := tensor.NewMat(len(ids), d)
	for t, id := range ids {
		row := x.Row(t)
		copy(row, table.Row(id))
		tensor.Scale(row, scale)
		tensor.Add(row, m.posEnc.Row(t))
	}
	return x
}

func (m *Model) encode(ids []int) tensor.Mat {
	x := m.embed(&m.encEmbed, ids)
	pad := paddingMask(ids)
	for i := range m.encoder {
		l := &m.encoder[i]
		attn := l.SelfAttn.forward(&x, &x, m.cfg.NumHeads, pad)
		addNorm(&attn, &x, l.Norm1, m.cfg.LayerNormEps)
		out := l.FFN.forward(&attn)
		addNorm(&out, &attn, l.Norm2, m.cfg.LayerNormEps)
		x = out
	}
	return x
}

func (m *Model) decode(ids, encIDs []int, enc tensor.Mat) tensor.Mat {
	x := m.embed(&m.decEmbed, ids)
	lookAhead := lookAheadMask(ids)
	encPad := paddingMask(encIDs)
	for i := range m.decoder {
		l := &m.decoder[i]
		a1 := l.SelfAttn.forward(&x, &x, m.cfg.NumHeads, lookAhead)
		addNorm(&a1, &x, l.Norm1, m.cfg.LayerNormEps)
		a2 := l.CrossAttn.forward(&a1, &enc, m.cfg.NumHeads, encPad)
		addNorm(&a2, &a1, l.Norm2, m.cfg.LayerNormEps)
		out := l.FFN.forward(&a2)
		addNorm(&out, &a2, l.Norm3, m.cfg.LayerNormEps)
		x = out
	}
	return x
}

// addNorm computes x = LayerNorm(x + residual) row by row.
func addNorm(x, residual *tensor.Mat, ln layerNorm, eps float32) {
	for t := 0; t < x.R; t++ {
		row := x.Row(t)
		tensor.Add(row, residual.Row(t))
		tensor.LayerNorm(row, row, ln.Gamma, ln.Beta, eps)
	}
}

func (f *feedForward) forward(x *tensor.Mat) tensor.Mat {
	hidden := project(&f.Hidden, x)
	tensor.ReLU(hidden.Data)
	return project(&f.Output, &hidden)
}

// maskFunc reports whether query position i may not attend to key j.
type maskFunc func(i, j int) bool

func paddingMask(ids []int) maskFunc {
	return func(_, j int) bool { return ids[j] == 0 }
}

func lookAheadMask(ids []int) maskFunc {
	return func(i, j int) bool { return j > i || ids[j] == 0 }
}

// project applies d to every row of x.
func project(d *dense, x *tensor.Mat) tensor.Mat {
	out := tensor.NewMat(x.R, d.Kernel.C)
	tensor.MatMul(&out, x, &d.Kernel)
	for t := 0; t < x.R; t++ {
		tensor.Add(out.Row(t), d.Bias)
	}
	return out
}

// forward runs scaled dot-product attention of q over kv and applies the
// output projection.
func (a *attention) forward(q, kv *tensor.Mat, heads int, masked maskFunc) tensor.Mat {
	Q := project(&a.Query, q)
	K := project(&a.Key, kv)
	V := project(&a.Value, kv)

	depth := Q.C / heads
	invSqrt := float32(1 / math.Sqrt(float64(depth)))
	concat := tensor.NewMat(q.R, Q.C)
	scores := make([]float32, kv.R)

	for i := 0; i < q.R; i++ {
		qRow := Q.Row(i)
		ctx := concat.Row(i)
		for h := 0; h < heads; h++ {
			lo, hi := h*depth, (h+1)*depth
			for j := 0; j < kv.R; j++ {
				s := tensor.Dot(qRow[lo:hi], K.Row(j)[lo:hi]) * invSqrt
				if masked != nil && masked(i, j) {
					s += maskBias
				}
				scores[j] = s
			}
			tensor.Softmax(scores)
			head := ctx[lo:hi]
			for j, p := range scores {
				v := V.Row(j)[lo:hi]
				for k := range head {
					head[k] += p * v[k]
				}
			}
		}
	}
	return project(&a.Output, &concat)
}

// positionalEncoding builds the sinusoidal table used by the exported model.
func positionalEncoding(positions, d int, layout string) tensor.Mat {
	pe := tensor.NewMat(positions, d)
	angle := func(pos, i int) float64 {
		return float64(pos) / math.Pow(10000, float64(2*(i/2))/float64(d))
	}
	for pos := 0; pos < positions; pos++ {
		row := pe.Row(pos)
		switch layout {
		case PosConcat:
			sines := (d + 1) / 2
			for k := 0; k < sines; k++ {
				row[k] = float32(math.Sin(angle(pos, 2*k)))
			}
			for k := 0; sines+k < d; k++ {
				row[sines+k] = float32(math.Cos(angle(pos, 2*k+1)))
			}
		default:
			for i := 0; i < d; i++ {
				if i%2 == 0 {
					row[i] = float32(math.Sin(angle(pos, i)))
				} else {
					row[i] = float32(math.Cos(angle(pos, i)))
				}
			}
		}
	}
	return pe
}
