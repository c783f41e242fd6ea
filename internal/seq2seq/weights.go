package seq2seq

import (
	"fmt"
	"io"
	"slices"

	"github.com/schollz/progressbar/v3"

	"github.com/samcharles93/seqchat/internal/safetensors"
	"github.com/samcharles93/seqchat/internal/tensor"
)

// param binds a tensor name in the weights file to model storage.
type param struct {
	name  string
	shape []int
	data  *[]float32
}

func matParam(name string, m *tensor.Mat) param {
	return param{name: name, shape: []int{m.R, m.C}, data: &m.Data}
}

func vecParam(name string, v *[]float32) param {
	return param{name: name, shape: []int{len(*v)}, data: v}
}

func (d *dense) params(prefix string) []param {
	return []param{
		matParam(prefix+".kernel", &d.Kernel),
		vecParam(prefix+".bias", &d.Bias),
	}
}

func (ln *layerNorm) params(prefix string) []param {
	return []param{
		vecParam(prefix+".gamma", &ln.Gamma),
		vecParam(prefix+".beta", &ln.Beta),
	}
}

func (a *attention) params(prefix string) []param {
	var ps []param
	ps = append(ps, a.Query.params(prefix+".query")...)
	ps = append(ps, a.Key.params(prefix+".key")...)
	ps = append(ps, a.Value.params(prefix+".value")...)
	ps = append(ps, a.Output.params(prefix+".output")...)
	return ps
}

func (f *feedForward) params(prefix string) []param {
	return append(f.Hidden.params(prefix+".hidden"), f.Output.params(prefix+".output")...)
}

// params lists every weight in file order. The positional table is
// computed, not stored.
func (m *Model) params() []param {
	ps := []param{
		matParam("encoder.embedding", &m.encEmbed),
		matParam("decoder.embedding", &m.decEmbed),
	}
	for i := range m.encoder {
		l := &m.encoder[i]
		p := fmt.Sprintf("encoder.layers.%d", i)
		ps = append(ps, l.SelfAttn.params(p+".self_attn")...)
		ps = append(ps, l.Norm1.params(p+".norm1")...)
		ps = append(ps, l.FFN.params(p+".ffn")...)
		ps = append(ps, l.Norm2.params(p+".norm2")...)
	}
	for i := range m.decoder {
		l := &m.decoder[i]
		p := fmt.Sprintf("decoder.layers.%d", i)
		ps = append(ps, l.SelfAttn.params(p+".self_attn")...)
		ps = append(ps, l.Norm1.params(p+".norm1")...)
		ps = append(ps, l.CrossAttn.params(p+".cross_attn")...)
		ps = append(ps, l.Norm2.params(p+".norm2")...)
		ps = append(ps, l.FFN.params(p+".ffn")...)
		ps = append(ps, l.Norm3.params(p+".norm3")...)
	}
	return append(ps, m.output.params("output")...)
}

// LoadWeights builds a model from an opened safetensors file.
func LoadWeights(cfg Config, st *safetensors.File, progress io.Writer) (*Model, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := newModel(cfg)
	params := m.params()

	bar := newBar(len(params), progress)
	defer func() { _ = bar.Finish() }()

	for _, p := range params {
		info, ok := st.Tensor(p.name)
		if !ok {
			return nil, fmt.Errorf("tensor not found: %s", p.name)
		}
		if !slices.Equal(info.Shape, p.shape) {
			return nil, fmt.Errorf("tensor %s: shape %v, want %v", p.name, info.Shape, p.shape)
		}
		data, _, err := st.ReadTensorF32(p.name)
		if err != nil {
			return nil, err
		}
		*p.data = data
		_ = bar.Add(1)
	}
	return m, nil
}

func newBar(n int, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetVisibility(w != io.Discard),
		progressbar.OptionSetDescription("loading weights"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
