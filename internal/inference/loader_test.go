package inference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/seqchat/internal/seq2seq"
	"github.com/samcharles93/seqchat/internal/tokenizer"
)

func scaffold(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := seq2seq.Config{NumLayers: 1, DModel: 8, NumHeads: 2, DFF: 16}
	must.M1(seq2seq.Scaffold(dir, cfg, []string{"hello_", "how_", "are_", "you_", "fine_"}, 1))
	return dir
}

func TestLoaderEndToEnd(t *testing.T) {
	dir := scaffold(t)
	e, err := Loader{ModelDir: dir}.Load()
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, tokenizer.KindSubword, e.TokenizerKind())
	assert.Equal(t, filepath.Join(dir, seq2seq.SubwordsFile), e.Paths().Tokenizer)
	assert.Positive(t, e.WeightsSize())
	assert.Equal(t, e.Tokenizer().VocabSize()+2, e.Model().VocabSize())

	d := e.NewDecoder(DecoderOptions{})
	a, err := d.Reply("Hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", a.Prompt)
	assert.LessOrEqual(t, len(a.Output), MaxLength+1)
	assert.True(t, a.State.Terminal())
	for _, id := range a.Filtered {
		assert.Less(t, id, e.Tokenizer().VocabSize())
	}

	b, err := d.Reply("Hello")
	require.NoError(t, err)
	assert.Equal(t, a.Text, b.Text)

	empty, err := d.Reply("")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, empty.Text)
}

func TestLoaderVocabMismatch(t *testing.T) {
	dir := scaffold(t)
	other := t.TempDir()
	vocab := filepath.Join(other, seq2seq.SubwordsFile)
	f := must.M1(os.Create(vocab))
	require.NoError(t, tokenizer.WriteSubwords(f, []string{"only_"}))
	require.NoError(t, f.Close())

	_, err := Loader{ModelDir: dir, TokenizerPath: vocab}.Load()
	assert.ErrorIs(t, err, ErrVocabMismatch)
}

func TestLoaderMissingFiles(t *testing.T) {
	_, err := Loader{}.Load()
	assert.Error(t, err)

	_, err = Loader{ModelDir: t.TempDir()}.Load()
	assert.ErrorContains(t, err, "no tokenizer found")
}

func TestResolveFindsPrefixedVocabulary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chatbot.subwords"), []byte("'a_'\n"), 0o644))

	p, err := Loader{ModelDir: dir}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chatbot.subwords"), p.Tokenizer)
	assert.Equal(t, filepath.Join(dir, seq2seq.ConfigFile), p.Config)
	assert.Equal(t, filepath.Join(dir, seq2seq.WeightsFile), p.Weights)
}

func TestResolveExplicitPathsWithoutDir(t *testing.T) {
	p, err := Loader{ConfigPath: "c.json", WeightsPath: "w.safetensors", TokenizerPath: "t.subwords"}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, Paths{Config: "c.json", Weights: "w.safetensors", Tokenizer: "t.subwords"}, p)
}
