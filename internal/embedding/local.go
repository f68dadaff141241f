package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const defaultLocalDims = 256

// Local is a feature-hashing embedder. Each lowercase word adds one to its
// hash bucket and the result is L2-normalized. Counts are unsigned so that
// colliding words never cancel into a zero vector.
type Local struct {
	dims int
}

// NewLocal returns a Local provider producing vectors of length dims.
func NewLocal(dims int) *Local {
	if dims <= 0 {
		dims = defaultLocalDims
	}
	return &Local{dims: dims}
}

func (p *Local) Name() string    { return "local" }
func (p *Local) Dimensions() int { return p.dims }

func (p *Local) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(p.Name(), err)
	}
	vec := p.vector(text)
	if err := validateVector(vec, p.dims); err != nil {
		return nil, unavailable(p.Name(), fmt.Errorf("text %q: %w", truncate(text, 40), err))
	}
	return vec, nil
}

func (p *Local) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := p.EmbedOne(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (p *Local) vector(text string) []float32 {
	vec := make([]float32, p.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		// Punctuation-only text still gets a stable, non-zero vector.
		for _, r := range strings.TrimSpace(text) {
			tokens = append(tokens, string(r))
		}
	}
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[int(h.Sum32()%uint32(p.dims))]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
