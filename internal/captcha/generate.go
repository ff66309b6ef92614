package captcha

import (
	"fmt"
	"strconv"
	"strings"
)

// alphabet excludes characters that render ambiguously (0/O, 1/I/l).
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// RandomSource supplies uniform integers. Satisfied by the engine's injected
// source.
type RandomSource interface {
	Intn(n int) (int, error)
}

// Generator produces challenge prompt/answer pairs.
type Generator struct {
	rand    RandomSource
	textLen int
}

// New creates a [Generator] drawing from the given source. textLen is the
// length of text/image challenge strings.
func New(rand RandomSource, textLen int) *Generator {
	if textLen <= 0 {
		textLen = 6
	}
	return &Generator{rand: rand, textLen: textLen}
}

// Math returns an arithmetic prompt and its answer. Operands are chosen so
// the result is always non-negative: addition draws both from [1,50],
// subtraction draws the minuend from [10,100] and the subtrahend from
// [1,minuend], multiplication draws both from [1,12].
func (g *Generator) Math() (prompt, answer string, err error) {
	op, err := g.rand.Intn(3)
	if err != nil {
		return "", "", err
	}

	switch op {
	case 0:
		a, err := g.intIn(1, 50)
		if err != nil {
			return "", "", err
		}
		b, err := g.intIn(1, 50)
		if err != nil {
			return "", "", err
		}
		return mathPrompt(a, "+", b), strconv.Itoa(a + b), nil
	case 1:
		a, err := g.intIn(10, 100)
		if err != nil {
			return "", "", err
		}
		b, err := g.intIn(1, a)
		if err != nil {
			return "", "", err
		}
		return mathPrompt(a, "-", b), strconv.Itoa(a - b), nil
	default:
		a, err := g.intIn(1, 12)
		if err != nil {
			return "", "", err
		}
		b, err := g.intIn(1, 12)
		if err != nil {
			return "", "", err
		}
		return mathPrompt(a, "x", b), strconv.Itoa(a * b), nil
	}
}

// Text returns a random challenge string of the configured length.
func (g *Generator) Text() (string, error) {
	var b strings.Builder
	b.Grow(g.textLen)

	for i := 0; i < g.textLen; i++ {
		idx, err := g.rand.Intn(len(alphabet))
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx])
	}

	return b.String(), nil
}

// intIn returns a uniform integer in [lo, hi].
func (g *Generator) intIn(lo, hi int) (int, error) {
	n, err := g.rand.Intn(hi - lo + 1)
	if err != nil {
		return 0, err
	}
	return lo + n, nil
}

func mathPrompt(a int, op string, b int) string {
	return fmt.Sprintf("What is %d %s %d?", a, op, b)
}
