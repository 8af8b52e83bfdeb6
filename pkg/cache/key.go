package cache

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/molsim-ai/molsim/pkg/models"
)

// Precision is the number of decimal places coordinates are rounded to
// before keying.
const Precision = 4

// Key derives the canonical cache key of a request. Atom order does not
// matter and coordinate noise below Precision decimals is ignored.
func Key(req models.MoleculeRequest) string {
	tokens := make([]string, len(req.Atoms))
	for i, a := range req.Atoms {
		tokens[i] = atomToken(a)
	}
	sort.Strings(tokens)

	var b strings.Builder
	b.WriteString(strings.Join(tokens, ";"))
	fmt.Fprintf(&b, "|%d|%d|%s|%t", req.Charge, req.Spin, req.BasisSet, req.UseQuantumHardware)
	return b.String()
}

// atomToken writes plain alphabetic symbols raw and quotes anything else, so
// separators inside an element can never forge another request's key.
func atomToken(a models.Atom) string {
	return element(a.Element) + " " + coord(a.X) + " " + coord(a.Y) + " " + coord(a.Z)
}

func element(sym string) string {
	if sym == "" {
		return strconv.Quote(sym)
	}
	for _, r := range sym {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return strconv.Quote(sym)
		}
	}
	return sym
}

func coord(v float64) string {
	scale := math.Pow10(Precision)
	r := math.Round(v*scale) / scale
	if r == 0 {
		// collapse -0
		r = 0
	}
	return strconv.FormatFloat(r, 'f', Precision, 64)
}
