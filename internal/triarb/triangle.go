// Package triarb implements the triangular-arbitrage core: triangle
// enumeration, opportunity scanning, amount normalisation, persistence
// filtering, action planning and the execution state machine.
package triarb

import (
	"log/slog"

	"github.com/crypto-trading/trading/internal/domain"
)

// Index is the immutable set of canonical triangles derived from a symbol
// universe, plus the reverse index used to find which triangles a book
// change on a given symbol might affect.
type Index struct {
	Triangles []domain.Triangle
	BySymbol  map[string][]domain.Triangle
}

// BuildIndex enumerates every closed triangle over the given symbol universe,
// grounded on the rotate/swap/reject canonicalisation rule: for every asset Z
// appearing as a quote, for every pair of symbols sharing Z with distinct
// bases, probe both cross orientations and emit whichever exists.
func BuildIndex(symbols map[string]domain.SymbolRequirements, logger *slog.Logger) *Index {
	byQuote := make(map[string][]string)
	byPair := make(map[string]domain.SymbolRequirements)

	for sym, req := range symbols {
		byQuote[req.Quote] = append(byQuote[req.Quote], sym)
		byPair[req.Base+"/"+req.Quote] = req
	}

	idx := &Index{BySymbol: make(map[string][]domain.Triangle)}
	seen := make(map[string]bool)

	for z, syms := range byQuote {
		for i := 0; i < len(syms); i++ {
			for j := i + 1; j < len(syms); j++ {
				s1, s2 := byPair[syms[i]], byPair[syms[j]]
				if s1.Base == s2.Base {
					continue
				}

				if cross, ok := byPair[s1.Base+"/"+s2.Base]; ok {
					idx.add(domain.Triangle{
						YZ: domain.Pair{Base: s2.Base, Quote: z},
						XZ: domain.Pair{Base: s1.Base, Quote: z},
						XY: domain.Pair{Base: cross.Base, Quote: cross.Quote},
					}, seen, logger)
				}

				if cross, ok := byPair[s2.Base+"/"+s1.Base]; ok {
					idx.add(domain.Triangle{
						YZ: domain.Pair{Base: s1.Base, Quote: z},
						XZ: domain.Pair{Base: s2.Base, Quote: z},
						XY: domain.Pair{Base: cross.Base, Quote: cross.Quote},
					}, seen, logger)
				}
			}
		}
	}

	return idx
}

func (idx *Index) add(t domain.Triangle, seen map[string]bool, logger *slog.Logger) {
	if !closureHolds(t) {
		if logger != nil {
			logger.Warn("dropping malformed triangle candidate, closure identity failed",
				"yz", t.YZ.Symbol(), "xz", t.XZ.Symbol(), "xy", t.XY.Symbol())
		}
		return
	}

	key := t.Key()
	if seen[key] {
		return
	}
	seen[key] = true

	idx.Triangles = append(idx.Triangles, t)
	for _, sym := range []string{t.YZ.Symbol(), t.XZ.Symbol(), t.XY.Symbol()} {
		idx.BySymbol[sym] = append(idx.BySymbol[sym], t)
	}
}

// closureHolds checks a[0]==c[1] ∧ a[1]==b[1] ∧ b[0]==c[0] in the data
// model's naming: a=YZ, b=XZ, c=XY.
func closureHolds(t domain.Triangle) bool {
	return t.YZ.Base == t.XY.Quote && t.YZ.Quote == t.XZ.Quote && t.XZ.Base == t.XY.Base
}

// TrianglesFor returns the canonical triangles containing the given symbol.
func (idx *Index) TrianglesFor(symbol string) []domain.Triangle {
	return idx.BySymbol[symbol]
}
