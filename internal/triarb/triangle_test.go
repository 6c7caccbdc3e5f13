package triarb

import (
	"testing"

	"github.com/crypto-trading/trading/internal/domain"
)

func lot(base, quote string) domain.SymbolRequirements {
	return domain.SymbolRequirements{
		Symbol: base + "/" + quote,
		Base:   base,
		Quote:  quote,
	}
}

func TestBuildIndexFindsSingleTriangle(t *testing.T) {
	symbols := map[string]domain.SymbolRequirements{
		"BTC/USDT": lot("BTC", "USDT"),
		"ETH/USDT": lot("ETH", "USDT"),
		"ETH/BTC":  lot("ETH", "BTC"),
	}

	idx := BuildIndex(symbols, nil)
	if len(idx.Triangles) != 1 {
		t.Fatalf("expected exactly 1 triangle, got %d: %+v", len(idx.Triangles), idx.Triangles)
	}

	tri := idx.Triangles[0]
	if !closureHolds(tri) {
		t.Errorf("expected closure identity to hold for %+v", tri)
	}
}

func TestBuildIndexRejectsIncompleteUniverse(t *testing.T) {
	symbols := map[string]domain.SymbolRequirements{
		"BTC/USDT": lot("BTC", "USDT"),
		"ETH/USDT": lot("ETH", "USDT"),
	}

	idx := BuildIndex(symbols, nil)
	if len(idx.Triangles) != 0 {
		t.Errorf("expected no triangles without the cross pair, got %d", len(idx.Triangles))
	}
}

func TestBuildIndexDeduplicatesBySymbol(t *testing.T) {
	symbols := map[string]domain.SymbolRequirements{
		"BTC/USDT": lot("BTC", "USDT"),
		"ETH/USDT": lot("ETH", "USDT"),
		"ETH/BTC":  lot("ETH", "BTC"),
	}

	idx := BuildIndex(symbols, nil)
	for _, sym := range []string{"BTC/USDT", "ETH/USDT", "ETH/BTC"} {
		found := idx.TrianglesFor(sym)
		if len(found) != 1 {
			t.Errorf("expected symbol %s to index to exactly 1 triangle, got %d", sym, len(found))
		}
	}
}

func TestTrianglesForUnknownSymbolIsEmpty(t *testing.T) {
	idx := BuildIndex(map[string]domain.SymbolRequirements{}, nil)
	if got := idx.TrianglesFor("NOPE/NOPE"); len(got) != 0 {
		t.Errorf("expected empty slice for unknown symbol, got %v", got)
	}
}
