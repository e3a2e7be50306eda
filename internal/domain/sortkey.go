package domain

// letterRanks fixes the chart order for letter sizing. Ranks are spaced so
// tall variants slot in adjacent to their base size without renumbering.
var letterRanks = map[string]int64{
	"XS":   100,
	"S":    200,
	"M":    300,
	"L":    400,
	"XL":   500,
	"XXL":  600,
	"XXXL": 700,
}

// tallRankOffset places a tall variant immediately after its base size.
const tallRankOffset = 10

// SortKeyFor computes the total-order key for a parsed size within its
// category. Numeric categories sort by their dimensions (major dimension
// first); letter sizes sort by the fixed rank table. A size that is created
// on demand later still lands in the right chart position because the key is
// a pure function of the dimensions.
func SortKeyFor(p ParsedSize) int64 {
	switch p.Category {
	case CategoryPants:
		return int64(p.Dims[DimWaist]*10)*10000 + int64(p.Dims[DimLength]*10)
	case CategoryDressShirts:
		return int64(p.Dims[DimNeck]*10)*10000 + int64(p.Dims[DimSleeve]*10)
	case CategoryShoes:
		return int64(p.Dims[DimSize] * 10)
	default:
		return letterSortKey(p.Label)
	}
}

func letterSortKey(label string) int64 {
	if rank, ok := letterRanks[label]; ok {
		return rank
	}
	// Tall variants carry a T suffix ("LT", "XLT") and sort next to their base.
	if n := len(label); n > 1 && label[n-1] == 'T' {
		if rank, ok := letterRanks[label[:n-1]]; ok {
			return rank + tallRankOffset
		}
	}
	return 0
}
