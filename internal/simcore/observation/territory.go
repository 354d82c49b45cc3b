package observation

import (
	"math"

	"mettagrid/internal/simcore/ids"
)

// TerritorySource is one non-mutating territory-AOE source contributing
// positive influence to its collective over a circular region, per spec
// §4.11's "Territory / AOE mask layer".
type TerritorySource struct {
	CollectiveID ids.CollectiveID
	Row, Col     int
	Radius       int
}

// covered implements the inside-coverage test: Euclidean distance <= radius,
// except a point sitting exactly on a cardinal axis at exactly radius is
// excluded ("cardinal-radius boundary" per spec §4.11).
func covered(dr, dc, radius int) bool {
	distSq := dr*dr + dc*dc
	radiusSq := radius * radius
	if distSq > radiusSq {
		return false
	}
	if distSq == radiusSq && (dr == 0 || dc == 0) {
		return false
	}
	return true
}

// TerritoryGrid is the precomputed, read-only per-cell ownership map shared
// by every agent's observation encode this tick — safe to read concurrently
// since it is built once before the parallel fan-out begins.
//
// Both layers are derived from the same per-cell weighted influence totals
// (every covering source contributes radius-minus-distance to its
// collective's running total, so multiple same-collective sources stack
// instead of only the closest one counting). They differ only in how an
// exact tie between the two leading collectives resolves: `territory`
// breaks a tie against the canonical "clips" collective, while `aoe_mask`
// leaves any exact tie neutral even when one side is clips. This split
// mirrors the pack's own test split (`tests/test_territory_mode.py` for
// `territory`, `tests/test_weighted_territory.py` for `aoe_mask`).
type TerritoryGrid struct {
	width, height int
	territory     []ids.CollectiveID
	aoeMask       []ids.CollectiveID
}

// ComputeTerritory resolves ownership for every cell from sources, applying
// the tie-break rules of spec §4.11. clipsID is the canonical "clips"
// collective id (ids.NoCollective if the config defines none).
func ComputeTerritory(width, height int, sources []TerritorySource, clipsID ids.CollectiveID) *TerritoryGrid {
	g := &TerritoryGrid{
		width:     width,
		height:    height,
		territory: make([]ids.CollectiveID, width*height),
		aoeMask:   make([]ids.CollectiveID, width*height),
	}

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			leaders := influenceLeaders(row, col, sources)
			idx := row*width + col
			g.territory[idx] = resolveTerritoryTie(leaders, clipsID)
			g.aoeMask[idx] = resolveAOEMaskTie(leaders)
		}
	}
	return g
}

// influenceLeaders sums, per collective, radius-minus-distance across every
// source of that collective covering (row, col) — same-collective sources
// stack rather than only the nearest one counting — then returns every
// collective tied for the highest total (length 1 when there is a single
// winner, 0 when no source covers the cell).
func influenceLeaders(row, col int, sources []TerritorySource) []ids.CollectiveID {
	totals := make(map[ids.CollectiveID]float64)
	for _, s := range sources {
		dr, dc := row-s.Row, col-s.Col
		if !covered(dr, dc, s.Radius) {
			continue
		}
		dist := math.Sqrt(float64(dr*dr + dc*dc))
		totals[s.CollectiveID] += float64(s.Radius) - dist
	}
	if len(totals) == 0 {
		return nil
	}

	var best float64
	var leaders []ids.CollectiveID
	first := true
	for cid, w := range totals {
		switch {
		case first || w > best:
			best = w
			leaders = []ids.CollectiveID{cid}
			first = false
		case w == best:
			leaders = append(leaders, cid)
		}
	}
	return leaders
}

// resolveTerritoryTie implements the `territory` feature's asymmetric
// tie-break: a two-way tie against the canonical "clips" collective goes to
// the other collective; any other tie (three-plus way, or neither side is
// clips) stays neutral.
func resolveTerritoryTie(leaders []ids.CollectiveID, clipsID ids.CollectiveID) ids.CollectiveID {
	switch len(leaders) {
	case 0:
		return ids.NoCollective
	case 1:
		return leaders[0]
	case 2:
		if leaders[0] == clipsID {
			return leaders[1]
		}
		if leaders[1] == clipsID {
			return leaders[0]
		}
		return ids.NoCollective
	default:
		return ids.NoCollective
	}
}

// resolveAOEMaskTie implements the `aoe_mask` feature's symmetric tie-break:
// any exact tie stays neutral, clips included — unlike `territory`, clips
// never wins a tie by losing it.
func resolveAOEMaskTie(leaders []ids.CollectiveID) ids.CollectiveID {
	if len(leaders) == 1 {
		return leaders[0]
	}
	return ids.NoCollective
}

func (g *TerritoryGrid) indexOf(row, col int) (int, bool) {
	if row < 0 || row >= g.height || col < 0 || col >= g.width {
		return 0, false
	}
	return row*g.width + col, true
}

// TerritoryOwner returns the `territory` feature's owning collective at
// (row, col), or ids.NoCollective.
func (g *TerritoryGrid) TerritoryOwner(row, col int) ids.CollectiveID {
	idx, ok := g.indexOf(row, col)
	if !ok {
		return ids.NoCollective
	}
	return g.territory[idx]
}

// AOEMaskOwner returns the `aoe_mask` feature's owning collective at
// (row, col), or ids.NoCollective.
func (g *TerritoryGrid) AOEMaskOwner(row, col int) ids.CollectiveID {
	idx, ok := g.indexOf(row, col)
	if !ok {
		return ids.NoCollective
	}
	return g.aoeMask[idx]
}
