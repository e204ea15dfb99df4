package baseparts

import "baseparts.ai/internal/sim/catalogs"

// ScanProducers maps each dropped item to the first ore block and the first
// floor that yields it, in declaration order. Wall ores never count as ore
// producers but may still register as floors.
func ScanProducers(blocks []catalogs.BlockDef) (ores, floors map[string]catalogs.BlockDef) {
	ores = map[string]catalogs.BlockDef{}
	floors = map[string]catalogs.BlockDef{}
	for _, b := range blocks {
		if b.IsOre() && b.ItemDrop != "" && !b.WallOre && !has(ores, b.ItemDrop) {
			ores[b.ItemDrop] = b
		} else if b.IsFloor() && b.ItemDrop != "" && !has(floors, b.ItemDrop) {
			floors[b.ItemDrop] = b
		}
	}
	return ores, floors
}

func has(m map[string]catalogs.BlockDef, k string) bool {
	_, ok := m[k]
	return ok
}
