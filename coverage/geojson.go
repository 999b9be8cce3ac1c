package coverage

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// SnapshotGeoJSON converts the cells of s to a feature collection. Each
// non-empty cell becomes a polygon feature carrying its region index,
// center and weight; vanished cells are left out.
func SnapshotGeoJSON(s Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, cell := range s.Covering {
		if len(cell) == 0 {
			continue
		}
		f := geojson.NewFeature(orb.Polygon{closeRing(cell)})
		f.Properties["region"] = i
		if i < len(s.Centers) {
			f.Properties["center"] = []float64{s.Centers[i][0], s.Centers[i][1]}
		}
		if i < len(s.Weights) {
			f.Properties["weight"] = s.Weights[i]
		}
		fc.Append(f)
	}
	return fc
}
