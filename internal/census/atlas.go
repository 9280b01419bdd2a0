package census

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/fetcher"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// Atlas holds all boundaries of one geography level and answers containment
// and adjacency queries against them.
type Atlas struct {
	layer      model.Geography
	boundaries []*Boundary
	byGeoID    map[string]*Boundary

	adjOnce   sync.Once
	adjacency map[string][]string
}

// NewAtlas builds an atlas from parsed boundaries.
func NewAtlas(layer model.Geography, boundaries []*Boundary) *Atlas {
	byGeoID := make(map[string]*Boundary, len(boundaries))
	for _, b := range boundaries {
		byGeoID[b.GeoID] = b
	}
	return &Atlas{
		layer:      layer,
		boundaries: boundaries,
		byGeoID:    byGeoID,
	}
}

// LoadAtlas downloads, extracts, and parses the TIGER layer into an atlas.
func LoadAtlas(ctx context.Context, f fetcher.Fetcher, layer model.Geography, opts DownloadOptions) (*Atlas, error) {
	shpPaths, err := Download(ctx, f, layer, opts)
	if err != nil {
		return nil, err
	}

	var boundaries []*Boundary
	for _, shpPath := range shpPaths {
		bs, err := ParseShapefile(shpPath, layer)
		if err != nil {
			return nil, err
		}
		boundaries = append(boundaries, bs...)
	}

	zap.L().Info("atlas loaded",
		zap.String("layer", string(layer)),
		zap.Int("boundaries", len(boundaries)),
	)
	return NewAtlas(layer, boundaries), nil
}

// Layer returns the geography level this atlas covers.
func (a *Atlas) Layer() model.Geography { return a.layer }

// Len returns the number of boundaries.
func (a *Atlas) Len() int { return len(a.boundaries) }

// Get returns the boundary with the given GEOID.
func (a *Atlas) Get(geoID string) (*Boundary, bool) {
	b, ok := a.byGeoID[geoID]
	return b, ok
}

// Locate returns the boundary containing the point, or nil if the point is
// outside every boundary in the layer.
func (a *Atlas) Locate(lon, lat float64) *Boundary {
	pt := geom.Coord{lon, lat}
	for _, b := range a.boundaries {
		bounds := b.Bounds()
		if lon < bounds.Min(0) || lon > bounds.Max(0) || lat < bounds.Min(1) || lat > bounds.Max(1) {
			continue
		}
		if containsPoint(b.Geometry, pt) {
			return b
		}
	}
	return nil
}

// containsPoint tests multipolygon containment with even-odd ring counting:
// a point inside an odd number of rings is inside the shape. This handles
// holes without caring about shapefile ring orientation.
func containsPoint(mp *geom.MultiPolygon, pt geom.Coord) bool {
	inside := 0
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			if xy.IsPointInRing(poly.Layout(), pt, poly.LinearRing(j).FlatCoords()) {
				inside++
			}
		}
	}
	return inside%2 == 1
}

// Adjacent returns the GEOIDs of boundaries touching the given one, sorted.
// TIGER layers are topologically integrated: neighboring polygons share
// identical boundary vertices, so two boundaries touch exactly when they
// share at least one vertex. Corner-only contact counts, as it does for
// gridded tracts in the western states. The vertex index is built once, on
// first use.
func (a *Atlas) Adjacent(geoID string) []string {
	a.adjOnce.Do(a.buildAdjacency)
	return a.adjacency[geoID]
}

func (a *Atlas) buildAdjacency() {
	// vertex key → GEOIDs owning that vertex
	verts := make(map[string][]string)
	for _, b := range a.boundaries {
		mp := b.Geometry
		for i := 0; i < mp.NumPolygons(); i++ {
			poly := mp.Polygon(i)
			for j := 0; j < poly.NumLinearRings(); j++ {
				flat := poly.LinearRing(j).FlatCoords()
				for k := 0; k+1 < len(flat); k += 2 {
					key := vertexKey(flat[k], flat[k+1])
					owners := verts[key]
					if len(owners) == 0 || owners[len(owners)-1] != b.GeoID {
						verts[key] = append(owners, b.GeoID)
					}
				}
			}
		}
	}

	neighborSets := make(map[string]map[string]bool)
	for _, owners := range verts {
		if len(owners) < 2 {
			continue
		}
		for _, g1 := range owners {
			for _, g2 := range owners {
				if g1 == g2 {
					continue
				}
				if neighborSets[g1] == nil {
					neighborSets[g1] = make(map[string]bool)
				}
				neighborSets[g1][g2] = true
			}
		}
	}

	a.adjacency = make(map[string][]string, len(neighborSets))
	for geoID, set := range neighborSets {
		neighbors := make([]string, 0, len(set))
		for n := range set {
			neighbors = append(neighbors, n)
		}
		sort.Strings(neighbors)
		a.adjacency[geoID] = neighbors
	}
}

// vertexKey quantizes a vertex to 1e-6 degrees (~0.1m) so float noise does
// not split shared vertices.
func vertexKey(x, y float64) string {
	return fmt.Sprintf("%.6f,%.6f", x, y)
}
