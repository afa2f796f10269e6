// Package geometry derives coverage areas from catalog rows.
package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"estatecatalog/server/internal/models"
)

// DefaultPrefixLength is the number of postal code characters that make up a
// district.
const DefaultPrefixLength = 4

// bufferDegrees pads hulls so that districts with points on a line still get
// an area.
const bufferDegrees = 0.001

// District groups the located properties sharing a postal code prefix in one city.
type District struct {
	Code   string
	City   string
	Points []orb.Point
	Hull   orb.Ring
}

type districtKey struct {
	code string
	city string
}

// GroupDistricts buckets rows by postal code prefix and city. Rows without
// coordinates or with a postal code shorter than prefixLen characters are
// skipped.
// Districts are ordered by city and then code.
func GroupDistricts(rows []*models.ListedProperty, prefixLen int) []*District {
	if prefixLen <= 0 {
		prefixLen = DefaultPrefixLength
	}

	byKey := make(map[districtKey]*District)
	for _, r := range rows {
		postal := []rune(r.PostalCode)
		if r.Latitude == nil || r.Longitude == nil || len(postal) < prefixLen {
			continue
		}
		key := districtKey{code: string(postal[:prefixLen]), city: r.City}
		d, ok := byKey[key]
		if !ok {
			d = &District{Code: key.code, City: key.city}
			byKey[key] = d
		}
		d.Points = append(d.Points, orb.Point{*r.Longitude, *r.Latitude})
	}

	districts := make([]*District, 0, len(byKey))
	for _, d := range byKey {
		districts = append(districts, d)
	}
	sort.Slice(districts, func(i, j int) bool {
		if districts[i].City != districts[j].City {
			return districts[i].City < districts[j].City
		}
		return districts[i].Code < districts[j].Code
	})
	return districts
}

// GenerateHulls computes the padded convex hull of every district.
func GenerateHulls(districts []*District) {
	for _, d := range districts {
		d.Hull = bufferHull(convexHull(d.Points), bufferDegrees)
	}
}

// FeatureCollection renders districts with a hull as polygon features.
func FeatureCollection(districts []*District) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, d := range districts {
		if len(d.Hull) < 4 {
			continue
		}
		polygon := orb.Polygon{d.Hull}
		feature := geojson.NewFeature(polygon)
		feature.Properties = geojson.Properties{
			"district":    d.Code,
			"city":        d.City,
			"point_count": len(d.Points),
			"area":        planar.Area(polygon),
		}
		fc.Append(feature)
	}
	return fc
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// convexHull returns the closed counter-clockwise hull of points using the
// monotone chain algorithm. Duplicate points are ignored. Fewer than three
// distinct points still yield a closed ring so a single property gets a
// district too.
func convexHull(points []orb.Point) orb.Ring {
	pts := make([]orb.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	uniq := pts[:0]
	for _, p := range pts {
		if len(uniq) == 0 || !p.Equal(uniq[len(uniq)-1]) {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) == 0 {
		return nil
	}
	if len(uniq) < 3 {
		ring := append(orb.Ring{}, uniq...)
		return append(ring, uniq[0])
	}

	hull := make([]orb.Point, 0, 2*len(uniq))
	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// The last point repeats the first, closing the ring
	return orb.Ring(hull)
}

// bufferHull scales the ring about its centroid so that the farthest vertex
// moves out by d. Rings without area become the padded bounding box.
func bufferHull(hull orb.Ring, d float64) orb.Ring {
	if len(hull) == 0 {
		return nil
	}

	if len(hull) < 4 || planar.Area(hull) == 0 {
		return hull.Bound().Pad(d).ToRing()
	}

	center, _ := planar.CentroidArea(hull)
	var maxDist float64
	for _, p := range hull {
		if dist := planar.Distance(p, center); dist > maxDist {
			maxDist = dist
		}
	}

	scale := 1 + d/maxDist
	out := make(orb.Ring, len(hull))
	for i, p := range hull {
		out[i] = orb.Point{
			center[0] + (p[0]-center[0])*scale,
			center[1] + (p[1]-center[1])*scale,
		}
	}
	return out
}
