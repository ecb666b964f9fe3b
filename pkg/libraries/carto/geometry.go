package carto

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type path struct {
	points []orb.Point
	closed bool
}

func polygonsOf(g orb.Geometry, acc []orb.Polygon) []orb.Polygon {
	switch t := g.(type) {
	case orb.Polygon:
		acc = append(acc, t)
	case orb.MultiPolygon:
		acc = append(acc, t...)
	case orb.Ring:
		acc = append(acc, orb.Polygon{t})
	case orb.Bound:
		acc = append(acc, t.ToPolygon())
	case orb.Collection:
		for _, child := range t {
			acc = polygonsOf(child, acc)
		}
	}
	return acc
}

func pathsOf(g orb.Geometry, acc []path) []path {
	switch t := g.(type) {
	case orb.LineString:
		acc = append(acc, path{points: t})
	case orb.MultiLineString:
		for _, ls := range t {
			acc = append(acc, path{points: ls})
		}
	case orb.Ring:
		acc = append(acc, path{points: t, closed: true})
	case orb.Polygon:
		for _, ring := range t {
			acc = append(acc, path{points: ring, closed: true})
		}
	case orb.MultiPolygon:
		for _, polygon := range t {
			acc = pathsOf(polygon, acc)
		}
	case orb.Bound:
		acc = pathsOf(t.ToRing(), acc)
	case orb.Collection:
		for _, child := range t {
			acc = pathsOf(child, acc)
		}
	}
	return acc
}

// anchorsOf returns the points at which point-like symbols are placed:
// points themselves, the middle of lines and the centroid of polygons.
func anchorsOf(g orb.Geometry, acc []orb.Point) []orb.Point {
	switch t := g.(type) {
	case orb.Point:
		acc = append(acc, t)
	case orb.MultiPoint:
		acc = append(acc, t...)
	case orb.LineString:
		if p, ok := midpoint(t); ok {
			acc = append(acc, p)
		}
	case orb.MultiLineString:
		for _, ls := range t {
			acc = anchorsOf(ls, acc)
		}
	case orb.Ring:
		acc = anchorsOf(orb.Polygon{t}, acc)
	case orb.Polygon:
		if len(t) == 0 {
			break
		}
		centroid, area := planar.CentroidArea(t)
		if area != 0 && !hasNaN(centroid) {
			acc = append(acc, centroid)
		}
	case orb.MultiPolygon:
		for _, polygon := range t {
			acc = anchorsOf(polygon, acc)
		}
	case orb.Collection:
		for _, child := range t {
			acc = anchorsOf(child, acc)
		}
	}
	return acc
}

func midpoint(ls orb.LineString) (orb.Point, bool) {
	if len(ls) == 0 {
		return orb.Point{}, false
	}

	total := 0.0
	for i := 1; i < len(ls); i++ {
		total += planar.Distance(ls[i-1], ls[i])
	}
	if total == 0 {
		return ls[0], true
	}

	half := total / 2
	walked := 0.0
	for i := 1; i < len(ls); i++ {
		segment := planar.Distance(ls[i-1], ls[i])
		if walked+segment >= half {
			f := (half - walked) / segment
			return orb.Point{
				ls[i-1][0] + (ls[i][0]-ls[i-1][0])*f,
				ls[i-1][1] + (ls[i][1]-ls[i-1][1])*f,
			}, true
		}
		walked += segment
	}

	return ls[len(ls)-1], true
}
