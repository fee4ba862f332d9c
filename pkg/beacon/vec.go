package beacon

import "math"

type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3) DistanceTo(o Vec3) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

type Vitals struct {
	Health        float32
	MaxHealth     float32
	Saturation    float32
	MaxSaturation float32
}

// Subject is a connected player as seen by one broadcast tick.
type Subject struct {
	UID    string
	Name   string
	Code   string
	Pos    Vec3
	Vitals Vitals
}
