package geo

// Geofence admits submissions that lie within MaxRadiusKm of Reference.
type Geofence struct {
	Reference   Coordinate `json:"reference"`
	MaxRadiusKm float64    `json:"max_radius_km"`
}

// Decision is the outcome of an admission check.
type Decision struct {
	Accepted   bool    `json:"accepted"`
	DistanceKm float64 `json:"distance_km"`
}

// Admit checks the candidate against the fence. The boundary is inclusive.
func (g Geofence) Admit(candidate Coordinate) Decision {
	d := DistanceKm(g.Reference, candidate)
	return Decision{Accepted: d <= g.MaxRadiusKm, DistanceKm: d}
}

// Bounds is a latitude/longitude box enclosing the fence.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Bounds returns the box the map UI uses to frame the permitted area.
func (g Geofence) Bounds() Bounds {
	north := Destination(g.Reference, 0, g.MaxRadiusKm)
	east := Destination(g.Reference, 90, g.MaxRadiusKm)
	south := Destination(g.Reference, 180, g.MaxRadiusKm)
	west := Destination(g.Reference, 270, g.MaxRadiusKm)
	return Bounds{
		South: south.Lat,
		West:  west.Lng,
		North: north.Lat,
		East:  east.Lng,
	}
}
