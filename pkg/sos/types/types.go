package types

import (
	"time"
)

const (
	// MeasurementType is the observation type identifier for scalar measurements
	MeasurementType string = "http://www.opengis.net/def/observationType/OGC-OM/2.0/OM_Measurement"
	// CategoryType is the observation type identifier for categorical observations
	CategoryType string = "http://www.opengis.net/def/observationType/OGC-OM/2.0/OM_CategoryObservation"
	// CountType is the observation type identifier for integer counts
	CountType string = "http://www.opengis.net/def/observationType/OGC-OM/2.0/OM_CountObservation"
)

// DefaultCRS is the spatial reference system assumed when a request does
// not ask for a specific one
const DefaultCRS string = "http://www.opengis.net/def/crs/EPSG/0/4326"

// TimePeriod is a closed interval in phenomenon time
type TimePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewTimePeriod(start, end time.Time) TimePeriod {
	if end.Before(start) {
		start, end = end, start
	}

	return TimePeriod{Start: start, End: end}
}

// Union widens the period just enough to cover both operands
func (tp TimePeriod) Union(other TimePeriod) TimePeriod {
	result := tp

	if other.Start.Before(result.Start) {
		result.Start = other.Start
	}

	if other.End.After(result.End) {
		result.End = other.End
	}

	return result
}

func (tp TimePeriod) Contains(t time.Time) bool {
	return !t.Before(tp.Start) && !t.After(tp.End)
}

// TimeValue is a single timestamped result within an observation
type TimeValue struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Constellation identifies the observations that are allowed to be merged
// into one: same procedure, same observed property, same feature of
// interest and same observation type
type Constellation struct {
	Procedure          string `json:"procedure"`
	ObservableProperty string `json:"observableProperty"`
	FeatureOfInterest  string `json:"featureOfInterest"`
	ObservationType    string `json:"observationType"`
}

// Point is a single coordinate in some spatial reference system
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Envelope is the bounding box aggregated over a set of sampling geometries
type Envelope struct {
	MinLatitude  float64 `json:"minLatitude"`
	MinLongitude float64 `json:"minLongitude"`
	MaxLatitude  float64 `json:"maxLatitude"`
	MaxLongitude float64 `json:"maxLongitude"`
	CRS          string  `json:"crs"`
}

// Expand grows the envelope to include the given point
func (e Envelope) Expand(p Point) Envelope {
	result := e

	if p.Latitude < result.MinLatitude {
		result.MinLatitude = p.Latitude
	}
	if p.Latitude > result.MaxLatitude {
		result.MaxLatitude = p.Latitude
	}
	if p.Longitude < result.MinLongitude {
		result.MinLongitude = p.Longitude
	}
	if p.Longitude > result.MaxLongitude {
		result.MaxLongitude = p.Longitude
	}

	return result
}

func NewEnvelope(p Point, crs string) Envelope {
	if crs == "" {
		crs = DefaultCRS
	}

	return Envelope{
		MinLatitude:  p.Latitude,
		MinLongitude: p.Longitude,
		MaxLatitude:  p.Latitude,
		MaxLongitude: p.Longitude,
		CRS:          crs,
	}
}

// Observation is the internal representation of a (possibly multi-valued)
// observation, independent of any wire format
type Observation struct {
	ID                 string      `json:"id"`
	Procedure          string      `json:"procedure"`
	ObservableProperty string      `json:"observableProperty"`
	FeatureOfInterest  string      `json:"featureOfInterest"`
	ObservationType    string      `json:"observationType"`
	PhenomenonTime     TimePeriod  `json:"phenomenonTime"`
	ResultTime         time.Time   `json:"resultTime"`
	UnitOfMeasurement  string      `json:"uom,omitempty"`
	Values             []TimeValue `json:"values"`
	Geometry           *Point      `json:"geometry,omitempty"`
	CRS                string      `json:"crs,omitempty"`
}

// Constellation returns the merge discriminator for this observation
func (o Observation) Constellation() Constellation {
	return Constellation{
		Procedure:          o.Procedure,
		ObservableProperty: o.ObservableProperty,
		FeatureOfInterest:  o.FeatureOfInterest,
		ObservationType:    o.ObservationType,
	}
}

// Merge combines this observation with another one from the same
// constellation. The phenomenon time is widened to the union of both
// periods, the value arrays are concatenated and the result time is
// re-resolved to the later of the two.
func (o Observation) Merge(other Observation) Observation {
	merged := o

	merged.PhenomenonTime = o.PhenomenonTime.Union(other.PhenomenonTime)

	if other.ResultTime.After(merged.ResultTime) {
		merged.ResultTime = other.ResultTime
	}

	merged.Values = make([]TimeValue, 0, len(o.Values)+len(other.Values))
	merged.Values = append(merged.Values, o.Values...)
	merged.Values = append(merged.Values, other.Values...)

	return merged
}
