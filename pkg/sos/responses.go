package sos

import (
	"github.com/diwise/sos-broker/pkg/sos/types"
)

// Response is the internal form of an operation result, handed to an
// encoder for the caller's requested media type
type Response interface {
	Operation() string
}

// Offering is the published metadata for one observation offering,
// assembled by the content cache
type Offering struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name,omitempty"`
	Procedures           []string        `json:"procedures,omitempty"`
	ObservableProperties []string        `json:"observableProperties,omitempty"`
	ObservedArea         *types.Envelope `json:"observedArea,omitempty"`
	ResponseFormats      []string        `json:"responseFormats,omitempty"`
}

type GetCapabilitiesResponse struct {
	Service   string     `json:"service"`
	Version   string     `json:"version"`
	Title     string     `json:"title,omitempty"`
	Provider  string     `json:"provider,omitempty"`
	Contents  []Offering `json:"contents"`
	Languages []string   `json:"languages,omitempty"`
}

func (r *GetCapabilitiesResponse) Operation() string { return GetCapabilities }

type DescribeSensorResponse struct {
	Procedure         string `json:"procedure"`
	DescriptionFormat string `json:"procedureDescriptionFormat,omitempty"`
	Description       string `json:"description"`
}

func (r *DescribeSensorResponse) Operation() string { return DescribeSensor }

type GetObservationResponse struct {
	Observations []types.Observation `json:"observations"`
}

func (r *GetObservationResponse) Operation() string { return GetObservation }

// FeatureOfInterest is a sampled real world feature with its geometry
type FeatureOfInterest struct {
	ID       string       `json:"id"`
	Name     string       `json:"name,omitempty"`
	Geometry *types.Point `json:"geometry,omitempty"`
}

type GetFeatureOfInterestResponse struct {
	Features []FeatureOfInterest `json:"features"`
}

func (r *GetFeatureOfInterestResponse) Operation() string { return GetFeatureOfInterest }

// DataAvailability states for which period a (procedure, property,
// feature) combination has data
type DataAvailability struct {
	Procedure          string           `json:"procedure"`
	ObservableProperty string           `json:"observableProperty"`
	FeatureOfInterest  string           `json:"featureOfInterest"`
	PhenomenonTime     types.TimePeriod `json:"phenomenonTime"`
}

type GetDataAvailabilityResponse struct {
	Availability []DataAvailability `json:"dataAvailability"`
}

func (r *GetDataAvailabilityResponse) Operation() string { return GetDataAvailability }

type InsertObservationResponse struct {
	AssignedIDs []string `json:"assignedObservationIds,omitempty"`
}

func (r *InsertObservationResponse) Operation() string { return InsertObservation }

type InsertSensorResponse struct {
	AssignedProcedure string `json:"assignedProcedure"`
	AssignedOffering  string `json:"assignedOffering,omitempty"`
}

func (r *InsertSensorResponse) Operation() string { return InsertSensor }

type DeleteSensorResponse struct {
	DeletedProcedure string `json:"deletedProcedure"`
}

func (r *DeleteSensorResponse) Operation() string { return DeleteSensor }
