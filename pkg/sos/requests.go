package sos

import (
	"github.com/diwise/sos-broker/pkg/sos/types"
)

const (
	// ServiceName identifies the SOS service in requests and codec keys
	ServiceName string = "SOS"
	// Version20 is the service version implemented by this broker
	Version20 string = "2.0.0"
)

// Operation names understood by the dispatch engine
const (
	GetCapabilities      string = "GetCapabilities"
	DescribeSensor       string = "DescribeSensor"
	GetObservation       string = "GetObservation"
	GetFeatureOfInterest string = "GetFeatureOfInterest"
	GetDataAvailability  string = "GetDataAvailability"
	InsertObservation    string = "InsertObservation"
	InsertSensor         string = "InsertSensor"
	DeleteSensor         string = "DeleteSensor"
)

// Request is the internal, wire format independent form of an operation
// request produced by a decoder
type Request interface {
	Service() string
	Version() string
	Operation() string
}

// OperationRequest carries the fields shared by all requests. Concrete
// request types embed it and add their operation specific parameters.
type OperationRequest struct {
	Svc string `json:"service"`
	Ver string `json:"version"`
}

func (r OperationRequest) Service() string { return r.Svc }
func (r OperationRequest) Version() string { return r.Ver }

func NewOperationRequest(service, version string) OperationRequest {
	return OperationRequest{Svc: service, Ver: version}
}

type GetCapabilitiesRequest struct {
	OperationRequest
	Sections []string `json:"sections,omitempty"`
}

func (r *GetCapabilitiesRequest) Operation() string { return GetCapabilities }

type DescribeSensorRequest struct {
	OperationRequest
	Procedure         string `json:"procedure"`
	DescriptionFormat string `json:"procedureDescriptionFormat,omitempty"`
}

func (r *DescribeSensorRequest) Operation() string { return DescribeSensor }

type GetObservationRequest struct {
	OperationRequest
	Offerings            []string          `json:"offerings,omitempty"`
	Procedures           []string          `json:"procedures,omitempty"`
	ObservableProperties []string          `json:"observedProperties,omitempty"`
	FeaturesOfInterest   []string          `json:"featuresOfInterest,omitempty"`
	TemporalFilter       *types.TimePeriod `json:"temporalFilter,omitempty"`
	SpatialFilter        *types.Envelope   `json:"spatialFilter,omitempty"`
	CRS                  string            `json:"crs,omitempty"`
	ResponseFormat       string            `json:"responseFormat,omitempty"`
}

func (r *GetObservationRequest) Operation() string { return GetObservation }

type GetFeatureOfInterestRequest struct {
	OperationRequest
	Features             []string `json:"featuresOfInterest,omitempty"`
	Procedures           []string `json:"procedures,omitempty"`
	ObservableProperties []string `json:"observedProperties,omitempty"`
}

func (r *GetFeatureOfInterestRequest) Operation() string { return GetFeatureOfInterest }

type GetDataAvailabilityRequest struct {
	OperationRequest
	Offerings            []string `json:"offerings,omitempty"`
	Procedures           []string `json:"procedures,omitempty"`
	ObservableProperties []string `json:"observedProperties,omitempty"`
}

func (r *GetDataAvailabilityRequest) Operation() string { return GetDataAvailability }

type InsertObservationRequest struct {
	OperationRequest
	Offering     string              `json:"offering"`
	Observations []types.Observation `json:"observations"`
}

func (r *InsertObservationRequest) Operation() string { return InsertObservation }

type InsertSensorRequest struct {
	OperationRequest
	Procedure            string   `json:"procedure"`
	Description          string   `json:"procedureDescription,omitempty"`
	ObservableProperties []string `json:"observableProperties,omitempty"`
	ObservationTypes     []string `json:"observationTypes,omitempty"`
}

func (r *InsertSensorRequest) Operation() string { return InsertSensor }

type DeleteSensorRequest struct {
	OperationRequest
	Procedure string `json:"procedure"`
}

func (r *DeleteSensorRequest) Operation() string { return DeleteSensor }
