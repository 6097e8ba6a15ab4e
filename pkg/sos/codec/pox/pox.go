// Package pox decodes and encodes SOS requests and responses carried as
// plain old XML documents. The wire structs cover the envelope level of
// the document formats, not the full schema grammar.
package pox

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/ows"
	"github.com/diwise/sos-broker/pkg/sos/types"
)

// RootElement returns the local name of a document's root element,
// which declares the operation for operation request documents
func RootElement(document []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(document))

	for {
		token, err := decoder.Token()
		if err != nil {
			return "", ows.NewUnsupportedInputError("request", fmt.Sprintf("unable to parse xml document: %s", err.Error()))
		}

		if start, ok := token.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// Entries returns the codec registrations for the XML media type
func Entries() []codec.Entry {
	decoders := map[string]codec.Decoder{
		sos.GetCapabilities:      decoderFunc(decodeGetCapabilities),
		sos.DescribeSensor:       decoderFunc(decodeDescribeSensor),
		sos.GetObservation:       decoderFunc(decodeGetObservation),
		sos.GetFeatureOfInterest: decoderFunc(decodeGetFeatureOfInterest),
		sos.GetDataAvailability:  decoderFunc(decodeGetDataAvailability),
		sos.InsertObservation:    decoderFunc(decodeInsertObservation),
		sos.InsertSensor:         decoderFunc(decodeInsertSensor),
		sos.DeleteSensor:         decoderFunc(decodeDeleteSensor),
	}

	entries := make([]codec.Entry, 0, len(decoders)+4)

	for operation, decoder := range decoders {
		entries = append(entries, codec.Entry{
			Key: codec.OperationKey{
				Service:   sos.ServiceName,
				Operation: operation,
				MediaType: codec.MediaTypeXML,
			},
			Decoder:            decoder,
			ConformanceClasses: []string{"http://www.opengis.net/spec/SOS/2.0/conf/pox"},
		})
	}

	entries = append(entries,
		codec.Entry{
			Key:     codec.EncoderKeyFor(&sos.GetCapabilitiesResponse{}, codec.MediaTypeXML),
			Encoder: encoderFunc(encodeCapabilities),
		},
		codec.Entry{
			Key:     codec.EncoderKeyFor(&sos.GetObservationResponse{}, codec.MediaTypeXML),
			Encoder: encoderFunc(encodeObservations),
		},
		codec.Entry{
			Key:     codec.EncoderKeyFor(&ows.ExceptionReport{}, codec.MediaTypeXML),
			Encoder: encoderFunc(encodeException),
		},
		codec.Entry{
			Key:     codec.StructuralKey{Namespace: codec.MediaTypeXML, Type: responseInterfaceType()},
			Encoder: encoderFunc(encodeGenericResponse),
		},
	)

	return entries
}

type decoderFunc func(token codec.RawToken) (sos.Request, error)

func (f decoderFunc) Decode(_ context.Context, token codec.RawToken) (any, error) {
	if token.Document == nil {
		return nil, ows.NewUnsupportedInputError("request", "pox decoder needs an xml document token")
	}

	request, err := f(token)
	if err != nil {
		return nil, err
	}

	return request, nil
}

type encoderFunc func(obj any) ([]byte, string, error)

func (f encoderFunc) Encode(_ context.Context, obj any) ([]byte, string, error) {
	return f(obj)
}

func unmarshal(document []byte, into any) error {
	err := xml.Unmarshal(document, into)
	if err != nil {
		return ows.NewUnsupportedInputError("request", fmt.Sprintf("malformed xml request: %s", err.Error()))
	}

	return nil
}

type requestDocument struct {
	Service string `xml:"service,attr"`
	Version string `xml:"version,attr"`
}

func (d requestDocument) operationRequest() sos.OperationRequest {
	return sos.NewOperationRequest(d.Service, d.Version)
}

type timePeriodDocument struct {
	Start time.Time `xml:"start"`
	End   time.Time `xml:"end"`
}

func decodeGetCapabilities(token codec.RawToken) (sos.Request, error) {
	doc := struct {
		requestDocument
		Sections []string `xml:"Sections>Section"`
	}{}

	if err := unmarshal(token.Document, &doc); err != nil {
		return nil, err
	}

	return &sos.GetCapabilitiesRequest{
		OperationRequest: doc.operationRequest(),
		Sections:         doc.Sections,
	}, nil
}

func decodeDescribeSensor(token codec.RawToken) (sos.Request, error) {
	doc := struct {
		requestDocument
		Procedure         string `xml:"procedure"`
		DescriptionFormat string `xml:"procedureDescriptionFormat"`
	}{}

	if err := unmarshal(token.Document, &doc); err != nil {
		return nil, err
	}

	if doc.Procedure == "" {
		return nil, ows.NewInvalidRequestError("procedure", "DescribeSensor requires a procedure element")
	}

	return &sos.DescribeSensorRequest{
		OperationRequest:  doc.operationRequest(),
		Procedure:         doc.Procedure,
		DescriptionFormat: doc.DescriptionFormat,
	}, nil
}

func decodeGetObservation(token codec.RawToken) (sos.Request, error) {
	doc := struct {
		requestDocument
		Offerings            []string            `xml:"offering"`
		Procedures           []string            `xml:"procedure"`
		ObservableProperties []string            `xml:"observedProperty"`
		FeaturesOfInterest   []string            `xml:"featureOfInterest"`
		TemporalFilter       *timePeriodDocument `xml:"temporalFilter"`
		CRS                  string              `xml:"crs"`
		ResponseFormat       string              `xml:"responseFormat"`
	}{}

	if err := unmarshal(token.Document, &doc); err != nil {
		return nil, err
	}

	request := &sos.GetObservationRequest{
		OperationRequest:     doc.operationRequest(),
		Offerings:            doc.Offerings,
		Procedures:           doc.Procedures,
		ObservableProperties: doc.ObservableProperties,
		FeaturesOfInterest:   doc.FeaturesOfInterest,
		CRS:                  doc.CRS,
		ResponseFormat:       doc.ResponseFormat,
	}

	if doc.TemporalFilter != nil {
		period := types.NewTimePeriod(doc.TemporalFilter.Start, doc.TemporalFilter.End)
		request.TemporalFilter = &period
	}

	return request, nil
}

func decodeGetFeatureOfInterest(token codec.RawToken) (sos.Request, error) {
	doc := struct {
		requestDocument
		Features             []string `xml:"featureOfInterest"`
		Procedures           []string `xml:"procedure"`
		ObservableProperties []string `xml:"observedProperty"`
	}{}

	if err := unmarshal(token.Document, &doc); err != nil {
		return nil, err
	}

	return &sos.GetFeatureOfInterestRequest{
		OperationRequest:     doc.operationRequest(),
		Features:             doc.Features,
		Procedures:           doc.Procedures,
		ObservableProperties: doc.ObservableProperties,
	}, nil
}

func decodeGetDataAvailability(token codec.RawToken) (sos.Request, error) {
	doc := struct {
		requestDocument
		Offerings            []string `xml:"offering"`
		Procedures           []string `xml:"procedure"`
		ObservableProperties []string `xml:"observedProperty"`
	}{}

	if err := unmarshal(token.Document, &doc); err != nil {
		return nil, err
	}

	return &sos.GetDataAvailabilityRequest{
		OperationRequest:     doc.operationRequest(),
		Offerings:            doc.Offerings,
		Procedures:           doc.Procedures,
		ObservableProperties: doc.ObservableProperties,
	}, nil
}

type observationDocument struct {
	ID                 string              `xml:"identifier"`
	Procedure          string              `xml:"procedure"`
	ObservableProperty string              `xml:"observedProperty"`
	FeatureOfInterest  string              `xml:"featureOfInterest"`
	ObservationType    string              `xml:"type"`
	PhenomenonTime     timePeriodDocument  `xml:"phenomenonTime"`
	ResultTime         time.Time           `xml:"resultTime"`
	UnitOfMeasurement  string              `xml:"uom"`
	Values             []timeValueDocument `xml:"result>value"`
}

type timeValueDocument struct {
	Time  time.Time `xml:"time,attr"`
	Value string    `xml:",chardata"`
}

func (d observationDocument) observation() types.Observation {
	observation := types.Observation{
		ID:                 d.ID,
		Procedure:          d.Procedure,
		ObservableProperty: d.ObservableProperty,
		FeatureOfInterest:  d.FeatureOfInterest,
		ObservationType:    d.ObservationType,
		PhenomenonTime:     types.NewTimePeriod(d.PhenomenonTime.Start, d.PhenomenonTime.End),
		ResultTime:         d.ResultTime,
		UnitOfMeasurement:  d.UnitOfMeasurement,
	}

	for _, value := range d.Values {
		parsed, _ := strconv.ParseFloat(strings.TrimSpace(value.Value), 64)
		observation.Values = append(observation.Values, types.TimeValue{Time: value.Time, Value: parsed})
	}

	return observation
}

func decodeInsertObservation(token codec.RawToken) (sos.Request, error) {
	doc := struct {
		requestDocument
		Offering     string                `xml:"offering"`
		Observations []observationDocument `xml:"observation"`
	}{}

	if err := unmarshal(token.Document, &doc); err != nil {
		return nil, err
	}

	if doc.Offering == "" {
		return nil, ows.NewInvalidRequestError("offering", "InsertObservation requires an offering element")
	}

	request := &sos.InsertObservationRequest{
		OperationRequest: doc.operationRequest(),
		Offering:         doc.Offering,
	}

	for _, observation := range doc.Observations {
		request.Observations = append(request.Observations, observation.observation())
	}

	return request, nil
}

func decodeInsertSensor(token codec.RawToken) (sos.Request, error) {
	doc := struct {
		requestDocument
		Procedure            string   `xml:"procedure"`
		Description          string   `xml:"procedureDescription"`
		ObservableProperties []string `xml:"observableProperty"`
		ObservationTypes     []string `xml:"observationType"`
	}{}

	if err := unmarshal(token.Document, &doc); err != nil {
		return nil, err
	}

	if doc.Procedure == "" {
		return nil, ows.NewInvalidRequestError("procedure", "InsertSensor requires a procedure element")
	}

	return &sos.InsertSensorRequest{
		OperationRequest:     doc.operationRequest(),
		Procedure:            doc.Procedure,
		Description:          doc.Description,
		ObservableProperties: doc.ObservableProperties,
		ObservationTypes:     doc.ObservationTypes,
	}, nil
}

func decodeDeleteSensor(token codec.RawToken) (sos.Request, error) {
	doc := struct {
		requestDocument
		Procedure string `xml:"procedure"`
	}{}

	if err := unmarshal(token.Document, &doc); err != nil {
		return nil, err
	}

	if doc.Procedure == "" {
		return nil, ows.NewInvalidRequestError("procedure", "DeleteSensor requires a procedure element")
	}

	return &sos.DeleteSensorRequest{
		OperationRequest: doc.operationRequest(),
		Procedure:        doc.Procedure,
	}, nil
}
