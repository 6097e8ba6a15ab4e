package pox

import (
	"encoding/xml"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/ows"
	"github.com/diwise/sos-broker/pkg/sos/types"
)

func responseInterfaceType() reflect.Type {
	return reflect.TypeOf((*sos.Response)(nil)).Elem()
}

func marshalDocument(doc any) ([]byte, string, error) {
	payload, err := xml.Marshal(doc)
	if err != nil {
		return nil, "", ows.NewUnsupportedInputError("response", fmt.Sprintf("unable to encode response to xml: %s", err.Error()))
	}

	return append([]byte(xml.Header), payload...), codec.MediaTypeXML, nil
}

type capabilitiesDocument struct {
	XMLName  xml.Name           `xml:"sos:Capabilities"`
	Service  string             `xml:"service,attr"`
	Version  string             `xml:"version,attr"`
	Title    string             `xml:"ServiceIdentification>Title,omitempty"`
	Provider string             `xml:"ServiceProvider>ProviderName,omitempty"`
	Contents []offeringDocument `xml:"Contents>ObservationOffering"`
}

type offeringDocument struct {
	ID                   string            `xml:"identifier"`
	Name                 string            `xml:"name,omitempty"`
	Procedures           []string          `xml:"procedure"`
	ObservableProperties []string          `xml:"observableProperty"`
	ObservedArea         *envelopeDocument `xml:"observedArea,omitempty"`
	ResponseFormats      []string          `xml:"responseFormat"`
}

type envelopeDocument struct {
	CRS         string `xml:"srsName,attr,omitempty"`
	LowerCorner string `xml:"lowerCorner"`
	UpperCorner string `xml:"upperCorner"`
}

func encodeCapabilities(obj any) ([]byte, string, error) {
	response, ok := obj.(*sos.GetCapabilitiesResponse)
	if !ok {
		return nil, "", ows.NewUnsupportedInputError("response", "capabilities encoder was handed an unexpected object")
	}

	doc := capabilitiesDocument{
		Service:  response.Service,
		Version:  response.Version,
		Title:    response.Title,
		Provider: response.Provider,
	}

	for _, offering := range response.Contents {
		od := offeringDocument{
			ID:                   offering.ID,
			Name:                 offering.Name,
			Procedures:           offering.Procedures,
			ObservableProperties: offering.ObservableProperties,
			ResponseFormats:      offering.ResponseFormats,
		}

		if offering.ObservedArea != nil {
			od.ObservedArea = &envelopeDocument{
				CRS:         offering.ObservedArea.CRS,
				LowerCorner: corner(offering.ObservedArea.MinLatitude, offering.ObservedArea.MinLongitude),
				UpperCorner: corner(offering.ObservedArea.MaxLatitude, offering.ObservedArea.MaxLongitude),
			}
		}

		doc.Contents = append(doc.Contents, od)
	}

	return marshalDocument(doc)
}

func corner(latitude, longitude float64) string {
	return strconv.FormatFloat(latitude, 'f', -1, 64) + " " + strconv.FormatFloat(longitude, 'f', -1, 64)
}

type observationDataDocument struct {
	XMLName      xml.Name              `xml:"sos:GetObservationResponse"`
	Observations []observationDocument `xml:"observationData>OM_Observation"`
}

func encodeObservations(obj any) ([]byte, string, error) {
	response, ok := obj.(*sos.GetObservationResponse)
	if !ok {
		return nil, "", ows.NewUnsupportedInputError("response", "observation encoder was handed an unexpected object")
	}

	doc := observationDataDocument{}

	for _, observation := range response.Observations {
		doc.Observations = append(doc.Observations, newObservationDocument(observation))
	}

	return marshalDocument(doc)
}

func newObservationDocument(observation types.Observation) observationDocument {
	doc := observationDocument{
		ID:                 observation.ID,
		Procedure:          observation.Procedure,
		ObservableProperty: observation.ObservableProperty,
		FeatureOfInterest:  observation.FeatureOfInterest,
		ObservationType:    observation.ObservationType,
		PhenomenonTime: timePeriodDocument{
			Start: observation.PhenomenonTime.Start,
			End:   observation.PhenomenonTime.End,
		},
		ResultTime:        observation.ResultTime,
		UnitOfMeasurement: observation.UnitOfMeasurement,
	}

	for _, value := range observation.Values {
		doc.Values = append(doc.Values, timeValueDocument{
			Time:  value.Time,
			Value: strconv.FormatFloat(value.Value, 'f', -1, 64),
		})
	}

	return doc
}

func encodeException(obj any) ([]byte, string, error) {
	report, ok := obj.(*ows.ExceptionReport)
	if !ok {
		return nil, "", ows.NewUnsupportedInputError("response", "exception encoder was handed an unexpected object")
	}

	return marshalDocument(report)
}

// encodeGenericResponse covers the response types that have no dedicated
// XML document format
func encodeGenericResponse(obj any) ([]byte, string, error) {
	switch response := obj.(type) {
	case *sos.DescribeSensorResponse:
		return marshalDocument(struct {
			XMLName     xml.Name `xml:"swes:DescribeSensorResponse"`
			Procedure   string   `xml:"procedure"`
			Format      string   `xml:"procedureDescriptionFormat,omitempty"`
			Description string   `xml:"description>SensorDescription"`
		}{
			Procedure:   response.Procedure,
			Format:      response.DescriptionFormat,
			Description: response.Description,
		})
	case *sos.GetFeatureOfInterestResponse:
		doc := struct {
			XMLName  xml.Name          `xml:"sos:GetFeatureOfInterestResponse"`
			Features []featureDocument `xml:"featureMember"`
		}{}

		for _, feature := range response.Features {
			fd := featureDocument{ID: feature.ID, Name: feature.Name}
			if feature.Geometry != nil {
				fd.Position = corner(feature.Geometry.Latitude, feature.Geometry.Longitude)
			}
			doc.Features = append(doc.Features, fd)
		}

		return marshalDocument(doc)
	case *sos.GetDataAvailabilityResponse:
		doc := struct {
			XMLName      xml.Name                   `xml:"gda:GetDataAvailabilityResponse"`
			Availability []dataAvailabilityDocument `xml:"dataAvailabilityMember"`
		}{}

		for _, member := range response.Availability {
			doc.Availability = append(doc.Availability, dataAvailabilityDocument{
				Procedure:          member.Procedure,
				ObservableProperty: member.ObservableProperty,
				FeatureOfInterest:  member.FeatureOfInterest,
				Start:              member.PhenomenonTime.Start,
				End:                member.PhenomenonTime.End,
			})
		}

		return marshalDocument(doc)
	case *sos.InsertObservationResponse:
		return marshalDocument(struct {
			XMLName     xml.Name `xml:"sos:InsertObservationResponse"`
			AssignedIDs []string `xml:"assignedObservationId,omitempty"`
		}{AssignedIDs: response.AssignedIDs})
	case *sos.InsertSensorResponse:
		return marshalDocument(struct {
			XMLName   xml.Name `xml:"swes:InsertSensorResponse"`
			Procedure string   `xml:"assignedProcedure"`
			Offering  string   `xml:"assignedOffering,omitempty"`
		}{Procedure: response.AssignedProcedure, Offering: response.AssignedOffering})
	case *sos.DeleteSensorResponse:
		return marshalDocument(struct {
			XMLName   xml.Name `xml:"swes:DeleteSensorResponse"`
			Procedure string   `xml:"deletedProcedure"`
		}{Procedure: response.DeletedProcedure})
	default:
		return nil, "", ows.NewUnsupportedInputError("response", fmt.Sprintf("no xml document format for %T", obj))
	}
}

type featureDocument struct {
	ID       string `xml:"identifier"`
	Name     string `xml:"name,omitempty"`
	Position string `xml:"shape>Point>pos,omitempty"`
}

type dataAvailabilityDocument struct {
	Procedure          string    `xml:"procedure"`
	ObservableProperty string    `xml:"observedProperty"`
	FeatureOfInterest  string    `xml:"featureOfInterest"`
	Start              time.Time `xml:"phenomenonTime>start"`
	End                time.Time `xml:"phenomenonTime>end"`
}
