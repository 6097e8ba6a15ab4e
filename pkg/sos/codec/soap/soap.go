// Package soap unwraps SOAP envelopes and delegates the body document
// to the XML codec for the operation it declares. Responses are wrapped
// back into an envelope by the SOAP binding.
package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"

	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/codec/pox"
	"github.com/diwise/sos-broker/pkg/sos/ows"
)

// Resolver is the subset of the registry needed to delegate to the
// decoder for the unwrapped body document
type Resolver interface {
	ResolveDecoder(requested codec.Key) (codec.Decoder, error)
}

// Entries returns the codec registrations for the SOAP media type. The
// single decoder is registered with a wildcard operation since the
// operation is not known until the envelope has been opened.
func Entries(resolver Resolver) []codec.Entry {
	return []codec.Entry{
		{
			Key: codec.OperationKey{
				Service:   sos.ServiceName,
				MediaType: codec.MediaTypeSOAP,
			},
			Decoder:            &envelopeDecoder{resolver: resolver},
			ConformanceClasses: []string{"http://www.opengis.net/spec/SOS/2.0/conf/soap"},
		},
	}
}

type envelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Contents []byte `xml:",innerxml"`
	} `xml:"Body"`
}

type envelopeDecoder struct {
	resolver Resolver
}

func (d *envelopeDecoder) Decode(ctx context.Context, token codec.RawToken) (any, error) {
	if token.Document == nil {
		return nil, ows.NewUnsupportedInputError("request", "soap decoder needs an xml document token")
	}

	env := envelope{}

	err := xml.Unmarshal(token.Document, &env)
	if err != nil {
		return nil, ows.NewUnsupportedInputError("request", fmt.Sprintf("malformed soap envelope: %s", err.Error()))
	}

	body := bytes.TrimSpace(env.Body.Contents)
	if len(body) == 0 {
		return nil, ows.NewUnsupportedInputError("request", "soap envelope has an empty body")
	}

	operation, err := pox.RootElement(body)
	if err != nil {
		return nil, err
	}

	delegate, err := d.resolver.ResolveDecoder(codec.OperationKey{
		Service:   sos.ServiceName,
		Operation: operation,
		MediaType: codec.MediaTypeXML,
	})
	if err != nil {
		return nil, err
	}

	return delegate.Decode(ctx, codec.RawToken{Document: body})
}

// Wrap encloses an already encoded payload in a SOAP envelope
func Wrap(payload []byte) []byte {
	var buf bytes.Buffer

	buf.WriteString(xml.Header)
	buf.WriteString(`<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope"><soap:Body>`)
	buf.Write(bytes.TrimPrefix(payload, []byte(xml.Header)))
	buf.WriteString(`</soap:Body></soap:Envelope>`)

	return buf.Bytes()
}
