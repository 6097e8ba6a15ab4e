package sosapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/codec/pox"
	"github.com/diwise/sos-broker/pkg/sos/codec/soap"
	"github.com/diwise/sos-broker/pkg/sos/ows"
)

// Binding is one transport specific entry point into the dispatch
// engine. A binding turns the transport request into a raw token and a
// decoder lookup key, and writes the encoded result back in whatever
// framing its transport requires. Everything in between is shared.
type Binding interface {
	Name() string
	Accepts(r *http.Request) bool
	Parse(r *http.Request) (codec.RawToken, codec.Key, error)
	MediaType() string
	Write(w http.ResponseWriter, status int, contentType string, payload []byte)
}

// AllBindings returns the bindings in their sniffing order. KVP only
// accepts GET requests, so the document bindings are probed by content
// type for everything else.
func AllBindings() []Binding {
	return []Binding{
		&kvpBinding{},
		&soapBinding{},
		&poxBinding{},
		&jsonBinding{},
	}
}

type kvpBinding struct{}

func (b *kvpBinding) Name() string      { return "kvp" }
func (b *kvpBinding) MediaType() string { return codec.MediaTypeXML }

func (b *kvpBinding) Accepts(r *http.Request) bool {
	return r.Method == http.MethodGet && len(r.URL.Query()) > 0
}

func (b *kvpBinding) Parse(r *http.Request) (codec.RawToken, codec.Key, error) {
	query := r.URL.Query()

	operation := firstQueryValue(query, "request")
	if operation == "" {
		return codec.RawToken{}, nil, ows.NewInvalidRequestError("request", "the request parameter is required")
	}

	key := codec.OperationKey{
		Service:   firstQueryValue(query, "service"),
		Version:   firstQueryValue(query, "version"),
		Operation: operation,
		MediaType: codec.MediaTypeKVP,
	}

	return codec.RawToken{Query: query}, key, nil
}

func (b *kvpBinding) Write(w http.ResponseWriter, status int, contentType string, payload []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(payload)
}

func firstQueryValue(query map[string][]string, name string) string {
	for key, values := range query {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0]
		}
	}

	return ""
}

type poxBinding struct{}

func (b *poxBinding) Name() string      { return "pox" }
func (b *poxBinding) MediaType() string { return codec.MediaTypeXML }

func (b *poxBinding) Accepts(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}

	contentType := r.Header.Get("Content-Type")

	return strings.HasPrefix(contentType, codec.MediaTypeXML) ||
		strings.HasPrefix(contentType, "text/xml")
}

func (b *poxBinding) Parse(r *http.Request) (codec.RawToken, codec.Key, error) {
	document, err := io.ReadAll(r.Body)
	if err != nil {
		return codec.RawToken{}, nil, ows.NewUnsupportedInputError("request", fmt.Sprintf("unable to read request body: %s", err.Error()))
	}

	operation, err := pox.RootElement(document)
	if err != nil {
		return codec.RawToken{}, nil, err
	}

	key := codec.OperationKey{
		Service:   sos.ServiceName,
		Operation: operation,
		MediaType: codec.MediaTypeXML,
	}

	return codec.RawToken{Document: document}, key, nil
}

func (b *poxBinding) Write(w http.ResponseWriter, status int, contentType string, payload []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(payload)
}

type soapBinding struct{}

func (b *soapBinding) Name() string      { return "soap" }
func (b *soapBinding) MediaType() string { return codec.MediaTypeXML }

func (b *soapBinding) Accepts(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}

	return strings.HasPrefix(r.Header.Get("Content-Type"), codec.MediaTypeSOAP)
}

func (b *soapBinding) Parse(r *http.Request) (codec.RawToken, codec.Key, error) {
	document, err := io.ReadAll(r.Body)
	if err != nil {
		return codec.RawToken{}, nil, ows.NewUnsupportedInputError("request", fmt.Sprintf("unable to read request body: %s", err.Error()))
	}

	key := codec.OperationKey{
		Service:   sos.ServiceName,
		MediaType: codec.MediaTypeSOAP,
	}

	return codec.RawToken{Document: document}, key, nil
}

// Write wraps the encoded payload in a SOAP envelope, whatever content
// type the encoder produced
func (b *soapBinding) Write(w http.ResponseWriter, status int, contentType string, payload []byte) {
	w.Header().Set("Content-Type", codec.MediaTypeSOAP)
	w.WriteHeader(status)
	w.Write(soap.Wrap(payload))
}

type jsonBinding struct{}

func (b *jsonBinding) Name() string      { return "json" }
func (b *jsonBinding) MediaType() string { return codec.MediaTypeJSON }

func (b *jsonBinding) Accepts(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}

	return strings.HasPrefix(r.Header.Get("Content-Type"), codec.MediaTypeJSON)
}

func (b *jsonBinding) Parse(r *http.Request) (codec.RawToken, codec.Key, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return codec.RawToken{}, nil, ows.NewUnsupportedInputError("request", fmt.Sprintf("unable to read request body: %s", err.Error()))
	}

	probe := struct {
		Request string `json:"request"`
		Service string `json:"service"`
		Version string `json:"version"`
	}{}

	err = json.Unmarshal(body, &probe)
	if err != nil {
		return codec.RawToken{}, nil, ows.NewUnsupportedInputError("request", fmt.Sprintf("malformed json request: %s", err.Error()))
	}

	if probe.Request == "" {
		return codec.RawToken{}, nil, ows.NewInvalidRequestError("request", "the request member is required")
	}

	key := codec.OperationKey{
		Service:   probe.Service,
		Version:   probe.Version,
		Operation: probe.Request,
		MediaType: codec.MediaTypeJSON,
	}

	return codec.RawToken{JSON: body}, key, nil
}

func (b *jsonBinding) Write(w http.ResponseWriter, status int, contentType string, payload []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(payload)
}
