package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
)

// Media types understood by the bindings and their codecs
const (
	MediaTypeJSON string = "application/json"
	MediaTypeXML  string = "application/xml"
	MediaTypeSOAP string = "application/soap+xml"
	MediaTypeKVP  string = "application/x-kvp"
	MediaTypeEXI  string = "application/exi"
	MediaTypeAny  string = "*/*"
)

// similarity weights, chosen so that a namespace (media type) match always
// outranks type specificity, and an exact type always outranks a match
// against an implemented interface
const (
	scoreNamespaceExact int = 8
	scoreFieldExact     int = 2
	scoreTypeExact      int = 4
	scoreTypeAssignable int = 1
	scoreIncompatible   int = -1
)

// Key describes what a codec can decode or encode. Keys are immutable
// value objects. Similarity scores how well a registered candidate key
// (the receiver) matches a requested key: higher is more specific, a
// negative score means incompatible.
type Key interface {
	Similarity(requested Key) int
	String() string
}

// OperationKey binds a codec to a (service, version, operation, media type)
// combination. Empty or "*" fields on a registered key act as wildcards.
type OperationKey struct {
	Service   string
	Version   string
	Operation string
	MediaType string
}

func (k OperationKey) Similarity(requested Key) int {
	req, ok := requested.(OperationKey)
	if !ok {
		return scoreIncompatible
	}

	total := 0

	for _, pair := range [][2]string{
		{req.Service, k.Service},
		{req.Version, k.Version},
		{req.Operation, k.Operation},
		{req.MediaType, k.MediaType},
	} {
		score := fieldSimilarity(pair[0], pair[1])
		if score < 0 {
			return scoreIncompatible
		}

		total += score
	}

	return total
}

func (k OperationKey) String() string {
	return fmt.Sprintf("operation(%s/%s/%s/%s)", k.Service, k.Version, k.Operation, k.MediaType)
}

func fieldSimilarity(requested, candidate string) int {
	if candidate == "" || candidate == "*" || candidate == MediaTypeAny {
		return 0
	}

	if requested == candidate {
		return scoreFieldExact
	}

	return scoreIncompatible
}

// StructuralKey binds a codec to a runtime type within a namespace. For
// encoders the namespace is the media type the encoder produces. A
// candidate registered for an interface type matches any requested type
// implementing it, at a lower score than an exact type match.
type StructuralKey struct {
	Namespace string
	Type      reflect.Type
}

func (k StructuralKey) Similarity(requested Key) int {
	var reqNamespace string
	var reqType reflect.Type

	switch req := requested.(type) {
	case StructuralKey:
		reqNamespace = req.Namespace
		reqType = req.Type
	default:
		return scoreIncompatible
	}

	total := 0

	switch {
	case k.Namespace == "" || k.Namespace == "*":
	case k.Namespace == reqNamespace:
		total += scoreNamespaceExact
	default:
		return scoreIncompatible
	}

	typeScore := typeSimilarity(reqType, k.Type)
	if typeScore < 0 {
		return scoreIncompatible
	}

	return total + typeScore
}

func (k StructuralKey) String() string {
	return fmt.Sprintf("structural(%s/%v)", k.Namespace, k.Type)
}

// TypeKey binds a format agnostic codec to a runtime type only. It also
// matches structural requests, but without any namespace contribution,
// so a namespace aware candidate always wins when one exists.
type TypeKey struct {
	Type reflect.Type
}

func (k TypeKey) Similarity(requested Key) int {
	switch req := requested.(type) {
	case TypeKey:
		return typeSimilarity(req.Type, k.Type)
	case StructuralKey:
		return typeSimilarity(req.Type, k.Type)
	default:
		return scoreIncompatible
	}
}

func (k TypeKey) String() string {
	return fmt.Sprintf("type(%v)", k.Type)
}

func typeSimilarity(requested, candidate reflect.Type) int {
	if requested == nil || candidate == nil {
		return scoreIncompatible
	}

	if requested == candidate {
		return scoreTypeExact
	}

	if candidate.Kind() == reflect.Interface && requested.Implements(candidate) {
		return scoreTypeAssignable
	}

	return scoreIncompatible
}

// RawToken is the transport specific raw form of a request: a key value
// map for query string transports, a document for XML transports or a
// parsed tree for JSON transports. Exactly one of the fields is set.
type RawToken struct {
	Query    url.Values
	Document []byte
	JSON     json.RawMessage
}

// Decoder turns a raw token into an internal object, most often an
// operation request. Structural decoders may produce other objects,
// such as observation documents.
type Decoder interface {
	Decode(ctx context.Context, token RawToken) (any, error)
}

// Encoder turns an internal object into wire bytes and reports the
// content type it produced
type Encoder interface {
	Encode(ctx context.Context, obj any) ([]byte, string, error)
}

// Entry is one registered codec: its key, its capabilities and the
// conformance classes it declares
type Entry struct {
	Key                Key
	Decoder            Decoder
	Encoder            Encoder
	ConformanceClasses []string
}

// EncoderKeyFor builds the lookup key for encoding obj to the given
// media type
func EncoderKeyFor(obj any, mediaType string) StructuralKey {
	return StructuralKey{Namespace: mediaType, Type: reflect.TypeOf(obj)}
}
