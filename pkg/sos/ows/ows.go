package ows

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel targets for the error kinds that the dispatch engine switches
// on. Wrapped errors carry the detail, these carry the identity.
var ErrConfiguration = fmt.Errorf("configuration error")
var ErrAmbiguousCodec = fmt.Errorf("ambiguous codec")
var ErrNoCodec = fmt.Errorf("no codec for key")
var ErrNoDecoder = fmt.Errorf("no decoder for key")
var ErrNoEncoder = fmt.Errorf("no encoder for key")
var ErrUnsupportedInput = fmt.Errorf("unsupported input")
var ErrModifier = fmt.Errorf("modifier rejected request")
var ErrBackingStore = fmt.Errorf("backing store failure")
var ErrInvalidRequest = fmt.Errorf("invalid request")
var ErrNotFound = fmt.Errorf("not found")
var ErrUnauthorized = fmt.Errorf("unauthorized")

type owsError struct {
	msg     string
	locator string
	target  error
}

func (e owsError) Error() string        { return e.msg }
func (e owsError) Is(target error) bool { return target == e.target }

// Locator returns the request parameter or operation that caused the error
func (e owsError) Locator() string { return e.locator }

func newError(target error, locator, msg string) error {
	return &owsError{msg: msg, locator: locator, target: target}
}

func NewNoDecoderError(locator, msg string) error {
	return newError(ErrNoDecoder, locator, msg)
}

func NewNoEncoderError(locator, msg string) error {
	return newError(ErrNoEncoder, locator, msg)
}

func NewUnsupportedInputError(locator, msg string) error {
	return newError(ErrUnsupportedInput, locator, msg)
}

func NewModifierError(locator, msg string) error {
	return newError(ErrModifier, locator, msg)
}

func NewBackingStoreError(msg string) error {
	return newError(ErrBackingStore, "", msg)
}

func NewInvalidRequestError(locator, msg string) error {
	return newError(ErrInvalidRequest, locator, msg)
}

func NewNotFoundError(locator, msg string) error {
	return newError(ErrNotFound, locator, msg)
}

func NewUnauthorizedError(msg string) error {
	return newError(ErrUnauthorized, "", msg)
}

// Exception codes from the OWS common taxonomy
const (
	OperationNotSupported string = "OperationNotSupported"
	InvalidParameterValue string = "InvalidParameterValue"
	MissingParameterValue string = "MissingParameterValue"
	OptionNotSupported    string = "OptionNotSupported"
	InvalidRequest        string = "InvalidRequest"
	RequestNotFound       string = "RequestNotFound"
	AccessDenied          string = "AccessDenied"
	NoApplicableCode      string = "NoApplicableCode"
)

// ExceptionReport is the structured error envelope returned to callers.
// It is encoded through the same registry and encoder plugins as any
// other response object.
type ExceptionReport struct {
	XMLName xml.Name `xml:"ows:ExceptionReport" json:"-"`
	Version string   `xml:"version,attr" json:"version"`
	Code    string   `xml:"Exception>exceptionCode" json:"code"`
	Locator string   `xml:"Exception>locator,omitempty" json:"locator,omitempty"`
	Text    string   `xml:"Exception>ExceptionText" json:"text"`

	status int
}

// Status returns the transport status code mapped from the error severity
func (r *ExceptionReport) Status() int {
	if r.status != 0 {
		return r.status
	}

	return http.StatusBadRequest
}

func newReport(code, locator, text string, status int) *ExceptionReport {
	return &ExceptionReport{
		Version: "1.0.0",
		Code:    code,
		Locator: locator,
		Text:    text,
		status:  status,
	}
}

func NewOperationNotSupported(locator, text string) *ExceptionReport {
	return newReport(OperationNotSupported, locator, text, http.StatusBadRequest)
}

func NewInvalidParameterValue(locator, text string) *ExceptionReport {
	return newReport(InvalidParameterValue, locator, text, http.StatusBadRequest)
}

func NewMissingParameterValue(locator, text string) *ExceptionReport {
	return newReport(MissingParameterValue, locator, text, http.StatusBadRequest)
}

func NewOptionNotSupported(locator, text string) *ExceptionReport {
	return newReport(OptionNotSupported, locator, text, http.StatusBadRequest)
}

func NewAccessDenied(text string) *ExceptionReport {
	return newReport(AccessDenied, "", text, http.StatusUnauthorized)
}

func NewNoApplicableCode(text string) *ExceptionReport {
	return newReport(NoApplicableCode, "", text, http.StatusInternalServerError)
}

type locatable interface {
	Locator() string
}

// NewReportFromError translates any error surfaced by the dispatch engine
// into an exception report. Server side failures are reported with a
// generic message so that no internal error text leaks to the caller.
func NewReportFromError(err error) *ExceptionReport {
	locator := ""

	var loc locatable
	if errors.As(err, &loc) {
		locator = loc.Locator()
	}

	switch {
	case errors.Is(err, ErrNoDecoder) || errors.Is(err, ErrNoCodec):
		return newReport(OperationNotSupported, locator, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNoEncoder):
		return newReport(OptionNotSupported, locator, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrUnsupportedInput):
		return newReport(InvalidRequest, locator, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrModifier):
		return newReport(InvalidParameterValue, locator, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInvalidRequest):
		return newReport(InvalidRequest, locator, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		return newReport(RequestNotFound, locator, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrUnauthorized):
		return NewAccessDenied(err.Error())
	case errors.Is(err, ErrBackingStore):
		return NewNoApplicableCode("an internal error occurred while processing the request")
	default:
		return NewNoApplicableCode("an internal error occurred while processing the request")
	}
}

// NewErrorFromReport is the client side inverse of NewReportFromError,
// turning a received exception report back into a matchable error
func NewErrorFromReport(report ExceptionReport) error {
	switch report.Code {
	case OperationNotSupported:
		return newError(ErrNoDecoder, report.Locator, report.Text)
	case OptionNotSupported:
		return newError(ErrNoEncoder, report.Locator, report.Text)
	case InvalidRequest, InvalidParameterValue, MissingParameterValue:
		return newError(ErrInvalidRequest, report.Locator, report.Text)
	case RequestNotFound:
		return newError(ErrNotFound, report.Locator, report.Text)
	case AccessDenied:
		return newError(ErrUnauthorized, report.Locator, report.Text)
	default:
		return newError(ErrBackingStore, report.Locator, report.Text)
	}
}

// MarshalJSON flattens the report into the json exception format
func (r *ExceptionReport) MarshalJSON() ([]byte, error) {
	var locator *string

	if r.Locator != "" {
		locator = &r.Locator
	}

	return json.Marshal(struct {
		Version string  `json:"version"`
		Code    string  `json:"code"`
		Locator *string `json:"locator,omitempty"`
		Text    string  `json:"text"`
	}{
		Version: r.Version,
		Code:    r.Code,
		Locator: locator,
		Text:    r.Text,
	})
}
