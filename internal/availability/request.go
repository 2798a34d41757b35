package availability

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/flohan/hotelrunner/internal/currency"
	"github.com/flohan/hotelrunner/pkg/utils"
)

// Guest limits per request.
const (
	MinAdults   = 1
	MaxAdults   = 8
	MaxChildren = 8
)

// RequestInput is the wire form of an availability query.
type RequestInput struct {
	CheckIn  string `json:"check_in"  validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
	Adults   *int   `json:"adults"    validate:"required,min=1,max=8"`
	Children *int   `json:"children"  validate:"omitempty,min=0,max=8"`
	Currency string `json:"currency"  validate:"omitempty,len=3,alpha"`
}

// Request is a validated availability query. It can only be built with
// NewRequest and never changes afterwards.
type Request struct {
	checkIn  time.Time
	checkOut time.Time
	adults   int
	children int
	currency string
}

func (r Request) CheckIn() time.Time  { return r.checkIn }
func (r Request) CheckOut() time.Time { return r.checkOut }
func (r Request) Adults() int         { return r.adults }
func (r Request) Children() int       { return r.children }

// Currency is the requested currency, upper-cased, or "" if none was given.
func (r Request) Currency() string { return r.currency }

// Nights is the exact number of nights between check-in and check-out.
func (r Request) Nights() int { return utils.DaysBetween(r.checkIn, r.checkOut) }

// FieldViolation describes one invalid input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Fields []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid availability request: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateStay, RequestInput{})
	return v
}

// validateStay requires check_out to be strictly after check_in. Unparseable
// dates are already reported by the field rules.
func validateStay(sl validator.StructLevel) {
	in := sl.Current().Interface().(RequestInput)
	start, errIn := utils.ParseDate(in.CheckIn)
	end, errOut := utils.ParseDate(in.CheckOut)
	if errIn != nil || errOut != nil {
		return
	}
	if !end.After(start) {
		sl.ReportError(in.CheckOut, "check_out", "CheckOut", "after_check_in", "")
	}
}

// NewRequest validates in and returns the immutable request. On failure the
// error is a *ValidationError naming every offending field.
func NewRequest(in RequestInput) (Request, error) {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Request{}, fmt.Errorf("validate request: %w", err)
		}
		out := &ValidationError{Fields: make([]FieldViolation, 0, len(verrs))}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, FieldViolation{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Message: violationMessage(fe),
			})
		}
		return Request{}, out
	}

	// Both dates passed the datetime rule above.
	start, _ := utils.ParseDate(in.CheckIn)
	end, _ := utils.ParseDate(in.CheckOut)
	req := Request{
		checkIn:  start,
		checkOut: end,
		adults:   *in.Adults,
		currency: currency.Normalize(in.Currency),
	}
	if in.Children != nil {
		req.children = *in.Children
	}
	return req, nil
}

// fieldOrder is the order violations are reported in.
var fieldOrder = map[string]int{"check_in": 0, "check_out": 1, "adults": 2, "children": 3, "currency": 4}

// DecodeRequest builds a request from the fields of a JSON object. A value
// of the wrong JSON type is a "type" violation and is reported together
// with the rule violations of the other fields.
func DecodeRequest(fields map[string]json.RawMessage) (Request, error) {
	var in RequestInput
	var typed []FieldViolation
	decodeField(fields, "check_in", "must be a string", &in.CheckIn, &typed)
	decodeField(fields, "check_out", "must be a string", &in.CheckOut, &typed)
	decodeField(fields, "adults", "must be an integer", &in.Adults, &typed)
	decodeField(fields, "children", "must be an integer", &in.Children, &typed)
	decodeField(fields, "currency", "must be a string", &in.Currency, &typed)

	req, err := NewRequest(in)
	if len(typed) == 0 {
		return req, err
	}

	bad := make(map[string]bool, len(typed))
	for _, f := range typed {
		bad[f.Field] = true
	}
	out := &ValidationError{Fields: typed}
	var verr *ValidationError
	if errors.As(err, &verr) {
		// A mistyped field also fails "required"; keep only the type violation.
		for _, f := range verr.Fields {
			if !bad[f.Field] {
				out.Fields = append(out.Fields, f)
			}
		}
	} else if err != nil {
		return Request{}, err
	}
	sort.SliceStable(out.Fields, func(i, j int) bool {
		return fieldOrder[out.Fields[i].Field] < fieldOrder[out.Fields[j].Field]
	})
	return Request{}, out
}

// decodeField unmarshals fields[name] into dst. dst is left untouched when
// the value has the wrong type.
func decodeField[T any](fields map[string]json.RawMessage, name, msg string, dst *T, violations *[]FieldViolation) {
	raw, ok := fields[name]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		*violations = append(*violations, FieldViolation{Field: name, Rule: "type", Message: msg})
		return
	}
	*dst = v
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "alpha":
		return "must contain letters only"
	case "after_check_in":
		return "must be after check_in"
	}
	return "is invalid (" + fe.Tag() + ")"
}
