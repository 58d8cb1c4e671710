package http

import (
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/example/lodging-scheduler/internal/application"
	"github.com/example/lodging-scheduler/internal/civil"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates it. Malformed bodies
// return errBadRequestBody; rule violations return a ValidationError.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errBadRequestBody
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, exists := fields[fe.Field()]; !exists {
			fields[fe.Field()] = ruleMessage(fe)
		}
	}
	return &application.ValidationError{FieldErrors: fields}
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must use the format " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

// fieldErrors accumulates problems found while reading query and path values.
type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &application.ValidationError{FieldErrors: f}
}

func (f fieldErrors) date(field, value string, required bool) civil.Date {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			f.add(field, "is required")
		}
		return civil.Date{}
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		f.add(field, "must use the format 2006-01-02")
	}
	return d
}

func (f fieldErrors) clock(field, value string) *civil.Clock {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	c, err := civil.ParseClock(value)
	if err != nil {
		f.add(field, "must use the format 15:04")
		return nil
	}
	return &c
}

func (f fieldErrors) nonNegativeInt(field, value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		f.add(field, "must be a non-negative integer")
		return 0
	}
	return n
}

// intervalRequest is the JSON shape of a stay interval.
type intervalRequest struct {
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	ClockStart string `json:"clock_start" validate:"omitempty,datetime=15:04"`
	ClockEnd   string `json:"clock_end" validate:"omitempty,datetime=15:04"`
}

func (i intervalRequest) toInterval() (application.Interval, error) {
	f := fieldErrors{}
	interval := application.Interval{
		StartDate:  f.date("start_date", i.StartDate, true),
		EndDate:    f.date("end_date", i.EndDate, false),
		ClockStart: f.clock("clock_start", i.ClockStart),
		ClockEnd:   f.clock("clock_end", i.ClockEnd),
	}
	return interval, f.err()
}

func intervalFromQuery(q url.Values, f fieldErrors) application.Interval {
	return application.Interval{
		StartDate:  f.date("start_date", q.Get("start_date"), true),
		EndDate:    f.date("end_date", q.Get("end_date"), false),
		ClockStart: f.clock("clock_start", q.Get("clock_start")),
		ClockEnd:   f.clock("clock_end", q.Get("clock_end")),
	}
}

func formatClockPtr(c *civil.Clock) *string {
	if c == nil {
		return nil
	}
	s := c.String()
	return &s
}
