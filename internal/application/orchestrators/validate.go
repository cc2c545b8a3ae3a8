package orchestrators

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrInvalidInput is wrapped by every InputError.
var ErrInvalidInput = errors.New("invalid input")

// InputError lists the request fields that failed validation, keyed by their
// JSON name, with the failing rule as the value.
type InputError struct {
	Fields map[string]string
	domain error // optional domain sentinel also matched by errors.Is
}

func (e *InputError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s (%s)", k, e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// Unwrap lets errors.Is match ErrInvalidInput and the domain sentinel.
func (e *InputError) Unwrap() []error {
	if e.domain != nil {
		return []error{ErrInvalidInput, e.domain}
	}
	return []error{ErrInvalidInput}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// Decimals validate as floats so gt/gte rules apply to money fields.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	return v
}

// checkInput validates struct tags on an orchestrator input. A non-nil
// domainErr is attached so callers can match it with errors.Is.
func checkInput(input any, domainErr error) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &InputError{Fields: fields, domain: domainErr}
}

// Clock supplies the current instant and the business zone used to turn it
// into a calendar date.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Clock) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}
