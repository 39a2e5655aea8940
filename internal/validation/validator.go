package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single failed constraint.
type FieldError struct {
	Field string // dotted path, e.g. "author.name"
	Tag   string // the tag that failed, e.g. "required"
	Param string // tag parameter, e.g. "3" for min=3
}

func (e FieldError) Error() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("field %s is required", e.Field)
	case "email":
		return fmt.Sprintf("field %s must be a valid email address", e.Field)
	case "unknown":
		return fmt.Sprintf("field %s is not allowed", e.Field)
	case "string", "number", "integer", "boolean", "array", "object":
		return fmt.Sprintf("field %s must be of type %s", e.Field, e.Tag)
	case "isodate":
		return fmt.Sprintf("field %s must be an RFC 3339 date", e.Field)
	case "min", "max", "len":
		return fmt.Sprintf("field %s must satisfy %s=%s", e.Field, e.Tag, e.Param)
	default:
		return fmt.Sprintf("field %s is invalid", e.Field)
	}
}

// Errors collects every failed constraint of one payload.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, ", ")
}

// Validator checks payloads against rule sets. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the package's type tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("string", kindIs(reflect.String))
	_ = v.RegisterValidation("boolean", kindIs(reflect.Bool))
	_ = v.RegisterValidation("array", kindIs(reflect.Slice, reflect.Array))
	_ = v.RegisterValidation("number", isNumber)
	_ = v.RegisterValidation("integer", isInteger)
	_ = v.RegisterValidation("isodate", isISODate)

	return &Validator{validate: v}
}

// Validate checks payload against rules and returns nil or an Errors value.
// Keys in payload that have no rule are rejected.
func (v *Validator) Validate(rules RuleSet, payload map[string]any) error {
	errs := v.validateSet("", rules, payload)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (v *Validator) validateSet(prefix string, rules RuleSet, payload map[string]any) Errors {
	var errs Errors

	for _, key := range sortedKeys(payload) {
		if _, ok := rules[key]; !ok {
			errs = append(errs, FieldError{Field: prefix + key, Tag: "unknown"})
		}
	}

	for _, name := range rules.Fields() {
		value, present := payload[name]
		errs = append(errs, v.check(prefix+name, rules[name], value, present)...)
	}

	return errs
}

func (v *Validator) check(path string, rule *Rule, value any, present bool) Errors {
	if rule == nil {
		return nil
	}

	// Mandatory means present and non-null; zero values such as false or 0
	// are accepted.
	if !present || value == nil {
		if rule.mandatory {
			return Errors{{Field: path, Tag: "required"}}
		}
		return nil
	}

	if rule.shape != nil {
		obj, ok := value.(map[string]any)
		if !ok {
			return Errors{{Field: path, Tag: "object"}}
		}
		return v.validateSet(path+".", rule.shape, obj)
	}

	if rule.tag == "" {
		return nil
	}

	return v.varSafe(path, value, rule.tag)
}

// varSafe runs a single tag check. Some built-in validator tags panic when
// handed a value of the wrong kind; that is reported as a type failure.
func (v *Validator) varSafe(path string, value any, tag string) (errs Errors) {
	defer func() {
		if r := recover(); r != nil {
			errs = Errors{{Field: path, Tag: "type"}}
		}
	}()

	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{{Field: path, Tag: "invalid"}}
	}
	for _, fe := range verrs {
		errs = append(errs, FieldError{Field: path, Tag: fe.ActualTag(), Param: fe.Param()})
	}
	return errs
}

func kindIs(kinds ...reflect.Kind) validator.Func {
	return func(fl validator.FieldLevel) bool {
		k := fl.Field().Kind()
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}
}

func isNumber(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isInteger(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return f.Uint() <= math.MaxInt64
	case reflect.Float32, reflect.Float64:
		n := f.Float()
		return n == math.Trunc(n) && math.Abs(n) <= maxSafeInteger
	}
	return false
}

// maxSafeInteger bounds integers that arrive as JSON numbers (float64).
// Beyond it neighbouring integers are no longer distinct.
const maxSafeInteger = 1 << 53

func isISODate(fl validator.FieldLevel) bool {
	f := fl.Field()
	if t, ok := f.Interface().(time.Time); ok {
		return !t.IsZero()
	}
	if f.Kind() != reflect.String {
		return false
	}
	_, err := time.Parse(time.RFC3339Nano, f.String())
	return err == nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
