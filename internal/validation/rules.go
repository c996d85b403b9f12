package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// specialSet is the character class shared by the name and password rules.
// Comma and pipe are spelled 0x2C and 0x7C because they separate tags.
const specialSet = `!@#$%^&*()_-+=[]{};:'"\0x7C0x2C.<>/?`

const (
	upperSet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitSet = "0123456789"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[A-Za-z]{2,}$`)
	colorPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("notblank", validators.NotBlank)
	// The built-in email and hexcolor tags are looser than the address and
	// #RGB/#RRGGBB shapes accepted here.
	must("mailaddr", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	must("rgbcolor", func(fl validator.FieldLevel) bool {
		return colorPattern.MatchString(fl.Field().String())
	})
	return v
}

// kindOf maps a failed validator tag onto an error kind. Length bounds keep
// the kind chosen by the rule.
func kindOf(fe validator.FieldError, fallback Kind) Kind {
	switch fe.Tag() {
	case "oneof":
		return InvalidEnum
	case "mailaddr", "rgbcolor", "excludesall", "containsany":
		return InvalidFormat
	default:
		return fallback
	}
}

// check runs one validator tag against value and reports the first failure
// as a *Error on in.Field.
func check(in Input, value any, tag string, kind Kind, format string, args ...any) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if errors.As(err, &fes) && len(fes) > 0 {
		kind = kindOf(fes[0], kind)
	}
	return newError(in.Field, kind, format, args...)
}

// Length returns a rule enforcing a rune length between min and max inclusive.
func Length(min, max int, kind Kind) Func {
	tag := fmt.Sprintf("min=%d,max=%d", min, max)
	return func(in Input) error {
		s, err := requireString(in, kind)
		if err != nil {
			return err
		}
		return check(in, s, tag, kind, "%s must be between %d and %d characters", in.Field, min, max)
	}
}

// NotBlank rejects strings that are empty once surrounding whitespace is removed.
func NotBlank(kind Kind) Func {
	return func(in Input) error {
		s, err := requireString(in, kind)
		if err != nil {
			return err
		}
		return check(in, s, "notblank", kind, "%s cannot be empty", in.Field)
	}
}

// NoSpecialChars rejects any character from the special set.
func NoSpecialChars(in Input) error {
	s, err := requireString(in, InvalidFormat)
	if err != nil {
		return err
	}
	return check(in, s, "excludesall="+specialSet, InvalidFormat, "%s cannot contain special characters", in.Field)
}

// NoDigits rejects any decimal digit.
func NoDigits(in Input) error {
	s, err := requireString(in, InvalidFormat)
	if err != nil {
		return err
	}
	return check(in, s, "excludesall="+digitSet, InvalidFormat, "%s cannot contain numbers", in.Field)
}

// Email accepts the local@domain.tld shape with a two letter or longer TLD.
func Email(in Input) error {
	s, err := requireString(in, InvalidFormat)
	if err != nil {
		return err
	}
	return check(in, s, "mailaddr", InvalidFormat, "%s must be a valid email address", in.Field)
}

// PasswordStrength requires an uppercase letter, a digit and a special
// character, reported in that order.
func PasswordStrength(in Input) error {
	s, err := requireString(in, InvalidFormat)
	if err != nil {
		return err
	}
	if err := check(in, s, "containsany="+upperSet, InvalidFormat, "%s must contain at least one uppercase letter", in.Field); err != nil {
		return err
	}
	if err := check(in, s, "containsany="+digitSet, InvalidFormat, "%s must contain at least one number", in.Field); err != nil {
		return err
	}
	return check(in, s, "containsany="+specialSet, InvalidFormat, "%s must contain at least one special character", in.Field)
}

// HexColor accepts #RGB and #RRGGBB.
func HexColor(in Input) error {
	s, err := requireString(in, InvalidFormat)
	if err != nil {
		return err
	}
	return check(in, s, "rgbcolor", InvalidFormat, "%s must be a valid hex color code", in.Field)
}

// OneOf restricts a value to a closed set. Null is rejected.
func OneOf[T ~string](allowed ...T) Func {
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	tag := "oneof=" + strings.Join(names, " ")
	list := strings.Join(names, ", ")
	return func(in Input) error {
		s, err := requireString(in, InvalidEnum)
		if err != nil {
			return err
		}
		return check(in, s, tag, InvalidEnum, "%s must be one of: %s", in.Field, list)
	}
}

// InFuture requires a timestamp strictly after the validation clock.
func InFuture(in Input) error {
	t, ok := timeValue(in.Value)
	if !ok {
		return newError(in.Field, OutOfRange, "%s is required", in.Field)
	}
	if !t.After(in.Now) {
		return newError(in.Field, OutOfRange, "%s must be in the future", in.Field)
	}
	return nil
}

// Date requires a non-zero timestamp.
func Date(in Input) error {
	if _, ok := timeValue(in.Value); !ok {
		return newError(in.Field, OutOfRange, "%s must be a valid date", in.Field)
	}
	return nil
}

// After returns a rule requiring the value to be strictly later than the
// sibling field. A missing value passes; a missing sibling passes too.
func After(sibling string) Func {
	return func(in Input) error {
		if isNil(in.Value) {
			return nil
		}
		t, ok := timeValue(in.Value)
		if !ok {
			return newError(in.Field, OutOfRange, "%s must be a valid date", in.Field)
		}
		raw, found := in.Sibling(sibling)
		if !found {
			return nil
		}
		ref, ok := timeValue(raw)
		if !ok {
			return nil
		}
		if !t.After(ref) {
			return newError(in.Field, OutOfRange, "%s must be after %s", in.Field, sibling)
		}
		return nil
	}
}

// Required rejects missing or non-positive identifiers.
func Required(in Input) error {
	if isNil(in.Value) {
		return newError(in.Field, OutOfRange, "%s is required", in.Field)
	}
	switch reflect.ValueOf(in.Value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Float32, reflect.Float64:
		return check(in, in.Value, "gt=0", OutOfRange, "%s is required", in.Field)
	}
	return newError(in.Field, OutOfRange, "%s must be an identifier", in.Field)
}

// Text accepts any string, or null.
func Text(in Input) error {
	if isNil(in.Value) {
		return nil
	}
	_, err := requireString(in, InvalidFormat)
	return err
}

// Optional wraps a rule so null values are accepted.
func Optional(fn Func) Func {
	return func(in Input) error {
		if isNil(in.Value) {
			return nil
		}
		return fn(in)
	}
}

// NormalizeEmail trims and lower-cases an address before it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// requireString unwraps a string value, reporting null or a non-string with
// the rule's kind.
func requireString(in Input, kind Kind) (string, error) {
	if isNil(in.Value) {
		return "", newError(in.Field, kind, "%s cannot be null", in.Field)
	}
	s, ok := stringValue(in.Value)
	if !ok {
		return "", newError(in.Field, kind, "%s must be a string", in.Field)
	}
	return s, nil
}

func stringValue(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}

func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
