package library

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so messages match the snapshot files.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("isbn", func(fl validator.FieldLevel) bool {
		return validISBN(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		n := len(digitsOnly(fl.Field().String()))
		return n >= 8 && n <= 12
	})
	_ = v.RegisterValidation("letters", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
				return false
			}
		}
		return true
	})
	return v
}

// checkStruct runs the tag rules of s and records every failure in p.
func checkStruct(s any, p problems) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		p.check(false, "record", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		p.check(false, fe.Field(), describe(fe))
	}
}

func describe(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "must be provided"
	case "min", "gte":
		if isString {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		if isString {
			return fmt.Sprintf("must not be more than %s characters long", fe.Param())
		}
		return fmt.Sprintf("must not be more than %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "isbn":
		return "must have 10 or 13 digits"
	case "phone":
		return "must contain between 8 and 12 digits"
	case "letters":
		return "must contain only letters and spaces"
	default:
		return "is invalid"
	}
}

func validISBN(s string) bool {
	key := isbnKey(s)
	switch len(key) {
	case 13:
		return allDigits(key)
	case 10:
		return allDigits(key[:9]) && (unicode.IsDigit(rune(key[9])) || key[9] == 'X')
	default:
		return false
	}
}

// isbnKey is the comparison form of an ISBN: separators removed, upper case.
func isbnKey(s string) string {
	r := strings.NewReplacer("-", "", " ", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(s)))
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fold lower-cases s and strips diacritics so "Maestría" matches "maestria".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// civilDay numbers the calendar date of t, ignoring the time of day.
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// daysBetween counts calendar days from a to b (negative when b is earlier).
func daysBetween(a, b time.Time) int {
	return int(civilDay(b) - civilDay(a))
}

func ageAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Before(birth.AddDate(age, 0, 0)) {
		age--
	}
	return age
}
