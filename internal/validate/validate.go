// Package validate checks and sanitizes request forms. Every problem is
// recorded in an apperr.List so one response can report all of them.
package validate

import (
	"errors"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
)

var v = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their form name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Messages maps "<field>.<tag>" to the message reported when that rule
// fails.
type Messages map[string]string

// Struct trims every string field of form (a pointer to a struct), runs
// its validate tags and records the first failing rule of each field in
// errs. Rules of a field are checked in order and stop at the first
// failure.
func Struct(form any, msgs Messages, errs *apperr.List) {
	Trim(form)

	err := v.Struct(form)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		msg, ok := msgs[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value."
		}
		errs.Add(fe.Field(), msg)
	}
}

// Trim removes surrounding whitespace from every string field of form.
func Trim(form any) {
	rv := reflect.ValueOf(form)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

// Escape HTML-escapes each of the given fields in place.
func Escape(fields ...*string) {
	for _, f := range fields {
		*f = html.EscapeString(*f)
	}
}
