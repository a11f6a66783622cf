package validation

import (
	"reflect"
	"regexp"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var resourceNameRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// registerRules registers the tags used in struct tags across the service.
func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("resource_name", isResourceName); err != nil {
		return err
	}
	if err := v.RegisterValidation("date_after", isDateAfterField); err != nil {
		return err
	}
	return nil
}

// isResourceName accepts backend collection names such as "produits" or
// "commandes-rapides".
func isResourceName(fl validator.FieldLevel) bool {
	return resourceNameRe.MatchString(fl.Field().String())
}

// isDateAfterField checks that a YYYY-MM-DD date is strictly after the date
// held by the sibling field named in the tag param. An empty or null sibling
// passes.
func isDateAfterField(fl validator.FieldLevel) bool {
	value, ok := dateOf(fl.Field())
	if !ok {
		return false
	}
	other := fl.Parent().FieldByName(fl.Param())
	if !other.IsValid() {
		return false
	}
	bound, ok := dateOf(other)
	if !ok {
		return true
	}
	return value.After(bound)
}

func dateOf(field reflect.Value) (time.Time, bool) {
	var s string
	switch field.Kind() {
	case reflect.String:
		s = field.String()
	case reflect.Ptr:
		if field.IsNil() {
			return time.Time{}, false
		}
		return dateOf(field.Elem())
	case reflect.Struct:
		switch val := field.Interface().(type) {
		case null.String:
			if !val.Valid {
				return time.Time{}, false
			}
			s = val.String
		case null.Time:
			return val.Time, val.Valid
		case time.Time:
			return val, !val.IsZero()
		default:
			return time.Time{}, false
		}
	default:
		return time.Time{}, false
	}
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
