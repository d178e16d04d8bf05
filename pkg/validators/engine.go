// Package validators holds the attribute validators and converters shared by
// API plugins, plus the struct validation engine used for configuration.
package validators

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
)

var (
	engineOnce sync.Once
	engineInst *validator.Validate

	microversionPattern = regexp.MustCompile(`^\d+\.\d+$`)
)

// Engine returns the shared validator instance. Field names in errors use the
// yaml tag of the field. Extra tags: port_range, no_whitespace, microversion.
func Engine() *validator.Validate {
	engineOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return field.Name
			}
			return name
		})

		_ = v.RegisterValidation("port_range", func(fl validator.FieldLevel) bool {
			_, _, err := parsePortRange(fl.Field().String())
			return err == nil
		})

		_ = v.RegisterValidation("no_whitespace", func(fl validator.FieldLevel) bool {
			return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
		})

		_ = v.RegisterValidation("microversion", func(fl validator.FieldLevel) bool {
			return microversionPattern.MatchString(fl.Field().String())
		})

		engineInst = v
	})

	return engineInst
}

// Struct validates s with Engine and converts the first failure into a
// *neterrors.ValidationError named after the yaml path of the field.
func Struct(s interface{}) error {
	return ConvertError(Engine().Struct(s))
}

// ConvertError turns validator.ValidationErrors into a *neterrors.ValidationError.
func ConvertError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		fe := ves[0]
		field := fieldPath(fe)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed validation for tag '%s=%s'", field, fe.Tag(), fe.Param())
		}
		return neterrors.NewValidationError(field, msg, err)
	}

	return neterrors.NewValidationError("", err.Error(), err)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	if ns == "" {
		return fe.Field()
	}
	return ns
}

func parsePortRange(value string) (int, int, error) {
	if value == "" {
		return 0, 0, fmt.Errorf("empty port range")
	}
	lowStr, highStr, isRange := strings.Cut(value, ":")
	low, err := parsePort(lowStr)
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return low, low, nil
	}
	high, err := parsePort(highStr)
	if err != nil {
		return 0, 0, err
	}
	if low > high {
		return 0, 0, fmt.Errorf("port range %q is reversed", value)
	}
	return low, high, nil
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", value)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}
