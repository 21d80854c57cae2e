// Package validation turns request binding failures into client-facing messages and checks
// participant input that struct tags cannot express: skill lists, profile links, JSON
// preference blobs and API key expiry. Handlers bind with gin, then pass any error through
// BindingMessage so every 400 names the offending field.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// DefaultBindingMessage is returned for bodies that cannot be decoded at all
const DefaultBindingMessage = "Invalid request body"

func init() {
	// Report json/form names instead of Go field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(tagName)
	}
}

func tagName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// BindingMessage converts an error from ShouldBindJSON or ShouldBindQuery into the message
// returned with a 400. Only the first failing field is reported.
func BindingMessage(err error) string {
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return FieldMessage(verrs[0])
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%q must be of type %s", typeErr.Field, jsonKind(typeErr.Type))
	}

	return DefaultBindingMessage
}

// FieldMessage renders one validator failure
func FieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "url", "uri", "http_url":
		return fmt.Sprintf("%q must be a valid uri", field)
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return boundMessage(fe, "greater than or equal to")
	case "max", "lte":
		return boundMessage(fe, "less than or equal to")
	case "dive":
		return fmt.Sprintf("%q contains an invalid item", field)
	}
	return fmt.Sprintf("%q is invalid", field)
}

func boundMessage(fe validator.FieldError, relation string) string {
	switch fe.Kind() {
	case reflect.String:
		return fmt.Sprintf("%q length must be %s %s characters long", fe.Field(), relation, fe.Param())
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("%q must contain %s %s items", fe.Field(), relation, fe.Param())
	}
	return fmt.Sprintf("%q must be %s %s", fe.Field(), relation, fe.Param())
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	}
	return t.String()
}
