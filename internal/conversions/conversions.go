package conversions

import (
	"errors"
	"reflect"
	"strings"
)

// FieldNames lists the names of the exported fields of a struct, or pointer to
// a struct, in declaration order. The name is the first part of the tagName tag
// when present and the Go field name otherwise; fields tagged "-" are skipped.
func FieldNames(data interface{}, tagName string) ([]string, error) {
	v := reflect.ValueOf(data)

	// Dereference pointer if necessary
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, errors.New("nil pointer passed to FieldNames")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil, errors.New("FieldNames expects a struct or a pointer to a struct")
	}

	t := v.Type()
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// Skip unexported fields
		if field.PkgPath != "" {
			continue
		}

		key := strings.Split(field.Tag.Get(tagName), ",")[0]
		switch key {
		case "-":
			continue
		case "":
			key = field.Name
		}

		names = append(names, key)
	}

	return names, nil
}
