package domain

import (
	"fmt"
	"sort"
)

type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldBool   FieldType = "bool"
	FieldList   FieldType = "list"
)

type FieldSpec struct {
	Type     FieldType `yaml:"type" json:"type"`
	Required bool      `yaml:"required" json:"required"`
}

// FieldSchema схема шаблон-специфичных полей, ключ = имя поля.
type FieldSchema map[string]FieldSpec

// ValidateCustomFields отклоняет неизвестные ключи на границе, вместо того чтобы молча их хранить.
// Пустая схема означает, что шаблон не принимает дополнительных полей.
func ValidateCustomFields(schema FieldSchema, fields map[string]any) []FieldError {
	var errs []FieldError

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		spec, ok := schema[k]
		if !ok {
			errs = append(errs, FieldError{Field: "custom_fields." + k, Message: "unknown field for template"})
			continue
		}
		if !matchesType(spec.Type, fields[k]) {
			errs = append(errs, FieldError{Field: "custom_fields." + k, Message: fmt.Sprintf("must be of type %s", spec.Type)})
		}
	}

	required := make([]string, 0)
	for k, spec := range schema {
		if spec.Required {
			required = append(required, k)
		}
	}
	sort.Strings(required)
	for _, k := range required {
		if _, ok := fields[k]; !ok {
			errs = append(errs, FieldError{Field: "custom_fields." + k, Message: "is required"})
		}
	}
	return errs
}

func matchesType(t FieldType, v any) bool {
	switch t {
	case FieldString:
		_, ok := v.(string)
		return ok
	case FieldNumber:
		switch v.(type) {
		case float64, float32, int, int64, int32:
			return true
		}
		return false
	case FieldBool:
		_, ok := v.(bool)
		return ok
	case FieldList:
		switch v.(type) {
		case []any, []string:
			return true
		}
		return false
	}
	return false
}
