// SPDX-License-Identifier: MIT

package config

import (
	"reflect"
	"strings"
	"time"
)

// sensitiveKeywords contains keywords that indicate sensitive fields.
// Any field name containing these keywords (case-insensitive) will be masked.
var sensitiveKeywords = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"apikey",
	"api_key",
	"engine_id",
	"credential",
	"auth",
}

// MaskSecrets recursively masks sensitive fields in the given data structure.
// It replaces values with "***" for fields matching sensitive keywords, so a
// dumped configuration can be shared or logged safely. Struct fields are keyed
// by their yaml tag when present so the result round-trips through yaml.Marshal
// with the same key names as the config file.
func MaskSecrets(data any) any {
	if data == nil {
		return nil
	}

	val := reflect.ValueOf(data)

	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		result := make(map[string]any)
		iter := val.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			value := iter.Value().Interface()

			if isSensitiveField(key) {
				result[key] = "***"
			} else {
				result[key] = MaskSecrets(value)
			}
		}
		return result

	case reflect.Slice, reflect.Array:
		length := val.Len()
		result := make([]any, length)
		for i := 0; i < length; i++ {
			result[i] = MaskSecrets(val.Index(i).Interface())
		}
		return result

	case reflect.Struct:
		result := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}

			name := yamlFieldName(field)
			if name == "-" {
				continue
			}

			if isSensitiveField(name) {
				result[name] = "***"
			} else {
				result[name] = MaskSecrets(val.Field(i).Interface())
			}
		}
		return result

	default:
		// Durations render as "15s" instead of raw nanoseconds.
		if d, ok := data.(time.Duration); ok {
			return d.String()
		}
		// Primitive types (string, int, bool, ...) pass through unchanged.
		return data
	}
}

// yamlFieldName returns the key a struct field serializes under: the first
// segment of its yaml tag, or the lowercased field name when untagged.
func yamlFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("yaml")
	if tag == "" {
		return strings.ToLower(field.Name)
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return strings.ToLower(field.Name)
	}
	return tag
}

// isSensitiveField checks if a key name contains any sensitive keyword.
func isSensitiveField(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}
