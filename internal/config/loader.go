package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from environment variables, applies defaults for
// unset values and validates the result.
func Load() (*Config, error) {
	return LoadWith(os.LookupEnv)
}

// LoadWith is Load with a custom variable source.
func LoadWith(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}
	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadStruct populates the fields of v tagged `env`, recursing into nested
// section structs. `envAlt` names a fallback variable and `default` the value
// used when neither is set.
func loadStruct(v reflect.Value, lookup LookupFunc) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv, lookup); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		value := firstSet(lookup, name, field.Tag.Get("envAlt"))
		if value == "" {
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}
		if err := setField(fv, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}
	return nil
}

// firstSet returns the first non-empty value among the named variables.
func firstSet(lookup LookupFunc, names ...string) string {
	for _, n := range names {
		if n == "" {
			continue
		}
		if v, _ := lookup(n); v != "" {
			return v
		}
	}
	return ""
}

var durationType = reflect.TypeOf(time.Duration(0))

// setField parses value into the kinds Config uses: strings, integers,
// durations, booleans and comma-separated string lists.
func setField(field reflect.Value, value string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
	case field.Kind() == reflect.String:
		field.SetString(value)
	case field.Kind() == reflect.Int || field.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		var list []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		field.Set(reflect.ValueOf(list))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}
