package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// setting is one leaf of Config addressed by its dotted key, e.g.
// "vapi.shape_order". Fields tagged config:"secret" are masked on display.
type setting struct {
	key    string
	secret bool
	value  reflect.Value
}

func settings(cfg *Config) []setting {
	var out []setting
	collect("", reflect.ValueOf(cfg).Elem(), &out)
	return out
}

func collect(prefix string, v reflect.Value, out *[]setting) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if sf.Type.Kind() == reflect.Struct {
			collect(name, v.Field(i), out)
			continue
		}
		*out = append(*out, setting{key: name, secret: sf.Tag.Get("config") == "secret", value: v.Field(i)})
	}
}

func lookup(cfg *Config, key string) (setting, bool) {
	for _, s := range settings(cfg) {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

// Keys lists every settable key in sorted order.
func Keys() []string {
	all := settings(defaults())
	keys := make([]string, len(all))
	for i, s := range all {
		keys[i] = s.key
	}
	sort.Strings(keys)
	return keys
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	s, ok := lookup(defaults(), key)
	return ok && s.secret
}

// Values returns every setting of cfg by key. With mask set, credentials
// are shown as "***" plus their last four characters.
func Values(cfg *Config, mask bool) map[string]any {
	out := make(map[string]any)
	for _, s := range settings(cfg) {
		v := s.value.Interface()
		if mask && s.secret {
			v = maskSecret(s.value.String())
		}
		out[s.key] = v
	}
	return out
}

func maskSecret(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 4:
		return "***" + v
	default:
		return "***" + v[len(v)-4:]
	}
}

// assign parses raw according to the setting's type. Lists accept a JSON
// array or comma-separated names.
func (s setting) assign(raw string) error {
	v := s.value
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", raw)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v.OverflowInt(n) {
			return fmt.Errorf("expected an integer, got %q", raw)
		}
		v.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("expected a number, got %q", raw)
		}
		v.SetFloat(f)
	case reflect.Slice:
		list, err := parseList(raw)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(list))
	default:
		return fmt.Errorf("unsupported setting type %s", v.Kind())
	}
	return nil
}

func parseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("parse list: %w", err)
		}
		return list, nil
	}
	var list []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list, nil
}
