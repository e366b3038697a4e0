package bind

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"

	perr "ottscout/internal/platform/errors"
)

// Query fills T's exported fields from URL query parameters, then validates T
// The parameter name is the query tag, else the json tag, else the field name
// Supported kinds are string, bool, ints and comma separated []string
func Query[T any](r *http.Request) (T, error) {
	var dst T
	rv := reflect.ValueOf(&dst).Elem()
	if rv.Kind() != reflect.Struct {
		return dst, perr.Newf(perr.ErrorCodeUnknown, "bind.Query needs a struct, got %s", rv.Kind())
	}
	q := r.URL.Query()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := paramName(sf)
		if name == "-" || !q.Has(name) {
			continue
		}
		raw := strings.TrimSpace(q.Get(name))
		if err := setField(rv.Field(i), raw); err != nil {
			return dst, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s: %v", name, err), name)
		}
	}
	if err := Struct(dst); err != nil {
		return dst, err
	}
	return dst, nil
}

func paramName(sf reflect.StructField) string {
	for _, key := range []string{"query", "json"} {
		if tag := sf.Tag.Get(key); tag != "" {
			name, _, _ := strings.Cut(tag, ",")
			if name != "" {
				return name
			}
		}
	}
	return sf.Name
}

func setField(f reflect.Value, raw string) error {
	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Bool:
		if raw == "" {
			f.SetBool(true)
			return nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return perr.New(perr.ErrorCodeValidation, "must be a boolean")
		}
		f.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if raw == "" {
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, f.Type().Bits())
		if err != nil {
			return perr.New(perr.ErrorCodeValidation, "must be an integer")
		}
		f.SetInt(n)
	case reflect.Slice:
		if f.Type().Elem().Kind() != reflect.String {
			return perr.Newf(perr.ErrorCodeUnknown, "unsupported slice of %s", f.Type().Elem().Kind())
		}
		var out []string
		for p := range strings.SplitSeq(raw, ",") {
			if v := strings.TrimSpace(p); v != "" {
				out = append(out, v)
			}
		}
		f.Set(reflect.ValueOf(out).Convert(f.Type()))
	default:
		return perr.Newf(perr.ErrorCodeUnknown, "unsupported kind %s", f.Kind())
	}
	return nil
}
