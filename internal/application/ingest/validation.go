package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/b2b-storefront-api/internal/domain"
)

// ValidationError rechazo síncrono en el borde. Envuelve domain.ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// newValidator usa los nombres JSON en los mensajes para que el cliente reconozca el campo.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// translate convierte el primer error del validador en un ValidationError legible.
func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return invalid(field, "es requerido")
	case "gte":
		return invalid(field, "debe ser mayor o igual a %s", fe.Param())
	case "lte", "max":
		return invalid(field, "excede el máximo (%s)", fe.Param())
	case "len":
		return invalid(field, "debe tener longitud %s", fe.Param())
	case "oneof":
		return invalid(field, "debe ser uno de [%s]", fe.Param())
	default:
		return invalid(field, "no cumple %s", fe.Tag())
	}
}

// rejectNUL Postgres no guarda U+0000 ni en TEXT ni en JSONB. Se recorre la forma JSON del
// cuerpo (payload incluido) para nombrar el primer campo que lo trae.
func rejectNUL(in any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if !bytes.Contains(raw, []byte(`\u0000`)) {
		return nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if path, ok := findNUL(doc, ""); ok {
		return invalid(path, "contiene el carácter NUL")
	}
	return nil
}

func findNUL(v any, path string) (string, bool) {
	switch t := v.(type) {
	case string:
		return path, strings.IndexByte(t, 0) >= 0
	case []any:
		for i, e := range t {
			if p, ok := findNUL(e, fmt.Sprintf("%s[%d]", path, i)); ok {
				return p, true
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := k
			if path != "" {
				p = path + "." + k
			}
			if strings.IndexByte(k, 0) >= 0 {
				return p, true
			}
			if p, ok := findNUL(t[k], p); ok {
				return p, true
			}
		}
	}
	return "", false
}
