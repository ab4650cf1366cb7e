package exhandler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/danielgtaylor/casing"
	"github.com/danielgtaylor/mexpr"
	"github.com/danielgtaylor/shorthand/v2"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Interpolator substitutes variables into a message template. It must never
// panic or fail; on error it returns an empty string.
type Interpolator interface {
	Interpolate(template string, vars map[string]any) string
}

// InterpolatorFunc adapts a function to the Interpolator interface.
type InterpolatorFunc func(template string, vars map[string]any) string

// Interpolate implements Interpolator.
func (f InterpolatorFunc) Interpolate(template string, vars map[string]any) string {
	return f(template, vars)
}

// NoOpInterpolator returns templates unchanged.
type NoOpInterpolator struct{}

// Interpolate implements Interpolator.
func (NoOpInterpolator) Interpolate(template string, _ map[string]any) string {
	return template
}

var errUnclosedPlaceholder = errors.New("unclosed placeholder")

// expand replaces each `{...}` placeholder in the template with the result
// of eval. `{{` and `}}` produce literal braces.
func expand(template string, eval func(expr string) (any, error)) (string, error) {
	if !strings.ContainsAny(template, "{}") {
		return template, nil
	}

	var sb strings.Builder
	sb.Grow(len(template))
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			sb.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			sb.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w at offset %d", errUnclosedPlaceholder, i)
			}
			expr := strings.TrimSpace(template[i+1 : i+1+end])
			v, err := eval(expr)
			if err != nil {
				return "", fmt.Errorf("unable to evaluate '%s': %w", expr, err)
			}
			if v != nil {
				sb.WriteString(fmt.Sprint(v))
			}
			i += end + 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

// ExprInterpolator evaluates each `{expression}` placeholder using the mexpr
// expression language, e.g. `{req.path}`, `{ex.message}` or
// `{status.code >= 500}`.
type ExprInterpolator struct {
	Logger *zap.Logger
}

// NewExprInterpolator creates an expression interpolator which logs
// failures to the given logger. A nil logger uses `zap.L()`.
func NewExprInterpolator(logger *zap.Logger) *ExprInterpolator {
	return &ExprInterpolator{Logger: logger}
}

// Interpolate implements Interpolator.
func (i *ExprInterpolator) Interpolate(template string, vars map[string]any) (result string) {
	defer func() {
		if r := recover(); r != nil {
			loggerOrGlobal(i.Logger).Error("Failed to interpolate message template",
				zap.String("template", template), zap.Any("panic", r))
			result = ""
		}
	}()

	out, err := expand(template, func(expr string) (any, error) {
		v, err := mexpr.Eval(expr, vars)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		loggerOrGlobal(i.Logger).Error("Failed to interpolate message template",
			zap.String("template", template), zap.Error(err))
		return ""
	}
	return out
}

// PathInterpolator resolves each `{path}` placeholder as a shorthand query
// path into the variables, e.g. `{req.header.X-Request-Id}`. It does not
// support operators; use ExprInterpolator for those.
type PathInterpolator struct {
	Logger *zap.Logger
}

// Interpolate implements Interpolator.
func (i *PathInterpolator) Interpolate(template string, vars map[string]any) (result string) {
	defer func() {
		if r := recover(); r != nil {
			loggerOrGlobal(i.Logger).Error("Failed to interpolate message template",
				zap.String("template", template), zap.Any("panic", r))
			result = ""
		}
	}()

	out, err := expand(template, func(path string) (any, error) {
		v, _, err := shorthand.GetPath(path, vars, shorthand.GetOptions{})
		return v, err
	})
	if err != nil {
		loggerOrGlobal(i.Logger).Error("Failed to interpolate message template",
			zap.String("template", template), zap.Error(err))
		return ""
	}
	return out
}

// TemplateVarser lets an error expose extra variables under `ex`.
type TemplateVarser interface {
	TemplateVars() map[string]any
}

// templateVars builds the variables available to message templates:
//
//   - ex: message, class, name, slug, plus the error's exported fields in
//     lowerCamel case and anything from TemplateVars.
//   - req: method, path, query, url, host, remote and header (first values).
//   - status: code and text.
//   - id: a `urn:uuid:` unique to this occurrence.
func templateVars(err error, class *Class, r *http.Request, status int) map[string]any {
	return map[string]any{
		"ex":     errorVars(err, class),
		"req":    requestVars(r),
		"status": map[string]any{"code": status, "text": http.StatusText(status)},
		"id":     uuid.New().URN(),
	}
}

func errorVars(err error, class *Class) map[string]any {
	vars := map[string]any{}

	if err != nil {
		for k, f := range fieldVars(err) {
			vars[casing.LowerCamel(k)] = f
		}
		if tv, ok := err.(TemplateVarser); ok {
			for k, f := range tv.TemplateVars() {
				vars[k] = f
			}
		}
		vars["message"] = err.Error()
	}

	if class != nil {
		vars["class"] = class.SimpleName()
		vars["name"] = class.Name()
		vars["slug"] = class.Slug()
	}
	return vars
}

// fieldVars returns the exported fields of a struct error by name.
func fieldVars(err error) (fields map[string]any) {
	if reflect.Indirect(reflect.ValueOf(err)).Kind() != reflect.Struct {
		return nil
	}
	defer func() {
		if recover() != nil {
			fields = nil
		}
	}()
	fields = map[string]any{}
	if mapstructure.Decode(err, &fields) != nil {
		return nil
	}
	return fields
}

func requestVars(r *http.Request) map[string]any {
	if r == nil {
		return map[string]any{}
	}

	headers := make(map[string]any, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	vars := map[string]any{
		"method": r.Method,
		"host":   r.Host,
		"remote": r.RemoteAddr,
		"header": headers,
	}
	if r.URL != nil {
		vars["path"] = r.URL.Path
		vars["query"] = r.URL.RawQuery
		vars["url"] = r.URL.String()
	}
	return vars
}

func loggerOrGlobal(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.L()
	}
	return l
}
