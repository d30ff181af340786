// Package render provides centralized output rendering for the meshclient CLI.
//
// Format selection rules:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format flag always overrides defaults
//   - Invalid formats are errors
package render

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil // Let caller decide default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer handles output formatting.
type Renderer struct {
	format Format
	out    io.Writer
}

// NewRenderer creates a renderer from CLI context.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	formatStr := c.String("format")
	format, err := ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}

	// Apply default format based on TTY detection
	if format == "" {
		if f, ok := out.(*os.File); ok && isTTY(f) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{
		format: format,
		out:    out,
	}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, out io.Writer) *Renderer {
	return &Renderer{
		format: format,
		out:    out,
	}
}

// Format returns the selected output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(data)
	case FormatTable:
		return r.renderTable(data)
	case FormatYAML:
		return r.renderYAML(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Renderer) renderYAML(data any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	return enc.Encode(data)
}

// Table layout:
//   - a struct prints one "name: value" line per field; nested structs are
//     flattened with dotted names and empty omitempty fields are skipped
//   - list fields of a struct follow as their own sections
//   - a slice of structs prints as a table, other slices one value per line
//   - byte slices print as their length, never their content
func (r *Renderer) renderTable(data any) error {
	v := indirect(reflect.ValueOf(data))
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return writeList(r.out, v)
	case reflect.Struct:
		return r.renderRecord(v)
	case reflect.Map:
		return r.renderMap(v)
	default:
		_, err := fmt.Fprintf(r.out, "%v\n", data)
		return err
	}
}

func (r *Renderer) renderRecord(v reflect.Value) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	var lists []field
	writePairs(w, "", v, &lists)
	if err := w.Flush(); err != nil {
		return err
	}
	for _, f := range lists {
		if _, err := fmt.Fprintf(r.out, "\n%s:\n", f.name); err != nil {
			return err
		}
		if err := writeList(r.out, f.value); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderMap(v reflect.Value) error {
	keys := v.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
	})
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(w, "%v:\t%s\n", k.Interface(), formatValue(indirect(v.MapIndex(k))))
	}
	return w.Flush()
}

func writePairs(w io.Writer, prefix string, v reflect.Value, lists *[]field) {
	for _, f := range fields(v) {
		name := prefix + f.name
		fv := indirect(f.value)
		if f.omitEmpty && (!fv.IsValid() || fv.IsZero()) {
			continue
		}
		switch {
		case fv.Kind() == reflect.Struct && !isTime(fv):
			writePairs(w, name+".", fv, lists)
		case isList(fv):
			*lists = append(*lists, field{name: name, value: fv})
		default:
			fmt.Fprintf(w, "%s:\t%s\n", name, formatValue(fv))
		}
	}
}

func writeList(out io.Writer, v reflect.Value) error {
	if v.Len() == 0 {
		_, err := fmt.Fprintln(out, "(no results)")
		return err
	}

	first := indirect(v.Index(0))
	if first.Kind() != reflect.Struct || isTime(first) {
		for i := range v.Len() {
			if _, err := fmt.Fprintln(out, formatValue(indirect(v.Index(i)))); err != nil {
				return err
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := fields(first)
	names := make([]string, len(header))
	for i, f := range header {
		names[i] = f.name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))
	for i := range v.Len() {
		cells := make([]string, len(header))
		if row := indirect(v.Index(i)); row.IsValid() {
			for j, f := range fields(row) {
				cells[j] = formatValue(indirect(f.value))
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

// field is an exported struct field under its JSON name.
type field struct {
	name      string
	value     reflect.Value
	omitEmpty bool
}

func fields(v reflect.Value) []field {
	t := v.Type()
	out := make([]field, 0, t.NumField())
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(sf.Name)
		}
		out = append(out, field{name: name, value: v.Field(i), omitEmpty: strings.Contains(opts, "omitempty")})
	}
	return out
}

// indirect follows pointers and interfaces. A nil yields the invalid Value.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isTime(v reflect.Value) bool {
	return v.IsValid() && v.Type() == reflect.TypeFor[time.Time]()
}

func isList(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice:
		return v.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	default:
		return false
	}
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if isTime(v) {
		return v.Interface().(time.Time).Format(time.RFC3339)
	}
	switch v.Kind() {
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return fmt.Sprintf("%d bytes", v.Len())
		}
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Array:
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		return "{...}"
	default:
		return fmt.Sprint(v.Interface())
	}
}

// isTTY returns true if the writer is a TTY.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
