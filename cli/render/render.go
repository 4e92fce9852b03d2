// Package render provides centralized output rendering for the studio CLI.
//
// Format selection rules:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format flag always overrides defaults
//   - Invalid formats are errors
//
// Color handling:
//   - --no-color disables highlighting and styled log lines
//   - Non-TTY output is never colored
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"
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
	color  bool
	out    io.Writer
}

// NewRenderer creates a renderer from CLI context.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	tty := IsTerminal(os.Stdout)
	if format == "" {
		if tty {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{
		format: format,
		color:  tty && !c.Bool("no-color"),
		out:    os.Stdout,
	}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, color bool, out io.Writer) *Renderer {
	return &Renderer{
		format: format,
		color:  color,
		out:    out,
	}
}

// Out returns the output writer.
func (r *Renderer) Out() io.Writer {
	return r.out
}

// Color reports whether styled output is enabled.
func (r *Renderer) Color() bool {
	return r.color
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

// Text writes s followed by a newline, regardless of format.
func (r *Renderer) Text(s string) {
	fmt.Fprintln(r.out, s)
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

func (r *Renderer) renderTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	v := indirect(reflect.ValueOf(data))
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		rec, ok := fieldsOf(v, nil)
		if !ok {
			fmt.Fprintf(w, "%v\n", data)
			return nil
		}
		for i, name := range rec.names {
			fmt.Fprintf(w, "%s:\t%s\n", name, formatValue(rec.values[i]))
		}
		return nil
	}

	if v.Len() == 0 {
		fmt.Fprintln(w, "(no results)")
		return nil
	}
	head, ok := fieldsOf(indirect(v.Index(0)), nil)
	if !ok || len(head.names) == 0 {
		// Scalars: one per line.
		for i := range v.Len() {
			fmt.Fprintln(w, formatValue(v.Index(i)))
		}
		return nil
	}

	fmt.Fprintln(w, strings.Join(head.names, "\t"))
	for i := range v.Len() {
		rec, _ := fieldsOf(indirect(v.Index(i)), head.names)
		cells := make([]string, len(rec.values))
		for j, c := range rec.values {
			cells[j] = formatValue(c)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return nil
}

// fields holds the named cells of one struct or map value.
type fields struct {
	names  []string
	values []reflect.Value
}

// fieldsOf lists the exported fields of a struct, or the entries of a map
// in key order. keys, when set, fixes a map's columns so that every row of
// a table lines up with the header.
func fieldsOf(v reflect.Value, keys []string) (fields, bool) {
	var f fields
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			if sf := t.Field(i); sf.IsExported() {
				f.names = append(f.names, fieldName(sf))
				f.values = append(f.values, v.Field(i))
			}
		}
	case reflect.Map:
		if keys == nil {
			keys = sortedKeys(v)
		}
		for _, k := range keys {
			f.names = append(f.names, k)
			f.values = append(f.values, v.MapIndex(reflect.ValueOf(k)))
		}
	default:
		return f, false
	}
	return f, true
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

// fieldName is the json name of a struct field, else its lowercased name.
func fieldName(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return strings.ToLower(f.Name)
}

// formatValue renders one table cell.
func formatValue(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() || ((v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil()) {
		return ""
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		switch {
		case v.Len() == 0:
			return "[]"
		case v.Type().Elem().Kind() == reflect.String:
			parts := make([]string, v.Len())
			for i := range parts {
				parts[i] = v.Index(i).String()
			}
			return strings.Join(parts, ",")
		default:
			return fmt.Sprintf("[%d items]", v.Len())
		}
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		if t, ok := v.Interface().(time.Time); ok {
			return t.Format(time.RFC3339)
		}
		return "{...}"
	case reflect.String:
		return truncateLine(v.String(), 80)
	default:
		return fmt.Sprint(v.Interface())
	}
}

// sortedKeys returns the string form of a map's keys, sorted.
func sortedKeys(v reflect.Value) []string {
	keys := make(map[string]struct{}, v.Len())
	for _, k := range v.MapKeys() {
		keys[fmt.Sprintf("%v", k.Interface())] = struct{}{}
	}
	return slices.Sorted(maps.Keys(keys))
}

// truncateLine keeps the first line of s, cut to n runes.
func truncateLine(s string, n int) string {
	line, _, multi := strings.Cut(s, "\n")
	runes := []rune(line)
	if len(runes) > n {
		return string(runes[:n-1]) + "…"
	}
	if multi {
		return line + " …"
	}
	return line
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
