package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// printer writes results as indented JSON, colored unless color.NoColor is set
type printer struct {
	out io.Writer

	key    func(a ...interface{}) string
	str    func(a ...interface{}) string
	number func(a ...interface{}) string
	other  func(a ...interface{}) string
}

func newPrinter(out io.Writer) *printer {
	if out == nil {
		out = os.Stdout
	}
	return &printer{
		out:    out,
		key:    color.New(color.FgCyan).SprintFunc(),
		str:    color.New(color.FgGreen).SprintFunc(),
		number: color.New(color.FgYellow).SprintFunc(),
		other:  color.New(color.FgMagenta).SprintFunc(),
	}
}

// Print marshals v and writes it followed by a newline
func (p *printer) Print(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	var sb strings.Builder
	p.write(&sb, generic, 0)
	sb.WriteByte('\n')
	_, err = io.WriteString(p.out, sb.String())
	return err
}

func (p *printer) write(sb *strings.Builder, v interface{}, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := v.(type) {
	case map[string]interface{}:
		if len(v) == 0 {
			sb.WriteString("{}")
			return
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("{\n")
		for i, k := range keys {
			sb.WriteString(indent + "  ")
			sb.WriteString(p.key(quote(k)))
			sb.WriteString(": ")
			p.write(sb, v[k], depth+1)
			if i < len(keys)-1 {
				sb.WriteByte(',')
			}
			sb.WriteByte('\n')
		}
		sb.WriteString(indent + "}")
	case []interface{}:
		if len(v) == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteString("[\n")
		for i, item := range v {
			sb.WriteString(indent + "  ")
			p.write(sb, item, depth+1)
			if i < len(v)-1 {
				sb.WriteByte(',')
			}
			sb.WriteByte('\n')
		}
		sb.WriteString(indent + "]")
	case string:
		sb.WriteString(p.str(quote(v)))
	case json.Number:
		sb.WriteString(p.number(v.String()))
	case nil:
		sb.WriteString(p.other("null"))
	default:
		sb.WriteString(p.other(fmt.Sprint(v)))
	}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
