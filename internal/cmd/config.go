package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Alia5/PadBridge/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit scaffolds a configuration file for a specific command.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"server,ctl"`
	Format  string `help:"Output format" enum:"json,yaml,toml" default:"json"`
	Output  string `help:"Destination file path (defaults to current directory)"`
	Force   bool   `help:"Overwrite if the file already exists"`
}

var encoders = map[string]func(any) ([]byte, error){
	"json": func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
	"yaml": func(v any) ([]byte, error) { return yaml.Marshal(v) },
	"toml": func(v any) ([]byte, error) { return toml.Marshal(v) },
}

// Run writes every flag of the chosen command with its default value, keyed
// the way the configuration loaders read them back.
func (c *ConfigInit) Run() error {
	format := strings.ToLower(c.Format)
	if format == "yml" {
		format = "yaml"
	}
	encode, ok := encoders[format]
	if !ok {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	var root map[string]any
	switch c.Command {
	case "server":
		root = buildMapFromStruct(reflect.TypeOf(Server{}))
	case "ctl":
		root = buildMapFromStruct(reflect.TypeOf(Ctl{}))
	default:
		return fmt.Errorf("unknown command %q; expected server or ctl", c.Command)
	}

	dest := c.Output
	if dest == "" {
		dest = c.Command + "." + format
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	data, err := encode(root)
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return os.WriteFile(dest, data, 0o644)
}

// configKey turns a Go field name into the key kong's configuration
// resolvers look up: the flag name with dashes as underscores.
func configKey(name string) string {
	r := []rune(name)
	var b strings.Builder
	for i, c := range r {
		if unicode.IsUpper(c) && i > 0 {
			prevLower := unicode.IsLower(r[i-1]) || unicode.IsDigit(r[i-1])
			nextLower := i+1 < len(r) && unicode.IsLower(r[i+1])
			if prevLower || (unicode.IsUpper(r[i-1]) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(c))
	}
	return b.String()
}

func buildMapFromStruct(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := range t.NumField() {
		f := t.Field(i)
		_, isCmd := f.Tag.Lookup("cmd")
		if !f.IsExported() || isCmd || f.Tag.Get("kong") == "-" {
			continue
		}

		if _, ok := f.Tag.Lookup("embed"); ok {
			prefix := f.Tag.Get("prefix")
			name := strings.TrimSuffix(prefix, ".")
			sub := buildMapFromStruct(f.Type)
			if name != "" {
				out[name] = sub
			} else {
				maps.Copy(out, sub)
			}
			continue
		}

		key := configKey(f.Name)
		if n := f.Tag.Get("name"); n != "" {
			key = strings.ReplaceAll(n, "-", "_")
		}
		if val := defaultValueForField(f.Type, f.Tag.Get("default")); val != nil {
			out[key] = val
		}
	}
	return out
}

var durationType = reflect.TypeOf(time.Duration(0))

// defaultValueForField parses a kong default tag; unparseable or missing
// defaults become the zero value. Unsupported kinds return nil and are omitted.
func defaultValueForField(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == durationType {
		if def == "" {
			return "0s"
		}
		return def
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(def, 10, 64)
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, _ := strconv.ParseUint(def, 10, 64)
		return n
	case reflect.Float32, reflect.Float64:
		f, _ := strconv.ParseFloat(def, 64)
		return f
	case reflect.Struct:
		return buildMapFromStruct(t)
	}
	return nil
}
