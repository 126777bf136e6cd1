// Package config sets up logging and reads the optional jsonnet config file.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/go-jsonnet"
	"github.com/google/go-jsonnet/ast"
	"github.com/joho/godotenv"
	"github.com/rprtr258/fun"
	"github.com/spf13/afero"

	"github.com/rprtr258/hello-http/internal/core"
	"github.com/rprtr258/hello-http/internal/errors"
)

const EnvConfig = "HELLO_HTTP_CONFIG"

// File is the config file contents. Missing fields keep values they override.
type File struct {
	Host            *string  `json:"host"`
	Port            *int     `json:"port"`
	Allow           []string `json:"allow"`
	Deny            []string `json:"deny"`
	Verbose         *bool    `json:"verbose"`
	ReadTimeout     *string  `json:"readTimeout"`
	ShutdownTimeout *string  `json:"shutdownTimeout"`
	MaxHeaderBytes  *int     `json:"maxHeaderBytes"`
}

func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "hello-http", "config.jsonnet")
}

// Discover picks config file to read: explicit path, then $HELLO_HTTP_CONFIG,
// then default path if it exists.
func Discover(fs afero.Fs, explicit string) fun.Option[string] {
	if explicit != "" {
		return fun.Valid(explicit)
	}

	if env := os.Getenv(EnvConfig); env != "" {
		return fun.Valid(env)
	}

	filename := DefaultPath()
	if ok, err := afero.Exists(fs, filename); err == nil && ok {
		return fun.Valid(filename)
	}

	return fun.Invalid[string]()
}

func newVM(fs afero.Fs) *jsonnet.VM {
	vm := jsonnet.MakeVM()
	vm.NativeFunction(&jsonnet.NativeFunction{
		Name: "dotenv",
		Func: func(args []any) (any, error) {
			if len(args) != 1 {
				return nil, errors.Newf("wrong number of arguments: %d", len(args))
			}

			filename, ok := args[0].(string)
			if !ok {
				return nil, errors.Newf("filename must be a string, got %v", args[0])
			}

			data, errRead := afero.ReadFile(fs, filename)
			if errRead != nil {
				return nil, errors.Wrapf(errRead, "read env file %s", filename)
			}

			env, errUnmarshal := godotenv.UnmarshalBytes(data)
			if errUnmarshal != nil {
				return nil, errors.Wrapf(errUnmarshal, "parse env file %s", filename)
			}

			res := make(map[string]any, len(env))
			for k, v := range env {
				res[k] = v
			}
			return res, nil
		},
		Params: ast.Identifiers{"filename"},
	})
	return vm
}

// Read evaluates jsonnet config file. Unknown fields are rejected.
func Read(fs afero.Fs, filename string) (File, error) {
	snippet, err := afero.ReadFile(fs, filename)
	if err != nil {
		return fun.Zero[File](), errors.Wrapf(err, "read config file %s", filename)
	}

	jsonText, err := newVM(fs).EvaluateAnonymousSnippet(filename, string(snippet))
	if err != nil {
		return fun.Zero[File](), errors.Wrapf(err, "evaluate jsonnet file %s", filename)
	}

	var file File
	decoder := json.NewDecoder(bytes.NewReader([]byte(jsonText)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return fun.Zero[File](), errors.Wrapf(core.ErrInvalidConfig, "decode config file %s: %s", filename, err.Error())
	}

	return file, nil
}

func parseDuration(field string, s *string, dest *time.Duration) error {
	if s == nil {
		return nil
	}

	d, err := time.ParseDuration(*s)
	if err != nil {
		return errors.Wrapf(core.ErrInvalidConfig, "%s: %s", field, err.Error())
	}

	*dest = d
	return nil
}

func parseMethodList(methods []string) core.MethodSet {
	return core.ParseMethods(fun.Valid(strings.Join(methods, ",")))
}

// Apply overrides cfg with fields set in the file.
func (f File) Apply(cfg core.Config) (core.Config, error) {
	if f.Host != nil {
		cfg.Listen.Host = *f.Host
	}
	if f.Port != nil {
		cfg.Listen.Port = *f.Port
	}
	if f.Allow != nil {
		cfg.Policy.Allowed = parseMethodList(f.Allow)
	}
	if f.Deny != nil {
		cfg.Policy.Disallowed = parseMethodList(f.Deny)
	}
	if f.Verbose != nil {
		cfg.Verbose = *f.Verbose
	}
	if f.MaxHeaderBytes != nil {
		cfg.MaxHeaderBytes = *f.MaxHeaderBytes
	}
	if err := parseDuration("readTimeout", f.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return fun.Zero[core.Config](), err
	}
	if err := parseDuration("shutdownTimeout", f.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return fun.Zero[core.Config](), err
	}

	return cfg, nil
}

// Load applies config file, if any, on top of cfg.
func Load(fs afero.Fs, filename fun.Option[string], cfg core.Config) (core.Config, error) {
	name, ok := filename.Unpack()
	if !ok {
		return cfg, nil
	}

	file, err := Read(fs, name)
	if err != nil {
		return fun.Zero[core.Config](), err
	}

	res, err := file.Apply(cfg)
	if err != nil {
		return fun.Zero[core.Config](), errors.Wrapf(err, "config file %s", name)
	}
	return res, nil
}
