// Package configutil loads and validates YAML configuration files and overlays
// secrets taken from the process environment.
//
// A file may include another one via the extends directive:
//
// production.yaml:
// extends: base.yaml
//
// There is no multiple inheritance. The extends chain forms a linked list and
// files are merged from the root of the chain down, so later files win.
// Arrays are replaced wholesale while maps are merged key by key.
package configutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

// ErrCycleRef is returned when there are circular dependencies detected in
// configuration files extending each other.
var ErrCycleRef = errors.New("cyclic reference in configuration extends detected")

// Extends define a keyword in config for extending a base configuration file.
type Extends struct {
	Extends string `yaml:"extends"`
}

// ValidationError is the returned when a configuration fails to pass
// validation.
type ValidationError struct {
	errorMap validator.ErrorMap
}

// ErrForField returns the validation error for the given field.
func (e ValidationError) ErrForField(name string) error {
	return e.errorMap[name]
}

// Error implements the `error` interface.
func (e ValidationError) Error() string {
	var w bytes.Buffer

	fmt.Fprintf(&w, "validation failed")
	for f, err := range e.errorMap {
		fmt.Fprintf(&w, "   %s: %v\n", f, err)
	}

	return w.String()
}

// Load loads configuration based on config file name. It will
// follow extends directives and do a deep merge of those config
// files.
func Load(filename string, config interface{}) error {
	filenames, err := resolveExtends(filename, readExtend)
	if err != nil {
		return err
	}
	return LoadFiles(config, filenames...)
}

// LoadEnv populates the `env` tagged fields of secrets from the process
// environment. Fields tagged `required` must be set and non-empty.
func LoadEnv(secrets interface{}) error {
	if err := env.Parse(secrets); err != nil {
		return fmt.Errorf("parse env: %s", err)
	}
	return nil
}

type getExtend func(filename string) (extends string, err error)

// resolveExtends returns the list of config paths that the original config `filename`
// points to, root first.
func resolveExtends(filename string, extendReader getExtend) ([]string, error) {
	filenames := []string{filename}
	seen := map[string]bool{filename: true}
	for {
		extends, err := extendReader(filename)
		if err != nil {
			return nil, err
		} else if extends == "" {
			break
		}

		// Relative extends are resolved against the directory of the
		// extending file.
		if !filepath.IsAbs(extends) {
			extends = filepath.Join(filepath.Dir(filename), extends)
		}

		if seen[extends] {
			return nil, ErrCycleRef
		}

		filenames = append([]string{extends}, filenames...)
		seen[extends] = true
		filename = extends
	}
	return filenames, nil
}

func readExtend(configFile string) (string, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return "", err
	}

	var cfg Extends
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("unmarshal %s: %s", configFile, err)
	}
	return cfg.Extends, nil
}

// LoadFiles loads a list of files in order, deep-merging values, and
// validates the merged result once.
func LoadFiles(config interface{}, fnames ...string) error {
	for _, fname := range fnames {
		data, err := os.ReadFile(fname)
		if err != nil {
			return err
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("unmarshal %s: %s", fname, err)
		}
	}

	if err := validator.Validate(config); err != nil {
		errMap, ok := err.(validator.ErrorMap)
		if !ok {
			return fmt.Errorf("validate: %s", err)
		}
		return ValidationError{errorMap: errMap}
	}
	return nil
}
