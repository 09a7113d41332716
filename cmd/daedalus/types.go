package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/wehubfusion/Daedalus/pkg/schema"
)

// errValueRejected is returned by the type command when -data does not
// validate. The errors have already been printed.
var errValueRejected = errors.New("value rejected")

type typeOptions struct {
	typeJSON string
	typeFile string
	data     string
	defaults bool
}

func typeCommand(args []string, stdout io.Writer) error {
	var o typeOptions
	fs := flag.NewFlagSet("type", flag.ContinueOnError)
	fs.StringVar(&o.typeJSON, "type", "", "type definition as JSON")
	fs.StringVar(&o.typeFile, "type-file", "", "file holding the type definition")
	fs.StringVar(&o.data, "data", "", "JSON value to validate against the type")
	fs.BoolVar(&o.defaults, "defaults", false, "fill missing values from type defaults before validating")
	if err := parseFlags(fs, args); err != nil {
		return helpIsNotAnError(err)
	}
	return describeType(&o, stdout)
}

// describeType prints the canonical form and default of a type and, when
// data is given, the validation result.
func describeType(o *typeOptions, stdout io.Writer) error {
	def := []byte(o.typeJSON)
	switch {
	case o.typeFile != "" && o.typeJSON != "":
		return fmt.Errorf("-type and -type-file are mutually exclusive")
	case o.typeFile != "":
		raw, err := os.ReadFile(o.typeFile)
		if err != nil {
			return fmt.Errorf("failed to read type definition: %w", err)
		}
		def = raw
	case o.typeJSON == "":
		return fmt.Errorf("-type or -type-file is required")
	}

	e := schema.NewEngine()
	normalized, err := e.NormalizeOnly(def)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "normalized: %s\n", normalized)

	if value, err := e.DefaultOnly(def); err != nil {
		fmt.Fprintf(stdout, "default: none (%v)\n", err)
	} else {
		fmt.Fprintf(stdout, "default: %s\n", value)
	}

	if o.data == "" {
		return nil
	}

	var problems []schema.ValidationError
	if o.defaults {
		processed, err := e.ProcessWithType([]byte(o.data), def, false)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "data: %s\n", processed.Data)
		problems = processed.Errors
	} else {
		result, err := e.ValidateOnly([]byte(o.data), def)
		if err != nil {
			return err
		}
		problems = result.Errors
	}

	if len(problems) == 0 {
		_, err := fmt.Fprintln(stdout, "valid")
		return err
	}
	for _, p := range problems {
		fmt.Fprintf(stdout, "invalid: %s: %s (%s)\n", orDash(p.Path), p.Message, p.Code)
	}
	return errValueRejected
}
