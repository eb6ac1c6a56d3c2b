// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

func decodeHCL(fs afero.Fs, name string, data []byte, f *File) error {
	if err := hclsimple.Decode(name, data, evalContext(fs, filepath.Dir(name)), f); err != nil {
		var diags hcl.Diagnostics
		if errors.As(err, &diags) {
			return errors.Join(append([]error{ErrInvalidHcl}, diags.Errs()...)...)
		}

		return errors.Join(ErrInvalidHcl, err)
	}

	return nil
}

// evalContext exposes a few functions to HCL run files.
func evalContext(fs afero.Fs, dir string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env":       envFunc,
			"file":      fileFunc(fs, dir),
			"upper":     stdlib.UpperFunc,
			"lower":     stdlib.LowerFunc,
			"trimspace": stdlib.TrimSpaceFunc,
			"chomp":     stdlib.ChompFunc,
			"join":      stdlib.JoinFunc,
			"format":    stdlib.FormatFunc,
		},
	}
}

var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

func fileFunc(fs afero.Fs, dir string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "path", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			path := args[0].AsString()
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}

			b, err := afero.ReadFile(fs, path)
			if err != nil {
				return cty.NilVal, fmt.Errorf("read %s: %w", path, err)
			}

			return cty.StringVal(string(b)), nil
		},
	})
}
