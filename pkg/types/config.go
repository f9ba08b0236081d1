package types

import "fmt"

// Params is a run's parameter dictionary.
type Params map[string]any

// ParamFormat selects the serialization used for the parameter file.
type ParamFormat string

// Supported parameter serializations.
const (
	FormatYAML ParamFormat = "yaml"
	FormatJSON ParamFormat = "json"
)

// FileName returns the run-root file name for the format.
func (f ParamFormat) FileName() string {
	if f == FormatJSON {
		return ParamsJSONFile
	}
	return ParamsYAMLFile
}

// Validate returns an ErrInvalid-wrapped error for unsupported formats.
func (f ParamFormat) Validate() error {
	switch f {
	case FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("parameter format %q (want yaml or json): %w", string(f), ErrInvalid)
	}
}
