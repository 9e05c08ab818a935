package wasmext

import (
	"regexp"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/rikiki/errors"
)

// Signature is one function declared in the WIT text.
type Signature struct {
	Name    string
	Params  []Param
	Results []wit.Type
}

// Param is a named WIT parameter.
type Param struct {
	Name string
	Type wit.Type
}

// Pattern: [export] name: func(params) [-> result];
var funcPattern = regexp.MustCompile(`(?:export\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// ParseSignatures extracts function signatures from WIT text, in
// declaration order. Only primitive scalar types are accepted.
func ParseSignatures(witText string) ([]Signature, error) {
	var sigs []Signature
	seen := make(map[string]bool)

	for _, match := range funcPattern.FindAllStringSubmatch(witText, -1) {
		sig := Signature{Name: match[1]}
		if seen[sig.Name] {
			return nil, errors.InvalidInput(errors.PhaseExtension, "duplicate function "+sig.Name)
		}
		seen[sig.Name] = true

		if params := strings.TrimSpace(match[2]); params != "" {
			for _, p := range strings.Split(params, ",") {
				name, typ, ok := strings.Cut(p, ":")
				if !ok {
					return nil, errors.InvalidInput(errors.PhaseExtension, "unnamed parameter in "+sig.Name)
				}
				t, err := parseType(typ)
				if err != nil {
					return nil, err
				}
				sig.Params = append(sig.Params, Param{Name: strings.TrimSpace(name), Type: t})
			}
		}

		result := strings.TrimSpace(match[3])
		if strings.HasPrefix(result, "(") && strings.HasSuffix(result, ")") {
			result = strings.TrimSpace(result[1 : len(result)-1])
			if result != "" {
				for _, part := range strings.Split(result, ",") {
					t, err := parseType(part)
					if err != nil {
						return nil, err
					}
					sig.Results = append(sig.Results, t)
				}
			}
		} else if result != "" {
			t, err := parseType(result)
			if err != nil {
				return nil, err
			}
			sig.Results = []wit.Type{t}
		}

		sigs = append(sigs, sig)
	}

	if len(sigs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseExtension, "no functions found in WIT text")
	}
	return sigs, nil
}

func parseType(s string) (wit.Type, error) {
	s = strings.TrimSpace(s)
	t, err := wit.ParseType(s)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseExtension, errors.KindInvalidInput, err, "parse type "+s)
	}
	if _, ok := coreType(t); !ok {
		return nil, errors.Unsupported(errors.PhaseExtension, "WIT type "+s)
	}
	return t, nil
}

// coreType maps a supported WIT scalar to its flat core value type.
func coreType(t wit.Type) (api.ValueType, bool) {
	switch t.(type) {
	case wit.Bool, wit.Char, wit.S8, wit.U8, wit.S16, wit.U16, wit.S32, wit.U32:
		return api.ValueTypeI32, true
	case wit.S64, wit.U64:
		return api.ValueTypeI64, true
	}
	return 0, false
}

// check verifies that the core export matches the declared signature.
func (s Signature) check(def api.FunctionDefinition) error {
	if err := matchTypes(s.Name+" params", s.paramTypes(), def.ParamTypes()); err != nil {
		return err
	}
	return matchTypes(s.Name+" results", s.Results, def.ResultTypes())
}

func (s Signature) paramTypes() []wit.Type {
	out := make([]wit.Type, len(s.Params))
	for i, p := range s.Params {
		out[i] = p.Type
	}
	return out
}

func matchTypes(what string, declared []wit.Type, core []api.ValueType) error {
	want := make([]string, len(declared))
	ok := len(declared) == len(core)
	for i, t := range declared {
		vt, _ := coreType(t)
		want[i] = api.ValueTypeName(vt)
		if ok && core[i] != vt {
			ok = false
		}
	}
	if ok {
		return nil
	}
	got := make([]string, len(core))
	for i, vt := range core {
		got[i] = api.ValueTypeName(vt)
	}
	return errors.New(errors.PhaseExtension, errors.KindTypeMismatch).
		Want("(" + strings.Join(want, " ") + ")").
		Got("(" + strings.Join(got, " ") + ")").
		Detail("%s", what).
		Build()
}
