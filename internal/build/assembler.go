package build

import (
	"bytes"

	"github.com/conneroisu/snazzy/internal/errors"
)

// Bundle is the output of one application: a script stream and a style
// stream.
type Bundle struct {
	Script []byte
	Style  []byte
}

// Assemble concatenates the processed fragments in build order. For each
// component its template then its script go to the script stream and its
// style to the style stream; the entry point script is appended last.
// Nothing is inserted between fragments.
func Assemble(order []string, fragments FragmentSet, entryPoint string) (*Bundle, error) {
	var script, style bytes.Buffer

	for _, name := range order {
		frag, ok := fragments[name]
		if !ok {
			return nil, errors.NewInternalError(errors.ErrCodeInternalError,
				"no transformed fragments for component in build order", nil).
				WithComponent(name)
		}

		script.WriteString(frag.Template)
		script.WriteString(frag.Script)
		style.WriteString(frag.Style)
	}

	script.WriteString(entryPoint)

	return &Bundle{
		Script: script.Bytes(),
		Style:  style.Bytes(),
	}, nil
}
