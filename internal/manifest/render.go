package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"text/template"
	"unicode/utf8"

	"github.com/Masterminds/sprig"
	"github.com/otiai10/copy"

	"github.com/oshokin/deb-packager/internal/domain/deb"
	"github.com/oshokin/deb-packager/internal/service/common"
)

// binarySniffLen is how many leading bytes are inspected for NUL bytes.
const binarySniffLen = 8000

// placeholderPattern matches ${ key } with optional inner whitespace.
// Keys with other characters, such as ${misc:Depends}, never match.
var placeholderPattern = regexp.MustCompile(`\$\{\s*([A-Za-z0-9_.\-]+)\s*\}`)

var errNilTemplateFS = errors.New("template file system is not set")

// Renderer renders template files from a file system into the package tree.
type Renderer struct {
	fsys fs.FS
}

// NewRenderer creates a renderer reading template sources from fsys.
func NewRenderer(fsys fs.FS) *Renderer {
	return &Renderer{fsys: fsys}
}

// Render renders every template file in order. It stops at the first error,
// leaving files rendered so far in place.
func (r *Renderer) Render(templates []deb.TemplateFile, values map[string]any) error {
	for _, tf := range templates {
		if err := r.RenderFile(tf, values); err != nil {
			return err
		}
	}

	return nil
}

// RenderFile renders a single template file. Binary sources are copied unmodified.
func (r *Renderer) RenderFile(tf deb.TemplateFile, values map[string]any) error {
	if r.fsys == nil {
		return errNilTemplateFS
	}

	data, err := fs.ReadFile(r.fsys, tf.SourcePath)
	if err != nil {
		return fmt.Errorf("read template %s: %w", tf.SourcePath, err)
	}

	if isBinary(data) {
		options := copy.Options{
			FS:                r.fsys,
			PermissionControl: copy.AddPermission(common.DefaultFileMode),
		}

		if err = copy.Copy(tf.SourcePath, tf.DestinationPath, options); err != nil {
			return fmt.Errorf("copy %s: %w", tf.SourcePath, err)
		}

		return nil
	}

	rendered, err := Expand(tf.SourcePath, data, values)
	if err != nil {
		return err
	}

	mode := common.DefaultFileMode
	if tf.IsLifecycleScript || bytes.HasPrefix(data, []byte("#!")) {
		mode = common.ExecutableFileMode
	}

	return common.WriteFileAtomic(tf.DestinationPath, rendered, mode)
}

// Expand applies both substitution passes to text.
//
// The expression pass executes text as a Go template with sprig functions
// against values; referencing a missing key is an error. The placeholder pass
// then replaces every ${key} naming a key of the flattened values (nested maps
// are reachable as ${parent.child}). Output of the expression pass is scanned
// by the placeholder pass; values inserted by the placeholder pass are not
// scanned again. Unknown placeholders are kept verbatim.
func Expand(name string, text []byte, values map[string]any) ([]byte, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(text))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, values); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}

	flat := Flatten(values)

	return placeholderPattern.ReplaceAllFunc(buf.Bytes(), func(match []byte) []byte {
		key := placeholderPattern.FindSubmatch(match)[1]
		if value, ok := flat[string(key)]; ok {
			return []byte(value)
		}

		return match
	}), nil
}

// Flatten stringifies values, descending into nested maps with dotted keys.
// A nested map is reachable only through its leaves.
func Flatten(values map[string]any) map[string]string {
	flat := make(map[string]string, len(values))
	flattenInto(flat, "", values)

	return flat
}

func flattenInto(flat map[string]string, prefix string, values map[string]any) {
	for key, value := range values {
		if prefix != "" {
			key = prefix + "." + key
		}

		switch v := value.(type) {
		case map[string]any:
			flattenInto(flat, key, v)
		case map[string]string:
			for child, s := range v {
				flat[key+"."+child] = s
			}
		case string:
			flat[key] = v
		case nil:
			flat[key] = ""
		default:
			flat[key] = fmt.Sprint(v)
		}
	}
}

// isBinary reports whether data looks like a non-text file.
func isBinary(data []byte) bool {
	head := data
	if len(head) > binarySniffLen {
		head = head[:binarySniffLen]
	}

	return bytes.IndexByte(head, 0) >= 0 || !utf8.Valid(data)
}
