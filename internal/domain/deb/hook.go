package deb

import "fmt"

// HookKind enumerates the maintainer scripts dpkg runs around install and removal.
type HookKind int

const (
	// PreInstall runs before the package is unpacked.
	PreInstall HookKind = iota
	// PostInstall runs after the package is configured.
	PostInstall
	// PreRemove runs before the package is removed.
	PreRemove
	// PostRemove runs after the package is removed.
	PostRemove
)

// HookKinds lists every kind in the order scripts are written.
func HookKinds() []HookKind {
	return []HookKind{PreInstall, PostInstall, PreRemove, PostRemove}
}

// ScriptName is the file name dpkg expects under debian/.
func (k HookKind) ScriptName() string {
	switch k {
	case PreInstall:
		return "preinst"
	case PostInstall:
		return "postinst"
	case PreRemove:
		return "prerm"
	case PostRemove:
		return "postrm"
	default:
		return fmt.Sprintf("hook(%d)", int(k))
	}
}

// String implements fmt.Stringer.
func (k HookKind) String() string {
	return k.ScriptName()
}

// Hook is the source of one lifecycle script: *FromFile or *FromText.
// A nil Hook means the script is absent.
type Hook interface {
	isHook()
}

// FromFile copies an existing script verbatim.
type FromFile struct {
	Path string
}

// FromText writes inline script contents verbatim.
type FromText struct {
	Contents string
}

func (*FromFile) isHook() {}
func (*FromText) isHook() {}

// Hooks holds one optional script per kind.
type Hooks struct {
	PreInstall  Hook
	PostInstall Hook
	PreRemove   Hook
	PostRemove  Hook
}

// Get returns the hook configured for kind, or nil.
//
//nolint:ireturn // Hook is a closed sum type.
func (h Hooks) Get(kind HookKind) Hook {
	switch kind {
	case PreInstall:
		return h.PreInstall
	case PostInstall:
		return h.PostInstall
	case PreRemove:
		return h.PreRemove
	case PostRemove:
		return h.PostRemove
	default:
		return nil
	}
}

// Set stores hook for kind.
func (h *Hooks) Set(kind HookKind, hook Hook) {
	switch kind {
	case PreInstall:
		h.PreInstall = hook
	case PostInstall:
		h.PostInstall = hook
	case PreRemove:
		h.PreRemove = hook
	case PostRemove:
		h.PostRemove = hook
	}
}

// NewHook picks the variant from the two raw forms.
// A source path wins over inline contents; neither yields nil.
//
//nolint:ireturn // Hook is a closed sum type.
func NewHook(src, contents string) Hook {
	switch {
	case src != "":
		return &FromFile{Path: src}
	case contents != "":
		return &FromText{Contents: contents}
	default:
		return nil
	}
}
