package catalog

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownFramework is returned for a framework outside the supported set.
var ErrUnknownFramework = errors.New("unknown framework")

// Framework is the target UI technology of a component code sample. It also
// selects the directory the component lives under in the store.
type Framework string

const (
	ReactNative Framework = "react-native"
	Flutter     Framework = "flutter"
)

// Frameworks lists the supported frameworks in display order.
var Frameworks = []Framework{ReactNative, Flutter}

var titleCaser = cases.Title(language.English)

// ParseFramework accepts the canonical names and the store directory names,
// case-insensitively. An empty string selects React Native.
func ParseFramework(s string) (Framework, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "react-native", "reactnative", "react native", "rn":
		return ReactNative, nil
	case "flutter", "dart":
		return Flutter, nil
	default:
		return "", fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownFramework, s, strings.Join(FrameworkNames(), ", "))
	}
}

// FrameworkFromDir maps a store directory segment back to its framework.
func FrameworkFromDir(dir string) (Framework, bool) {
	for _, f := range Frameworks {
		if f.Dir() == dir {
			return f, true
		}
	}
	return "", false
}

// FrameworkNames returns the canonical framework names.
func FrameworkNames() []string {
	names := make([]string, len(Frameworks))
	for i, f := range Frameworks {
		names[i] = string(f)
	}
	return names
}

// Dir is the top-level store directory for the framework.
func (f Framework) Dir() string {
	return strings.ReplaceAll(string(f), "-", "")
}

// Ext is the source file extension including the dot.
func (f Framework) Ext() string {
	switch f {
	case Flutter:
		return ".dart"
	default:
		return ".tsx"
	}
}

// Language is the code fence language of the source files.
func (f Framework) Language() string {
	switch f {
	case Flutter:
		return "dart"
	default:
		return "tsx"
	}
}

// Label is the human readable name, e.g. "React Native".
func (f Framework) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(f), "-", " "))
}

func (f Framework) String() string {
	return string(f)
}
