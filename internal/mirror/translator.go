package mirror

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/roach88/ldesmirror/internal/tree"
)

// ErrOutsideNamespace is returned for locators that do not belong to the
// namespace a Translator was built for.
var ErrOutsideNamespace = errors.New("locator outside namespace")

// Translator maps page locators between the source and mirror namespaces.
//
// A source page <source>P/ maps to the mirror fragment <mirror>P: the
// namespace prefix is rewritten and the trailing slash is trimmed. ToMirror
// and ToSource are inverses for every locator they accept.
type Translator struct {
	source   string
	mirror   string
	rootName string
}

// NewTranslator validates the two namespaces once. Both bases must be
// absolute http(s) URLs ending in "/", and neither may contain the other.
func NewTranslator(sourceBase, mirrorBase, rootName string) (*Translator, error) {
	if err := checkBase("source", sourceBase); err != nil {
		return nil, err
	}
	if err := checkBase("mirror", mirrorBase); err != nil {
		return nil, err
	}
	if strings.HasPrefix(sourceBase, mirrorBase) || strings.HasPrefix(mirrorBase, sourceBase) {
		return nil, fmt.Errorf("source %q and mirror %q namespaces overlap", sourceBase, mirrorBase)
	}
	if rootName == "" || strings.Contains(rootName, "/") {
		return nil, fmt.Errorf("root name %q must be a single non-empty path segment", rootName)
	}
	return &Translator{source: sourceBase, mirror: mirrorBase, rootName: rootName}, nil
}

func checkBase(name, base string) error {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("%s base %q: %w", name, base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s base %q must be an http(s) URL", name, base)
	}
	if u.Host == "" {
		return fmt.Errorf("%s base %q has no host", name, base)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%s base %q must not have a query or fragment", name, base)
	}
	if !strings.HasSuffix(base, "/") {
		return fmt.Errorf("%s base %q must end with /", name, base)
	}
	return nil
}

// SourceRoot returns the locator of the source root.
func (t *Translator) SourceRoot() string { return t.source + t.rootName }

// MirrorRoot returns the locator of the mirror root.
func (t *Translator) MirrorRoot() string { return t.mirror + t.rootName }

// SourceCollection is the collection every mirrored member belongs to.
func (t *Translator) SourceCollection() string { return tree.CollectionOf(t.SourceRoot()) }

// MirrorCollection is the collection declared by the mirror root.
func (t *Translator) MirrorCollection() string { return tree.CollectionOf(t.MirrorRoot()) }

// ToMirror returns the mirror fragment locator of a source page.
func (t *Translator) ToMirror(sourceLocator string) (string, error) {
	rest, ok := strings.CutPrefix(sourceLocator, t.source)
	name, slash := strings.CutSuffix(rest, "/")
	if !ok || !slash || name == "" || strings.HasSuffix(name, "/") {
		return "", fmt.Errorf("%w: %s is not a page of %s", ErrOutsideNamespace, sourceLocator, t.source)
	}
	return t.mirror + name, nil
}

// ToSource returns the source page locator of a mirror fragment.
func (t *Translator) ToSource(mirrorLocator string) (string, error) {
	rest, ok := strings.CutPrefix(mirrorLocator, t.mirror)
	if !ok || rest == "" || strings.HasSuffix(rest, "/") {
		return "", fmt.Errorf("%w: %s is not a fragment of %s", ErrOutsideNamespace, mirrorLocator, t.mirror)
	}
	return t.source + rest + "/", nil
}
