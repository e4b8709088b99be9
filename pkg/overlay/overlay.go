package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/cuemby/mihoro/pkg/fileutil"
	"github.com/cuemby/mihoro/pkg/log"
	"gopkg.in/yaml.v3"
)

// Document is mihomo's config.yaml as seen by the overlay engine. It keeps the
// parsed node tree so key order, anchors, aliases and comments survive a
// round trip. Values of managed keys are never decoded, only replaced.
type Document struct {
	node *yaml.Node
	root *yaml.Node
}

// ParseError is returned when a document is not a YAML mapping mihoro can
// decode. It is never retried: a corrupt remote document does not heal.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse mihomo config: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes a mihomo config document. Empty and null documents are read
// as an empty mapping.
func Parse(data []byte) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &ParseError{Err: err}
	}

	if node.Kind == 0 {
		node = yaml.Node{Kind: yaml.DocumentNode}
	}
	if len(node.Content) == 0 {
		node.Content = []*yaml.Node{emptyMapping()}
	}

	root := node.Content[0]
	switch {
	case root.Kind == yaml.MappingNode:
	case root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null":
		root = emptyMapping()
		node.Content[0] = root
	default:
		return nil, &ParseError{Err: fmt.Errorf("line %d: top level is not a mapping", root.Line)}
	}
	return &Document{node: &node, root: root}, nil
}

// Merge writes spec into doc. Managed keys already present keep their
// position; missing ones are appended. Unset optional fields remove the key.
func (doc *Document) Merge(spec Spec) error {
	var mode, logLevel *string
	if spec.Mode != nil {
		mode = ptr(string(*spec.Mode))
	}
	if spec.LogLevel != nil {
		logLevel = ptr(string(*spec.LogLevel))
	}

	fields := []struct {
		key   string
		value any
	}{
		{"port", spec.Port},
		{"socks-port", spec.SocksPort},
		{"mixed-port", spec.MixedPort},
		{"allow-lan", spec.AllowLAN},
		{"bind-address", spec.BindAddress},
		{"mode", mode},
		{"log-level", logLevel},
		{"ipv6", spec.IPv6},
		{"external-controller", spec.ExternalController},
		{"external-ui", spec.ExternalUI},
		{"secret", spec.Secret},
		{"geodata-mode", spec.GeodataMode},
		{"geo-auto-update", spec.GeoAutoUpdate},
		{"geo-update-interval", spec.GeoUpdateInterval},
		{"geox-url", spec.GeoxURL},
	}

	for _, f := range fields {
		value, err := valueNode(f.value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.key, err)
		}
		doc.set(f.key, value)
	}
	return nil
}

// Marshal serializes the document with two-space indentation.
func (doc *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc.node); err != nil {
		return nil, fmt.Errorf("failed to encode mihomo config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode mihomo config: %w", err)
	}
	return buf.Bytes(), nil
}

// Apply overlays spec onto a raw mihomo config and returns the rewritten
// document.
func Apply(data []byte, spec Spec) ([]byte, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := doc.Merge(spec); err != nil {
		return nil, err
	}
	return doc.Marshal()
}

// ApplyFile overlays spec onto the config at path and atomically replaces it.
func ApplyFile(path string, spec Spec) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read mihomo config: %w", err)
	}

	out, err := Apply(data, spec)
	if err != nil {
		return err
	}

	if err := fileutil.WriteFileAtomic(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write mihomo config: %w", err)
	}

	logger := log.WithComponent("overlay")
	logger.Debug().
		Str("path", path).
		Int("bytes", len(out)).
		Msg("Applied config overlay")
	return nil
}

// IsParseError reports whether err came from decoding a document.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// set replaces the value of key, appends it when absent, or removes it when
// value is nil. Every occurrence of key is handled so duplicates collapse.
func (doc *Document) set(key string, value *yaml.Node) {
	content := doc.root.Content
	kept := content[:0]
	var replaced []*yaml.Node
	for i := 0; i+1 < len(content); i += 2 {
		k, v := content[i], content[i+1]
		if k.Kind != yaml.ScalarNode || k.Value != key {
			kept = append(kept, k, v)
			continue
		}
		replaced = append(replaced, v)
		if value != nil {
			kept = append(kept, k, value)
			value = nil
		}
	}
	if value != nil {
		kept = append(kept, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
	}
	doc.root.Content = kept

	for _, old := range replaced {
		doc.detach(old)
	}
}

// detach expands aliases that still point into a value removed from the tree,
// so the output never refers to an anchor that is no longer emitted.
func (doc *Document) detach(old *yaml.Node) {
	anchored := map[*yaml.Node]bool{}
	collectAnchors(old, anchored)
	if len(anchored) == 0 {
		return
	}
	expandAliases(doc.root, anchored)
}

func collectAnchors(n *yaml.Node, into map[*yaml.Node]bool) {
	if n.Anchor != "" {
		into[n] = true
	}
	for _, c := range n.Content {
		collectAnchors(c, into)
	}
}

func expandAliases(n *yaml.Node, anchored map[*yaml.Node]bool) {
	for i, c := range n.Content {
		if c.Kind == yaml.AliasNode && anchored[c.Alias] {
			c = deepCopy(c.Alias)
			n.Content[i] = c
		}
		expandAliases(c, anchored)
	}
}

func deepCopy(n *yaml.Node) *yaml.Node {
	c := *n
	c.Anchor = ""
	c.Content = make([]*yaml.Node, len(n.Content))
	for i, child := range n.Content {
		c.Content[i] = deepCopy(child)
	}
	return &c
}

func valueNode(v any) (*yaml.Node, error) {
	switch p := v.(type) {
	case *uint16:
		if p == nil {
			return nil, nil
		}
	case *bool:
		if p == nil {
			return nil, nil
		}
	case *string:
		if p == nil {
			return nil, nil
		}
	case *uint:
		if p == nil {
			return nil, nil
		}
	case *GeoxURL:
		if p == nil {
			return nil, nil
		}
	}

	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return &n, nil
}

func emptyMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}
