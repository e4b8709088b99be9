package installer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/cuemby/mihoro/pkg/fileutil"
	"github.com/cuemby/mihoro/pkg/log"
	"gopkg.in/yaml.v3"
)

// DecodeBase64 unwraps a config that some subscription providers serve
// base64-encoded. It returns the decoded bytes and true only when the whole
// payload is standard base64 and decodes to a UTF-8 YAML mapping; anything
// else is reported as not encoded.
func DecodeBase64(data []byte) ([]byte, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, false
	}

	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(trimmed)))
	n, err := base64.StdEncoding.Decode(decoded, trimmed)
	if err != nil {
		return nil, false
	}
	decoded = decoded[:n]

	if !utf8.Valid(decoded) {
		return nil, false
	}

	var root yaml.Node
	if err := yaml.Unmarshal(decoded, &root); err != nil {
		return nil, false
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, false
	}
	return decoded, true
}

// DecodeBase64File rewrites path with its decoded content when the file is
// base64-wrapped. Content that does not decode is left byte-identical; only
// I/O failures are returned.
func DecodeBase64File(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	decoded, ok := DecodeBase64(data)
	if !ok {
		logger := log.WithComponent("installer")
		logger.Debug().Str("path", path).Msg("Config is not base64 encoded")
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := fileutil.WriteFileAtomic(path, decoded, info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to write decoded config: %w", err)
	}
	return true, nil
}
