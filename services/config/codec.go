package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/magiconair/properties"
)

// propertiesCodec reads line-oriented key=value files. Keys are lower-cased
// to match viper's case-insensitive lookup; "${...}" is left unexpanded.
// Every non-comment line must split on '=' with a bare key, and backslashes
// are kept literally, so there are no escapes or continuation lines.
type propertiesCodec struct{}

func (propertiesCodec) Decode(b []byte, v map[string]any) error {
	if err := checkKeyValueLines(b); err != nil {
		return err
	}
	b = bytes.ReplaceAll(b, []byte(`\`), []byte(`\\`))
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(b)
	if err != nil {
		return err
	}
	for k, val := range p.Map() {
		v[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(val)
	}
	return nil
}

func (propertiesCodec) Encode(v map[string]any) ([]byte, error) {
	p := properties.NewProperties()
	p.DisableExpansion = true
	p.WriteSeparator = "="
	for k, val := range v {
		if err := p.SetValue(k, val); err != nil {
			return nil, err
		}
	}
	p.Sort()
	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checkKeyValueLines(b []byte) error {
	for i, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}
		k, _, ok := strings.Cut(line, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return fmt.Errorf("line %d: expected key=value", i+1)
		}
		if strings.ContainsAny(k, " \t:\\") {
			return fmt.Errorf("line %d: invalid key %q", i+1, k)
		}
	}
	return nil
}
