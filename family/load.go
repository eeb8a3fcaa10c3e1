// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package family

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// A File is the YAML form of a list of families:
//
//	families:
//	  - name: KML
//	    unit: us
//	    axis: [1, 2, 4, 8]
//	    variants:
//	      - {name: CPU, prefix: KML_CPU_batch_}
//	      ...
type File struct {
	Families []*Family `yaml:"families"`
}

// Load reads a YAML family list from r and validates every family.
func Load(r io.Reader) ([]*Family, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("no families defined")
		}
		return nil, err
	}
	if len(f.Families) == 0 {
		return nil, fmt.Errorf("no families defined")
	}
	for _, fam := range f.Families {
		if err := fam.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Families, nil
}

// LoadFile is like Load, but reads the named file.
func LoadFile(path string) ([]*Family, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fams, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fams, nil
}

// Marshal returns the YAML form of fams, suitable for Load.
func Marshal(fams []*Family) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(File{fams}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Select returns the families in fams named by the comma-separated
// list names. An empty list selects every family.
func Select(fams []*Family, names string) ([]*Family, error) {
	if strings.TrimSpace(names) == "" {
		return fams, nil
	}
	byName := make(map[string]*Family)
	for _, f := range fams {
		byName[f.Name] = f
	}
	var out []*Family
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		f, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown family %q", name)
		}
		out = append(out, f)
	}
	return out, nil
}
