// Package prefs persists exposure estimates between sessions in a YAML file
package prefs

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/nasa-jpl/autoflat/flat"
	yml "gopkg.in/yaml.v2"
)

// DefaultFileName is the name of the estimates file when none is configured
const DefaultFileName = "autoflat-estimates.yml"

// File is a flat.EstimateStore backed by a YAML file.  The file maps
// "<filter>/<binning>" to seconds, e.g.
//
//	Lum/1: 2.75
//	Ha/2: 41.2
//
// Every SetEstimate rewrites the file.
type File struct {
	Path string

	mu  sync.Mutex
	est map[string]float64
}

// Open reads the estimates file at path.  A missing file is an empty store.
func Open(path string) (*File, error) {
	f := &File{Path: path, est: map[string]float64{}}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, err
	}
	if err := yml.Unmarshal(b, &f.est); err != nil {
		return nil, fmt.Errorf("estimates file %s: %w", path, err)
	}
	if f.est == nil {
		f.est = map[string]float64{}
	}
	return f, nil
}

// ParseKey is the inverse of flat.Key.String
func ParseKey(s string) (flat.Key, error) {
	idx := strings.LastIndexByte(s, '/')
	if idx < 1 {
		return flat.Key{}, fmt.Errorf("estimate key %q is not filter/binning", s)
	}
	b, err := strconv.Atoi(s[idx+1:])
	if err != nil || b < 1 {
		return flat.Key{}, fmt.Errorf("estimate key %q has a bad binning", s)
	}
	return flat.Key{Filter: s[:idx], Binning: b}, nil
}

// Estimate implements flat.EstimateStore
func (f *File) Estimate(k flat.Key) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.est[k.String()]
	return v, ok
}

// SetEstimate implements flat.EstimateStore
func (f *File) SetEstimate(k flat.Key, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.est == nil {
		f.est = map[string]float64{}
	}
	f.est[k.String()] = seconds
	return f.save()
}

// All returns a copy of every estimate in the store
func (f *File) All() map[flat.Key]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[flat.Key]float64, len(f.est))
	for s, v := range f.est {
		k, err := ParseKey(s)
		if err != nil {
			continue
		}
		out[k] = v
	}
	return out
}

// save writes to a temporary file and renames it over the old one, so a
// crash mid-write never leaves a truncated file
func (f *File) save() error {
	b, err := yml.Marshal(f.est)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	tmp, err := ioutil.TempFile(dir, ".estimates-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}
