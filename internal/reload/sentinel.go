// Package reload applies a successful build to the running server: a hot
// reload through the .reload sentinel, a push through the admin endpoint, or a
// full restart of the managed process.
package reload

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/conneroisu/payara-dev/internal/properties"
)

// SentinelName is the reload descriptor the server watches in the exploded
// deployment directory.
const SentinelName = ".reload"

// Sentinel keys.
const (
	KeyDevMode         = "devMode"
	KeyContextRoot     = "contextroot"
	KeyKeepState       = "keepState"
	KeyHotDeploy       = "hotdeploy"
	KeyMetadataChanged = "metadatachanged"
	KeySourcesChanged  = "sourceschanged"
)

// Descriptor is the content of the sentinel file.
type Descriptor struct {
	DevMode         bool
	ContextRoot     string
	KeepState       bool
	HotDeploy       bool
	MetadataChanged bool
	// SourcesChanged are project-relative paths with '/' separators.
	SourcesChanged []string
}

// Properties renders d. Only set values are written.
func (d Descriptor) Properties() *properties.Set {
	props := properties.New()
	if d.DevMode {
		props.Set(KeyDevMode, "true")
	}
	if d.ContextRoot != "" {
		props.Set(KeyContextRoot, d.ContextRoot)
	}
	if d.KeepState {
		props.Set(KeyKeepState, "true")
	}
	if d.HotDeploy {
		props.Set(KeyHotDeploy, "true")
	}
	if d.MetadataChanged {
		props.Set(KeyMetadataChanged, "true")
	}
	if len(d.SourcesChanged) > 0 {
		props.Set(KeySourcesChanged, strings.Join(d.SourcesChanged, ","))
	}
	return props
}

// ParseDescriptor reads a sentinel's Properties text.
func ParseDescriptor(data []byte) (Descriptor, error) {
	props, err := properties.Decode(data)
	if err != nil {
		return Descriptor{}, err
	}
	flag := func(key string) bool {
		v, _ := props.Get(key)
		b, _ := strconv.ParseBool(v)
		return b
	}
	var d Descriptor
	d.DevMode = flag(KeyDevMode)
	d.KeepState = flag(KeyKeepState)
	d.HotDeploy = flag(KeyHotDeploy)
	d.MetadataChanged = flag(KeyMetadataChanged)
	d.ContextRoot, _ = props.Get(KeyContextRoot)
	if v, ok := props.Get(KeySourcesChanged); ok && v != "" {
		d.SourcesChanged = strings.Split(v, ",")
	}
	return d, nil
}

// WriteSentinel replaces the sentinel in dir with d. The file is written to a
// temporary name and renamed so the server never reads a partial descriptor.
func WriteSentinel(dir string, d Descriptor) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, SentinelName)

	tmp, err := os.CreateTemp(dir, SentinelName+".*")
	if err != nil {
		return "", err
	}
	if _, err := d.Properties().WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

// TouchSentinel creates the sentinel if missing and bumps its modification
// time, requesting a generic reload.
func TouchSentinel(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, SentinelName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		return "", err
	}
	return path, nil
}
