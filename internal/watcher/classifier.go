package watcher

import (
	"path/filepath"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Category is the classification of a changed path.
type Category int

const (
	CategoryUnrelated Category = iota
	CategorySource
	CategoryResource
	CategoryTestSource
	CategoryTestResource
	CategoryConfig
	CategoryRebootTrigger
)

// String returns the string representation of the Category
func (c Category) String() string {
	switch c {
	case CategorySource:
		return "source"
	case CategoryResource:
		return "resource"
	case CategoryTestSource:
		return "test-source"
	case CategoryTestResource:
		return "test-resource"
	case CategoryConfig:
		return "config"
	case CategoryRebootTrigger:
		return "reboot-trigger"
	default:
		return "unrelated"
	}
}

// IsTest reports whether the category lives under a test subtree.
func (c Category) IsTest() bool {
	return c == CategoryTestSource || c == CategoryTestResource
}

// Layout describes where a Maven project keeps its sources.
type Layout struct {
	Root           string
	RebootTriggers []string
}

var subtrees = []struct {
	prefix   string
	category Category
}{
	{"src/main/java/", CategorySource},
	{"src/main/resources/", CategoryResource},
	{"src/main/webapp/", CategoryResource},
	{"src/test/java/", CategoryTestSource},
	{"src/test/resources/", CategoryTestResource},
}

// sourceExtensions are compilable units for the incremental compile heuristic.
var sourceExtensions = []string{".java"}

const classifierCacheSize = 4096

// Classifier maps paths to categories. Classification is a pure function of
// the path and the layout; results are memoised because editors touch the
// same handful of files over and over.
type Classifier struct {
	layout Layout
	cache  *lru.Cache[string, Category]
}

// NewClassifier creates a classifier for the given project layout. The
// layout is copied; later changes to the caller's slice are not observed.
func NewClassifier(layout Layout) *Classifier {
	layout.RebootTriggers = slices.Clone(layout.RebootTriggers)
	cache, _ := lru.New[string, Category](classifierCacheSize)
	return &Classifier{layout: layout, cache: cache}
}

// Classify returns the category of path.
func (c *Classifier) Classify(path string) Category {
	if cat, ok := c.cache.Get(path); ok {
		return cat
	}
	cat := Classify(path, c.layout)
	c.cache.Add(path, cat)
	return cat
}

// IsSourceFile reports whether path is a compilable unit under the main
// source tree.
func (c *Classifier) IsSourceFile(path string) bool {
	return c.Classify(path) == CategorySource && slices.Contains(sourceExtensions, filepath.Ext(path))
}

// Classify categorises path against layout. Paths outside the project root
// are unrelated.
func Classify(path string, layout Layout) Category {
	rel, ok := relativeSlash(layout.Root, path)
	if !ok {
		return CategoryUnrelated
	}

	if slices.Contains(layout.RebootTriggers, filepath.Base(path)) {
		return CategoryRebootTrigger
	}

	for _, st := range subtrees {
		if strings.HasPrefix(rel, st.prefix) {
			return st.category
		}
	}

	if rel == "pom.xml" {
		return CategoryConfig
	}

	return CategoryUnrelated
}

// RelativePath returns path relative to root with '/' separators.
func RelativePath(root, path string) string {
	rel, ok := relativeSlash(root, path)
	if !ok {
		return filepath.ToSlash(path)
	}
	return rel
}

func relativeSlash(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}
