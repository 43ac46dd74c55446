// Package require reads and writes the require file (spec.md §6): a YAML
// document tagged !require whose map is iid -> {version, guid,
// require_by: [iids]}, paired with a !define document carrying
// REQUIRE_REPO_REV. It is the on-disk cursor the index store's
// ReadRequireNode callback (indexstore.RequireLoader) is backed by.
package require

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/instl-engine/instl/internal/iid"
)

// Entry is one iid's require-file record.
type Entry struct {
	Version   string   `yaml:"version"`
	GUID      string   `yaml:"guid,omitempty"`
	RequireBy []string `yaml:"require_by,omitempty"`
}

// Document is the parsed form of a require file: the requirements map
// plus the repo revision it was captured at.
type Document struct {
	RepoRev      int
	Requirements map[string]Entry
}

// defineDoc mirrors the !define document's single field.
type defineDoc struct {
	RequireRepoRev int `yaml:"REQUIRE_REPO_REV"`
}

// Read parses a require file at path: a !define document followed by a
// !require document, each a standalone YAML document in the same
// stream (spec.md §6). yaml.v3's tag strings appear verbatim on each
// document's root node, so the two are told apart by tag rather than
// position.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("require: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes require-file content already read into memory.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	doc := &Document{Requirements: make(map[string]Entry)}

	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("require: parsing YAML: %w", err)
		}
		if len(node.Content) == 0 {
			continue
		}
		root := node.Content[0]
		switch root.Tag {
		case "!define":
			var def defineDoc
			if err := root.Decode(&def); err != nil {
				return nil, fmt.Errorf("require: decoding !define: %w", err)
			}
			doc.RepoRev = def.RequireRepoRev
		case "!require":
			var reqs map[string]Entry
			if err := root.Decode(&reqs); err != nil {
				return nil, fmt.Errorf("require: decoding !require: %w", err)
			}
			for k, v := range reqs {
				doc.Requirements[k] = v
			}
		default:
			return nil, fmt.Errorf("require: unrecognized document tag %q", root.Tag)
		}
	}
	return doc, nil
}

// Write renders doc back to a require file at path: a !define document
// (REQUIRE_REPO_REV) followed by a !require document (the requirements
// map), matching the source's write_require_file pairing.
func Write(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("require: creating %s: %w", path, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	defineNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!define",
	}
	if err := defineNode.Encode(defineDoc{RequireRepoRev: doc.RepoRev}); err != nil {
		return err
	}
	defineNode.Tag = "!define"
	if err := enc.Encode(defineNode); err != nil {
		return fmt.Errorf("require: encoding !define: %w", err)
	}

	requireNode := &yaml.Node{Tag: "!require"}
	if err := requireNode.Encode(doc.Requirements); err != nil {
		return err
	}
	requireNode.Tag = "!require"
	if err := enc.Encode(requireNode); err != nil {
		return fmt.Errorf("require: encoding !require: %w", err)
	}
	return nil
}

// ToItems converts a Document's requirements into bare iid.Item records
// carrying only Key/Version/Guids — enough for
// indexstore.Store.ReadRequireNode's RequireLoader to upsert, mirroring
// what the index otherwise learns from a full index parse. RequireBy
// references are not modeled as dependency edges here: they record who
// asked for the item, not what it depends on, so resolve.Index is left
// untouched by them.
func ToItems(doc *Document) []*iid.Item {
	items := make([]*iid.Item, 0, len(doc.Requirements))
	for key, e := range doc.Requirements {
		it := iid.NewItem(key)
		it.Version = e.Version
		if e.GUID != "" {
			it.Guids = []string{e.GUID}
		}
		items = append(items, it)
	}
	return items
}

// Loader returns an indexstore.RequireLoader backed by the require file
// at path, for wiring into Store.ReadRequireNode.
func Loader(path string) func(node string) ([]*iid.Item, int, error) {
	return func(node string) ([]*iid.Item, int, error) {
		doc, err := Read(path)
		if err != nil {
			return nil, 0, err
		}
		return ToItems(doc), doc.RepoRev, nil
	}
}
