package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// file is the on-disk document shape shared by every format:
//
//	album:
//	  id: 1
//	  name: Animals
//	  sets:
//	    - id: 1
//	      name: Birds
//	      cards:
//	        - {id: 1, name: Eagle}
type file struct {
	Album *Album `yaml:"album" json:"album"`
}

// Load reads a catalog file, picking the decoder from its extension
// (.yaml, .yml, .json or .cue), and validates it.
func Load(path string) (Album, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Album{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog file not found: %s", path)}
	}
	if err != nil {
		return Album{}, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading catalog: %v", err)}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		return DecodeYAML(bytes.NewReader(data))
	case ".cue":
		return DecodeCUE(data, path)
	default:
		return Album{}, &LoadError{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported catalog extension %q", ext)}
	}
}

// DecodeYAML decodes and validates a YAML (or JSON) catalog document.
// Unknown fields are rejected so typos fail loudly.
func DecodeYAML(r io.Reader) (Album, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Album{}, &LoadError{Code: ErrCodeNoAlbum, Message: "catalog document is empty"}
		}
		return Album{}, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("parsing catalog: %v", err)}
	}
	if doc.Album == nil {
		return Album{}, &LoadError{Code: ErrCodeNoAlbum, Message: "catalog has no album section"}
	}
	return Prepare(*doc.Album)
}

// DecodeCUE compiles a CUE catalog and decodes its "album" field.
// filename is used only for error positions.
func DecodeCUE(src []byte, filename string) (Album, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return Album{}, cueLoadError(ErrCodeBuildFailed, "building CUE value", err)
	}

	albumVal := value.LookupPath(cue.ParsePath("album"))
	if !albumVal.Exists() {
		return Album{}, &LoadError{Code: ErrCodeNoAlbum, Message: "catalog has no album field"}
	}
	if err := albumVal.Validate(cue.Concrete(true)); err != nil {
		return Album{}, cueLoadError(ErrCodeBuildFailed, "album is not concrete", err)
	}

	var album Album
	if err := albumVal.Decode(&album); err != nil {
		return Album{}, cueLoadError(ErrCodeParseFailed, "decoding album", err)
	}
	return Prepare(album)
}

func cueLoadError(code, msg string, err error) *LoadError {
	le := &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", msg, err)}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		le.Pos = errs[0].Position()
	}
	return le
}

// Prepare normalizes names and checks catalog invariants. Catalogs built
// in code rather than loaded from a file go through it before NewIndex.
func Prepare(a Album) (Album, error) {
	normalize(&a)
	if err := Validate(a); err != nil {
		return Album{}, err
	}
	return a, nil
}

// normalize trims names and puts them in Unicode NFC so that visually equal
// names compare and hash equal.
func normalize(a *Album) {
	a.Name = normName(a.Name)
	for i := range a.Sets {
		s := &a.Sets[i]
		s.Name = normName(s.Name)
		for j := range s.Cards {
			s.Cards[j].Name = normName(s.Cards[j].Name)
		}
	}
}

func normName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Validate checks the invariants the tracker relies on: at least one set,
// unique set ids, and every card id in exactly one set.
func Validate(a Album) error {
	if len(a.Sets) == 0 {
		return &LoadError{Code: ErrCodeNoSets, Message: fmt.Sprintf("album %d has no sets", a.ID)}
	}

	sets := make(map[SetID]bool, len(a.Sets))
	owner := make(map[CardID]SetID, a.CardCount())
	for _, s := range a.Sets {
		if sets[s.ID] {
			return &LoadError{Code: ErrCodeDuplicateSet, Message: fmt.Sprintf("set %d declared more than once", s.ID)}
		}
		sets[s.ID] = true

		for _, c := range s.Cards {
			if prev, dup := owner[c.ID]; dup {
				return &LoadError{
					Code:    ErrCodeDuplicateCard,
					Message: fmt.Sprintf("card %d appears in set %d and set %d", c.ID, prev, s.ID),
				}
			}
			owner[c.ID] = s.ID
		}
	}
	return nil
}
