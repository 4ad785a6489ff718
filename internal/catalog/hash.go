package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// hashDomain separates catalog hashes from any other SHA-256 use.
const hashDomain = "cardbook/catalog/v1"

// Hash returns a content hash of the album that ignores declaration order of
// sets and cards. Two catalogs with the same ids and names hash equal.
//
// Format: hex(SHA256(domain + 0x00 + canonical JSON)).
func Hash(a Album) (string, error) {
	canonical, err := marshalCanonical(a)
	if err != nil {
		return "", fmt.Errorf("hash catalog: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// marshalCanonical sorts sets and cards by id and encodes with map keys in
// sorted order and no HTML escaping. Names are already NFC from Load.
func marshalCanonical(a Album) ([]byte, error) {
	sets := make([]map[string]any, 0, len(a.Sets))
	ordered := a.clone().Sets
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, s := range ordered {
		sort.Slice(s.Cards, func(i, j int) bool { return s.Cards[i].ID < s.Cards[j].ID })
		cards := make([]map[string]any, len(s.Cards))
		for i, c := range s.Cards {
			cards[i] = map[string]any{"id": int64(c.ID), "name": normName(c.Name)}
		}
		sets = append(sets, map[string]any{"id": int64(s.ID), "name": normName(s.Name), "cards": cards})
	}
	doc := map[string]any{"id": int64(a.ID), "name": normName(a.Name), "sets": sets}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
