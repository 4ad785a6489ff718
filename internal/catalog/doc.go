// Package catalog holds the immutable album structure cards are collected
// against, and the reverse index from card to owning set.
//
// A catalog is one Album made of Sets, each holding Cards. Every card id
// belongs to exactly one set. Catalogs are read from YAML, JSON or CUE files
// by Load, which validates that invariant once; after that nothing in the
// catalog changes and the Index is safe for concurrent readers without
// locking.
package catalog
