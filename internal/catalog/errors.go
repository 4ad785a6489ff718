package catalog

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// ErrUnknownCard is matched by every *UnknownCardError via errors.Is.
var ErrUnknownCard = errors.New("unknown card")

// UnknownCardError reports a card id that no set in the catalog contains.
type UnknownCardError struct {
	CardID CardID
}

func (e *UnknownCardError) Error() string {
	return fmt.Sprintf("card %d is not registered in any set", e.CardID)
}

// Is lets errors.Is(err, ErrUnknownCard) match without errors.As.
func (e *UnknownCardError) Is(target error) bool {
	return target == ErrUnknownCard
}

// Error codes reported by Load. E0xx are I/O and syntax problems, E1xx are
// catalog invariant violations.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeReadFailed  = "E002"
	ErrCodeFormat      = "E003"
	ErrCodeParseFailed = "E004"
	ErrCodeNotFound    = "E005"
	ErrCodeBuildFailed = "E006"

	ErrCodeNoAlbum       = "E101"
	ErrCodeNoSets        = "E102"
	ErrCodeDuplicateSet  = "E103"
	ErrCodeDuplicateCard = "E104"
)

// LoadError describes why a catalog file could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // set for CUE sources when the position is known
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadErrorCode returns the code of a *LoadError anywhere in err's chain,
// or the empty string.
func LoadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
