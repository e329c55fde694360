package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
)

// ErrInvalidShader is returned when processed WGSL fails to parse.
var ErrInvalidShader = errors.New("invalid WGSL")

// Validate parses, lowers and validates processed WGSL with naga. Syntax errors are fatal.
// Lowering and validation findings are only logged as warnings; the driver validates the
// module again when it is created.
//
// Parameters:
//   - source: the processed WGSL source
//
// Returns:
//   - error: an error wrapping ErrInvalidShader if the source is rejected
func Validate(source string) error {
	ast, err := naga.Parse(source)
	if err != nil {
		return tolerate("parse", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		logger.Warningf("naga lower: %v", err)
		return nil
	}
	issues, err := naga.Validate(module)
	if err != nil {
		logger.Warningf("naga validate: %v", err)
		return nil
	}
	for _, issue := range issues {
		logger.Warningf("naga validate: %v", issue)
	}
	return nil
}

func tolerate(stage string, err error) error {
	if IsUnsupported(err) {
		logger.Warningf("naga %s skipped: %v", stage, err)
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrInvalidShader, stage, err)
}

// IsUnsupported reports whether a naga error names a feature naga does not implement yet.
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not yet implemented") ||
		strings.Contains(msg, "not implemented") ||
		strings.Contains(msg, "unsupported")
}
