package commands

import "github.com/vsinha/mrpcore/pkg/domain/entities"

var exitCodes = map[string]int{
	entities.CodeInsufficientStock:    3,
	entities.CodeCircularReference:    4,
	entities.CodeInvalidTransition:    5,
	entities.CodeInvalidState:         5,
	entities.CodeComponentsIncomplete: 6,
	entities.CodeAmbiguousBOM:         7,
	entities.CodeNotFound:             8,
}

// ExitCode maps a command error to a process exit status. Errors outside
// the domain taxonomy exit 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := exitCodes[entities.ErrorCode(err)]; ok {
		return code
	}
	return 1
}
