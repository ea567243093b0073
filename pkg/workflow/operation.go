package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edgebind/edgebind/pkg/engine"
)

// Operation is one operator action against the binding target.
type Operation int

const (
	// OpCreate creates the edge deployment of the site.
	OpCreate Operation = iota + 1
	// OpInspect reads the edge deployment of the site.
	OpInspect
	// OpBind maps the edge deployment to the CDN service, retrying until it converges.
	OpBind
	// OpDetach removes the delivery integration between site and service.
	OpDetach
	// OpRemove deletes the edge deployment.
	OpRemove
	// OpRebindBackends resyncs the origins of a bound service.
	OpRebindBackends
)

type operationInfo struct {
	name        string
	title       string
	mutating    bool
	endsSession bool
}

var operations = map[Operation]operationInfo{
	OpCreate:         {"create", "Create edge deployment", true, false},
	OpInspect:        {"inspect", "Inspect edge deployment", false, false},
	OpBind:           {"bind", "Bind edge deployment to CDN service", true, true},
	OpDetach:         {"detach", "Detach CDN service", true, true},
	OpRemove:         {"remove", "Remove edge deployment", true, true},
	OpRebindBackends: {"rebind-backends", "Resync CDN service backends", true, false},
}

// Operations returns every operation in menu order.
func Operations() []Operation {
	return []Operation{OpCreate, OpInspect, OpBind, OpDetach, OpRemove, OpRebindBackends}
}

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	_, ok := operations[o]
	return ok
}

// String returns the command name of the operation.
func (o Operation) String() string {
	if info, ok := operations[o]; ok {
		return info.name
	}
	return "operation(" + strconv.Itoa(int(o)) + ")"
}

// Key returns the menu number of the operation.
func (o Operation) Key() string {
	return strconv.Itoa(int(o))
}

// Title returns the human-readable name of the operation.
func (o Operation) Title() string {
	return operations[o].title
}

// Mutating reports whether the operation changes provider state and needs confirmation.
func (o Operation) Mutating() bool {
	return operations[o].mutating
}

// EndsSession reports whether the interactive menu stops after the operation succeeds.
func (o Operation) EndsSession() bool {
	return operations[o].endsSession
}

// Confirmation returns the question asked before running the operation on target.
func (o Operation) Confirmation(t engine.Target) string {
	switch o {
	case OpCreate, OpRemove:
		return fmt.Sprintf("You are about to %s for corp %q and site %q. Continue?",
			strings.ToLower(o.Title()), t.Corp, t.Site)
	default:
		return fmt.Sprintf("You are about to %s for corp %q, site %q and service %q. Continue?",
			strings.ToLower(o.Title()), t.Corp, t.Site, t.ServiceID)
	}
}

// ParseOperation accepts a command name or a menu number.
func ParseOperation(s string) (Operation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		op := Operation(n)
		if op.Valid() {
			return op, nil
		}
	}
	for op, info := range operations {
		if info.name == s {
			return op, nil
		}
	}
	return 0, engine.NewPermanentError(fmt.Sprintf("invalid option %q", s), ErrInvalidChoice).
		WithCode(engine.ErrCodeValidation)
}
