package kouhai

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// errBadSyntax reports a malformed command syntax string.  Raised at
	// registration time, which makes it fatal at startup.
	errBadSyntax = errors.New("bad command syntax")

	// errBadArgument reports invalid invocation arguments.  Its message is
	// shown to the invoking user.
	errBadArgument = errors.New("invalid arguments")
)

// parameter is one bracketed clause of a command syntax string.
type parameter struct {
	name      string
	required  bool
	perm      Perm
	options   map[string]struct{} // nil when any value is accepted
	remainder bool                // consumes the rest of the argument string
}

func (p *parameter) optionList() string {
	opts := make([]string, 0, len(p.options))
	for opt := range p.options {
		opts = append(opts, opt)
	}
	sort.Strings(opts)
	return strings.Join(opts, "|")
}

// paramEntry is either a literal token (param nil) or a parameter.
type paramEntry struct {
	literal string
	param   *parameter
}

// paramSpec is the compiled form of a command's syntax string.
type paramSpec struct {
	entries []paramEntry
}

// compileParams compiles a syntax string once, at registration.  Clause
// grammar: a bare word is a literal; "<tag>" is required, "[tag]"
// optional; the tag may carry a "perm:" prefix, an "=opt1|opt2" value
// set, or a trailing "+" marking a remainder parameter.
//
//	<required> [optional] <mod:gated> <choice=this|that> <rest+>
func compileParams(syntax string) (spec paramSpec, err error) {
	if syntax == "" {
		return
	}
	clauses := strings.Fields(syntax)
	seen := map[string]struct{}{}
	for i, clause := range clauses {
		if len(clause) < 2 ||
			(clause[0] != '<' && clause[0] != '[') ||
			(clause[len(clause)-1] != '>' && clause[len(clause)-1] != ']') {
			spec.entries = append(spec.entries, paramEntry{literal: clause})
			continue
		}

		p := &parameter{required: clause[0] == '<'}

		tag := clause[1 : len(clause)-1]
		if colon := strings.IndexByte(tag, ':'); 0 <= colon {
			perm, ok := permNames[tag[:colon]]
			if !ok {
				err = fmt.Errorf("%w: unknown permission %q", errBadSyntax, tag[:colon])
				return
			}
			p.perm = perm
			tag = tag[colon+1:]
		}
		if eq := strings.IndexByte(tag, '='); 0 <= eq {
			p.name = tag[:eq]
			p.options = map[string]struct{}{}
			for _, opt := range strings.Split(tag[eq+1:], "|") {
				p.options[opt] = struct{}{}
			}
		} else if strings.HasSuffix(tag, "+") {
			if i != len(clauses)-1 {
				err = fmt.Errorf("%w: remainder parameter must be last", errBadSyntax)
				return
			}
			p.remainder = true
			p.name = tag[:len(tag)-1]
		} else {
			p.name = tag
		}

		if _, dup := seen[p.name]; dup || p.name == "" {
			err = fmt.Errorf("%w: duplicate or empty parameter name %q", errBadSyntax, p.name)
			return
		}
		seen[p.name] = struct{}{}

		// a required parameter after an optional one makes argument
		// counts ambiguous, except for a trailing remainder, which
		// absorbs whatever the optionals leave over
		if p.required && !p.remainder {
			for _, e := range spec.entries {
				if e.param != nil && !e.param.required {
					err = fmt.Errorf("%w: required parameter after an optional one", errBadSyntax)
					return
				}
			}
		}
		spec.entries = append(spec.entries, paramEntry{param: p})
	}
	return
}

// parseArgs validates an argument string against the spec and extracts
// parameter values by name.  Literals must match exactly; an enumerated
// optional whose piece is outside its value set is skipped without
// consuming the piece; permission-gated parameters are skipped when
// optional and denied when required.  A remainder parameter absorbs
// every unconsumed piece.
func (spec paramSpec) parseArgs(argString string, role Role) (map[string]string, error) {
	matched := map[string]string{}
	if len(spec.entries) == 0 {
		return matched, nil
	}
	if argString == "" {
		for _, e := range spec.entries {
			if e.param == nil || e.param.required {
				return nil, fmt.Errorf("%w: no argument(s) provided", errBadArgument)
			}
		}
		return matched, nil
	}

	var args []string
	if last := spec.entries[len(spec.entries)-1]; last.param != nil && last.param.remainder {
		args = strings.SplitN(strings.TrimSpace(argString), " ", len(spec.entries))
	} else {
		args = strings.Split(strings.TrimSpace(argString), " ")
	}

	minArgs := 0
	for _, e := range spec.entries {
		if e.param == nil || e.param.required {
			minArgs++
		}
	}
	if len(args) < minArgs || len(spec.entries) < len(args) {
		return nil, fmt.Errorf("%w: too few/many arguments (%d-%d required)",
			errBadArgument, minArgs, len(spec.entries))
	}

	next := 0
	for _, e := range spec.entries {
		if next >= len(args) {
			if e.param == nil || e.param.required {
				return nil, fmt.Errorf("%w: too few arguments (%d-%d required)",
					errBadArgument, minArgs, len(spec.entries))
			}
			continue
		}
		if e.param == nil {
			if args[next] != e.literal {
				return nil, fmt.Errorf("%w: expected %q, got %q", errBadArgument, e.literal, args[next])
			}
			next++
			continue
		}
		p := e.param
		arg := args[next]
		if p.remainder {
			arg = strings.Join(args[next:], " ")
		}
		if p.options != nil {
			if _, ok := p.options[arg]; !ok {
				if !p.required {
					continue
				}
				return nil, fmt.Errorf("%w: %q is not one of %s", errBadArgument, arg, p.optionList())
			}
		}
		if uint(role) < uint(p.perm) {
			if p.required {
				return nil, fmt.Errorf("%w: insufficient permissions for parameter %q (%s)",
					errBadArgument, p.name, p.perm)
			}
			next++
			continue
		}
		matched[p.name] = arg
		if p.remainder {
			next = len(args)
		} else {
			next++
		}
	}
	if next < len(args) {
		return nil, fmt.Errorf("%w: unexpected argument %q", errBadArgument, args[next])
	}
	return matched, nil
}
