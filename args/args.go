// Package args parses the launcher command line.
//
// The grammar is fixed:
//
//	[--classic] <security-tag> <executable> [args for the executable...]
//	--version
//
// Parse is the only place where the invoking process's argv is interpreted
// before a confinement decision is made. Anything outside the grammar is an
// error.
package args

import (
	"errors"
	"fmt"
	"strings"
)

// Domain identifies errors produced by this package.
const Domain = "args"

// LegacyName is the program name of the old launcher symlink. When argv[0]
// ends in this name the first positional argument is a repeated security tag
// and is discarded.
const LegacyName = "ubuntu-core-launcher"

// Code classifies an Error.
type Code int

const (
	// CodeGeneric reports a malformed call, not a malformed command line.
	CodeGeneric Code = 0
	// CodeUsage reports a command line the user got wrong.
	CodeUsage Code = 1
)

// Error is returned by Parse. Message is meant to be shown to the user as is.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Domain returns the error domain, always Domain.
func (e *Error) Domain() string {
	return Domain
}

func newError(code Code, format string, a ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

// IsUsage reports whether err, or any error it wraps, is a usage error.
func IsUsage(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeUsage
}

// Args is the result of a successful Parse.
type Args struct {
	securityTag  string
	executable   string
	versionQuery bool
	classic      bool
}

// SecurityTag returns the application or hook security tag. It is empty only
// for version queries.
func (a Args) SecurityTag() string { return a.securityTag }

// Executable returns the program to launch. It is empty only for version
// queries.
func (a Args) Executable() string { return a.executable }

// IsVersionQuery reports whether --version was given.
func (a Args) IsVersionQuery() bool { return a.versionQuery }

// IsClassicConfinement reports whether --classic was given.
func (a Args) IsClassicConfinement() bool { return a.classic }

// Release drops the strings held by a. It may be called on a nil pointer and
// more than once.
func (a *Args) Release() {
	if a == nil {
		return
	}
	*a = Args{}
}

// IsLegacyInvocation reports whether argv0 names the legacy launcher.
func IsLegacyInvocation(argv0 string) bool {
	return argv0[strings.LastIndexByte(argv0, '/')+1:] == LegacyName
}

// Parse parses argv, including the program name in argv[0].
//
// On success it returns the parsed arguments and a new argument vector made
// of argv[0] followed by every token after the one where scanning stopped.
// That vector is the command line left over for the launched program. argv
// itself is never modified.
func Parse(argv []string) (Args, []string, error) {
	if argv == nil {
		return Args{}, nil, newError(CodeGeneric, "cannot parse arguments, argv is nil")
	}
	if len(argv) == 0 {
		return Args{}, nil, newError(CodeGeneric, "cannot parse arguments, argc is zero")
	}

	var (
		a          Args
		haveTag    bool
		haveExe    bool
		tagPos     int
		exePos     int
		skipLegacy = IsLegacyInvocation(argv[0])
	)

	optind := 1
scan:
	for ; optind < len(argv); optind++ {
		arg := argv[optind]
		if strings.HasPrefix(arg, "-") {
			switch arg {
			case "--version":
				a.versionQuery = true
				break scan
			case "--classic":
				a.classic = true
				continue
			default:
				return Args{}, nil, newError(CodeUsage, "unrecognized command line option: %s", arg)
			}
		}

		if !haveTag {
			if skipLegacy {
				skipLegacy = false
				continue
			}
			a.securityTag = arg
			haveTag = true
			tagPos = optind
			continue
		}

		// The executable is the last token the launcher owns.
		a.executable = arg
		haveExe = true
		exePos = optind
		break
	}

	if !a.versionQuery {
		if !haveTag {
			return Args{}, nil, newError(CodeUsage, "application or hook security tag was not provided")
		}
		if a.securityTag == "" {
			return Args{}, nil, newError(CodeUsage, "empty command line argument at position %d", tagPos)
		}
		if !haveExe {
			return Args{}, nil, newError(CodeUsage, "executable name was not provided")
		}
		if a.executable == "" {
			return Args{}, nil, newError(CodeUsage, "empty command line argument at position %d", exePos)
		}
	}

	rest := make([]string, 0, len(argv)-optind)
	rest = append(rest, argv[0])
	if optind+1 < len(argv) {
		rest = append(rest, argv[optind+1:]...)
	}
	return a, rest, nil
}
