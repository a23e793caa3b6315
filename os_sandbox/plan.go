package os_sandbox

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/gartnera/lite-confine/config"
)

// EnvSecurityTag is set inside strict confinement to the security tag the
// process was launched with.
const EnvSecurityTag = "LITE_CONFINE_SECURITY_TAG"

// lookPath resolves binaries on PATH. Tests replace it.
var lookPath = exec.LookPath

// Request describes a launch after the command line has been parsed.
type Request struct {
	SecurityTag string
	Executable  string
	Args        []string // Arguments for Executable, without argv[0]
	Classic     bool
	WorkDir     string
	Profile     config.Profile
	Bwrap       string // bubblewrap binary; empty means look up "bwrap" on PATH
}

// Plan is a fully resolved command ready to replace the current process.
type Plan struct {
	SecurityTag string   `json:"security_tag"`
	Classic     bool     `json:"classic"`
	Path        string   `json:"path"`
	Argv        []string `json:"argv"`
}

// NewPlan resolves req into the command that will be executed. Classic
// requests run the executable directly; everything else runs under bwrap.
func NewPlan(req Request) (*Plan, error) {
	if req.SecurityTag == "" {
		return nil, errors.New("security tag is required")
	}
	if req.Executable == "" {
		return nil, errors.New("executable is required")
	}

	if req.Classic {
		path, err := resolve(req.Executable)
		if err != nil {
			return nil, err
		}
		argv := append([]string{req.Executable}, req.Args...)
		return &Plan{SecurityTag: req.SecurityTag, Classic: true, Path: path, Argv: argv}, nil
	}

	bwrap := req.Bwrap
	if bwrap == "" {
		var err error
		bwrap, err = lookPath("bwrap")
		if err != nil {
			return nil, fmt.Errorf("strict confinement requires bubblewrap: %w", err)
		}
	}

	workDir, err := filepath.Abs(req.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workDir: %w", err)
	}

	argv := append([]string{bwrap}, bwrapArgs(req, workDir)...)
	return &Plan{SecurityTag: req.SecurityTag, Path: bwrap, Argv: argv}, nil
}

// bwrapArgs builds the bubblewrap arguments for a strict launch.
// Strategy: bind root read-only, add a writable tmpfs for /tmp, then the
// profile's read and write binds, then rebind workDir as writable.
// Later mounts override earlier ones, so the workDir bind comes last.
func bwrapArgs(req Request, workDir string) []string {
	args := []string{
		"--ro-bind", "/", "/",
		"--tmpfs", "/tmp",
	}
	for _, path := range req.Profile.ReadPaths {
		args = append(args, "--ro-bind", path, path)
	}
	for _, path := range req.Profile.WritePaths {
		args = append(args, "--bind", path, path)
	}
	args = append(args,
		"--bind", workDir, workDir,
		"--dev", "/dev",
		"--proc", "/proc",
		"--unshare-all",
	)
	if req.Profile.ShareNet == nil || *req.Profile.ShareNet {
		args = append(args, "--share-net")
	}
	args = append(args,
		"--die-with-parent",
		"--setenv", EnvSecurityTag, req.SecurityTag,
		"--chdir", workDir,
		"--",
		req.Executable,
	)
	return append(args, req.Args...)
}

// resolve finds executable on PATH unless it already names a file.
func resolve(executable string) (string, error) {
	if strings.Contains(executable, "/") {
		return executable, nil
	}
	path, err := lookPath(executable)
	if err != nil {
		return "", fmt.Errorf("cannot find executable %q: %w", executable, err)
	}
	return path, nil
}

// String renders the plan as a shell command line.
func (p *Plan) String() string {
	words := make([]string, 0, len(p.Argv))
	for i, arg := range p.Argv {
		if i == 0 {
			arg = p.Path
		}
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			// Only strings bash cannot represent, such as ones with NUL bytes.
			q = fmt.Sprintf("%q", arg)
		}
		words = append(words, q)
	}
	return strings.Join(words, " ")
}
