package os_sandbox

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// execve replaces the current process. Tests replace it.
var execve = unix.Exec

// Exec replaces the current process with the plan. It only returns on
// failure.
func (p *Plan) Exec(env []string) error {
	slog.Info("launching", "security_tag", p.SecurityTag, "classic", p.Classic, "path", p.Path)
	slog.Debug("launch argv", "argv", p.Argv)
	if err := execve(p.Path, p.Argv, env); err != nil {
		return fmt.Errorf("cannot exec %s: %w", p.Path, err)
	}
	return nil
}
