// Package shellpath resolves command names to executable paths.
//
// A process started from a desktop launcher or a service manager frequently
// inherits a minimal PATH that differs from the PATH of the user's interactive
// shell (where tools like npx, uvx or docker are usually installed).
// Resolver looks the command up in both.
package shellpath

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// shellPathTimeout bounds how long the login shell may take to report its PATH.
const shellPathTimeout = 3 * time.Second

// Resolver maps a command name to an executable path.
// The zero value is not usable, use New.
type Resolver struct {
	// lookHost searches the PATH of the current process.
	lookHost func(command string) (string, bool)

	// lookPath searches a single PATH list for the command.
	lookPath func(command, pathList string) (string, bool)

	// shellPath returns the PATH of the user's login shell.
	shellPath func() string

	once      sync.Once
	shellPATH string
}

// Default is the resolver used by Resolve.
var Default = New()

// Resolve resolves command using the Default resolver.
func Resolve(command string) string {
	return Default.Resolve(command)
}

// New returns a Resolver that consults the host PATH first and the login shell's PATH second.
func New() *Resolver {
	return &Resolver{
		lookHost:  lookHostPath,
		lookPath:  lookPathIn,
		shellPath: loginShellPath,
	}
}

// Resolve returns the absolute path of the executable for command.
// It never fails: if the command cannot be resolved, it is returned unchanged
// so that spawning it still fails with a clear error from the OS.
func (r *Resolver) Resolve(command string) string {
	if command == "" || strings.ContainsRune(command, os.PathSeparator) || strings.ContainsRune(command, '/') {
		return command
	}
	if p, ok := r.lookHost(command); ok {
		return p
	}
	if p, ok := r.lookPath(command, r.loginShellPATH()); ok {
		return p
	}
	return command
}

// ShellPATH returns the PATH reported by the user's login shell, or an empty string.
// The shell is only asked once per Resolver.
func (r *Resolver) ShellPATH() string {
	return r.loginShellPATH()
}

func (r *Resolver) loginShellPATH() string {
	r.once.Do(func() {
		r.shellPATH = r.shellPath()
	})
	return r.shellPATH
}

// lookHostPath resolves command against the PATH of the current process.
// Results relative to the working directory are rejected.
func lookHostPath(command string) (string, bool) {
	p, err := exec.LookPath(command)
	if err != nil {
		return "", false
	}
	return p, true
}

// lookPathIn searches each directory of pathList for an executable named command.
// exec.LookPath only consults the process PATH, so the login shell's PATH is walked here.
func lookPathIn(command, pathList string) (string, bool) {
	if pathList == "" {
		return "", false
	}
	candidates := []string{command}
	if runtime.GOOS == "windows" && filepath.Ext(command) == "" {
		candidates = candidates[:0]
		for _, ext := range strings.Split(os.Getenv("PATHEXT"), string(os.PathListSeparator)) {
			if ext != "" {
				candidates = append(candidates, command+strings.ToLower(ext))
			}
		}
	}
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		for _, name := range candidates {
			p := filepath.Join(dir, name)
			if isExecutable(p) {
				return p, true
			}
		}
	}
	return "", false
}

func isExecutable(p string) bool {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}

// loginShellPath asks the user's login shell for its PATH.
// On Windows, or when no shell is configured, it returns an empty string.
func loginShellPath() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	ctx, cancel := context.WithTimeout(context.Background(), shellPathTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, shell, "-ilc", `printf '%s' "$PATH"`).Output()
	if err != nil {
		return ""
	}
	// interactive shells may print banners before our output, the PATH is always the last line
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
