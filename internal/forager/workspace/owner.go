package workspace

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ownerSuffix names the marker file written next to each workspace directory
// while a process is using it. It sits outside the checkout so that staging
// never picks it up.
const ownerSuffix = ".owner"

func (m *Manager) ownerPath(id string) string {
	return m.Path(id) + ownerSuffix
}

// claim records the current process as the owner of workspace id.
func (m *Manager) claim(id string) error {
	pid := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(m.ownerPath(id), []byte(pid), 0o644); err != nil {
		return fmt.Errorf("write owner file: %w", err)
	}
	return nil
}

// ownedByLiveProcess reports whether the owner file of workspace id names a
// process that is still running. A missing or malformed file means unowned.
func (m *Manager) ownedByLiveProcess(id string) bool {
	data, err := os.ReadFile(m.ownerPath(id))
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}
	return processAlive(pid)
}

// processAlive probes pid with signal 0. EPERM means the process exists but
// belongs to another user.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
