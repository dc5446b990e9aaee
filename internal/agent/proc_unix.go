//go:build !windows

package agent

import (
	"os/exec"
	"syscall"
)

// setProcGroup places the worker in its own process group so that stop
// signals also reach any children it spawns.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate requests graceful termination of the worker's process group.
func terminate(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}

// forceKill kills the worker's process group without further grace.
func forceKill(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
