//go:build windows

package agent

import "os/exec"

// setProcGroup is a no-op on Windows; signals are not used there.
func setProcGroup(cmd *exec.Cmd) {}

// terminate kills the worker; Windows has no graceful signal equivalent.
func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

// forceKill kills the worker.
func forceKill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
