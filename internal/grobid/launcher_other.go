//go:build !unix

package grobid

import "os/exec"

func detach(*exec.Cmd) {}

// No process groups or SIGTERM here; both stop paths kill the shell.
func terminate(cmd *exec.Cmd) error { return cmd.Process.Kill() }

func kill(cmd *exec.Cmd) error { return cmd.Process.Kill() }
