// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bintool runs external binary-inspection tools (nm, objdump)
// and parses their text output into symbol tables and instruction
// streams.
package bintool // import "github.com/perfview/perfimport/bintool"

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
)

// A ToolError reports that a tool subprocess could not be spawned.
// A child that exits non-zero is not an error; its (possibly empty)
// output stands.
type ToolError struct {
	Cmd string
	Err error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("bintool: spawning %q: %v", e.Cmd, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// lineSource streams the stdout of one shell command line by line.
// The sequence is lazy, finite and non-restartable. Close reaps the
// child; it must be called on every exit path.
type lineSource struct {
	cmd *exec.Cmd
	out io.ReadCloser
	sc  *bufio.Scanner
}

// startLineSource runs command under /bin/sh -c with stdout piped.
// Stderr is discarded; command lines redirect it themselves.
func startLineSource(command string) (*lineSource, error) {
	cmd := exec.Command("/bin/sh", "-c", command)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ToolError{Cmd: command, Err: err}
	}
	if err := cmd.Start(); err != nil {
		out.Close()
		return nil, &ToolError{Cmd: command, Err: err}
	}
	sc := bufio.NewScanner(out)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &lineSource{cmd: cmd, out: out, sc: sc}, nil
}

// Next returns the next line without its trailing newline. ok is
// false at EOF.
func (s *lineSource) Next() (line string, ok bool) {
	if !s.sc.Scan() {
		return "", false
	}
	return s.sc.Text(), true
}

// Close closes the read end and reaps the child. The child's exit
// status is deliberately ignored.
func (s *lineSource) Close() error {
	s.out.Close()
	s.cmd.Wait()
	return nil
}
