package github

import "os/exec"

// CommandRunner abstracts shelling out so repository discovery is mockable
// in tests.
type CommandRunner interface {
	// RunInDir executes a command in dir and returns its combined output.
	RunInDir(dir, name string, args ...string) ([]byte, error)
}

// RealCommandRunner is the production implementation using os/exec.
type RealCommandRunner struct{}

func (r *RealCommandRunner) RunInDir(dir, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// MockCommandRunner returns canned output and records invocations.
type MockCommandRunner struct {
	RunInDirFunc func(dir, name string, args ...string) ([]byte, error)
	Calls        []MockCall
}

// MockCall is a single recorded invocation.
type MockCall struct {
	Dir  string
	Name string
	Args []string
}

func (m *MockCommandRunner) RunInDir(dir, name string, args ...string) ([]byte, error) {
	m.Calls = append(m.Calls, MockCall{Dir: dir, Name: name, Args: args})
	if m.RunInDirFunc != nil {
		return m.RunInDirFunc(dir, name, args...)
	}
	return []byte(""), nil
}
