// Package hosts manages the system hosts file entries that redirect
// intercepted vendor hostnames to the loopback address.
//
// Entries are kept inside a marker-delimited block so apply is
// idempotent and revert never touches unrelated lines.
package hosts

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
)

const (
	beginMarker = "# lanlobby begin - managed block, do not edit"
	endMarker   = "# lanlobby end"
)

// ErrPrivilege indicates the hosts file could not be modified due to
// insufficient privilege. It is a fatal startup condition, distinct
// from transient I/O failures.
var ErrPrivilege = errors.New("insufficient privilege to modify hosts file")

// Manager applies and reverts loopback redirections in a hosts file.
type Manager struct {
	// Path is the hosts file location. Defaults to the platform hosts
	// file when empty.
	Path string
	// IP is the redirect target. Defaults to 127.0.0.1.
	IP string
}

// NewManager returns a Manager for the platform hosts file.
func NewManager() *Manager {
	return &Manager{Path: systemHostsPath(), IP: "127.0.0.1"}
}

func systemHostsPath() string {
	if runtime.GOOS == "windows" {
		root := os.Getenv("SystemRoot")
		if root == "" {
			root = `C:\Windows`
		}
		return root + `\System32\drivers\etc\hosts`
	}
	return "/etc/hosts"
}

func (m *Manager) ip() string {
	if m.IP == "" {
		return "127.0.0.1"
	}
	return m.IP
}

// Apply writes a managed block mapping each hostname to the loopback
// address, replacing any previous managed block. Safe to call when
// already applied.
func (m *Manager) Apply(hostnames []string) error {
	content, err := m.read()
	if err != nil {
		return err
	}

	if err := m.backup(content); err != nil {
		return err
	}

	kept := stripManagedBlock(content)

	var block strings.Builder
	block.WriteString(beginMarker + "\n")
	for _, h := range hostnames {
		fmt.Fprintf(&block, "%s %s\n", m.ip(), h)
	}
	block.WriteString(endMarker + "\n")

	out := kept
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	out += block.String()

	return m.write(out)
}

// Revert removes the managed block, restoring original resolution
// behavior. It is idempotent and leaves unrelated entries untouched.
func (m *Manager) Revert() error {
	content, err := m.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	kept := stripManagedBlock(content)
	if kept == content {
		return nil
	}
	return m.write(kept)
}

// Applied returns the hostnames currently redirected by the managed
// block, or an empty slice when no block is present.
func (m *Manager) Applied() ([]string, error) {
	content, err := m.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var hostnames []string
	inBlock := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == beginMarker:
			inBlock = true
		case trimmed == endMarker:
			inBlock = false
		case inBlock:
			fields := strings.Fields(trimmed)
			if len(fields) >= 2 {
				hostnames = append(hostnames, fields[1])
			}
		}
	}
	return hostnames, nil
}

func (m *Manager) read() (string, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return "", fmt.Errorf("%w: %s", ErrPrivilege, m.Path)
		}
		return "", err
	}
	return string(data), nil
}

func (m *Manager) write(content string) error {
	if err := os.WriteFile(m.Path, []byte(content), 0o644); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPrivilege, m.Path)
		}
		return fmt.Errorf("write hosts file: %w", err)
	}
	return nil
}

// backup saves the pre-modification hosts file next to the original.
// Only the first modification produces a backup; later applies keep it.
func (m *Manager) backup(content string) error {
	backupPath := m.Path + ".lanlobby.bak"
	if _, err := os.Stat(backupPath); err == nil {
		return nil
	}
	if err := os.WriteFile(backupPath, []byte(content), 0o644); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPrivilege, backupPath)
		}
		return fmt.Errorf("write hosts backup: %w", err)
	}
	return nil
}

// stripManagedBlock removes the marker-delimited block, leaving all
// other lines byte-for-byte intact.
func stripManagedBlock(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == beginMarker {
			inBlock = true
			continue
		}
		if trimmed == endMarker {
			inBlock = false
			continue
		}
		if !inBlock {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
