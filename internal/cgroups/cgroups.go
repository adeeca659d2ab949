// Package cgroups places launched jobs into cgroup v2 groups with optional
// CPU, memory and I/O limits.
package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
)

const (
	// DefaultRoot is the cgroup v2 unified hierarchy mount point.
	DefaultRoot = "/sys/fs/cgroup"

	namePrefix      = "tsh-"
	cpuPeriodMicros = 100000
	procMountinfo   = "/proc/self/mountinfo"
)

// Limits are the resource limits applied to every job's cgroup. Zero values
// mean unlimited.
type Limits struct {
	CPUMaxPercent  int64
	MemoryMaxBytes int64
	IOMaxBPS       int64
}

// IsZero reports whether no limit is set.
func (l *Limits) IsZero() bool {
	return l == nil || (l.CPUMaxPercent == 0 && l.MemoryMaxBytes == 0 && l.IOMaxBPS == 0)
}

// Cgroup is a single job's cgroup directory.
type Cgroup struct {
	name string
	path string
	fd   *os.File
}

// New creates the cgroup directory for a job under root and applies limits.
//
// Under the real unified hierarchy the directory is also opened so the job
// can be started directly inside it, see FD.
func New(root, name string, limits *Limits) (*Cgroup, error) {
	cg := &Cgroup{
		name: name,
		path: filepath.Join(root, namePrefix+name),
	}

	if err := os.MkdirAll(cg.path, 0755); err != nil {
		return nil, fmt.Errorf("make cgroup dir: %w", err)
	}

	if !limits.IsZero() {
		if err := cg.applyLimits(limits); err != nil {
			os.RemoveAll(cg.path)
			return nil, fmt.Errorf("apply cgroup limits: %w", err)
		}
	}

	if root == DefaultRoot {
		fd, err := os.Open(cg.path)
		if err != nil {
			os.RemoveAll(cg.path)
			return nil, fmt.Errorf("open cgroup dir: %w", err)
		}

		cg.fd = fd
	}

	return cg, nil
}

func (c *Cgroup) applyLimits(limits *Limits) error {
	if limits.CPUMaxPercent > 0 {
		quota := (limits.CPUMaxPercent * cpuPeriodMicros) / 100
		value := fmt.Sprintf("%d %d", quota, cpuPeriodMicros)

		if err := c.write("cpu.max", value); err != nil {
			return err
		}
	}

	if limits.MemoryMaxBytes > 0 {
		value := strconv.FormatInt(limits.MemoryMaxBytes, 10)

		if err := c.write("memory.max", value); err != nil {
			return err
		}
	}

	if limits.IOMaxBPS > 0 {
		device, err := detectRootDevice()
		if err != nil {
			return fmt.Errorf("detect root device: %w", err)
		}

		value := fmt.Sprintf("%s rbps=%d wbps=%d", device, limits.IOMaxBPS, limits.IOMaxBPS)

		if err := c.write("io.max", value); err != nil {
			return err
		}
	}

	return nil
}

func (c *Cgroup) write(file, value string) error {
	if err := os.WriteFile(filepath.Join(c.path, file), []byte(value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}

	return nil
}

// Join moves the process with the given pid into the cgroup.
func (c *Cgroup) Join(pid int) error {
	if err := c.write("cgroup.procs", strconv.Itoa(pid)); err != nil {
		return fmt.Errorf("add process to cgroup: %w", err)
	}

	return nil
}

// FD returns the open cgroup directory, or nil when the root is not the real
// unified hierarchy. The descriptor is only needed until the job has started
// and is released by CloseFD.
func (c *Cgroup) FD() *os.File {
	return c.fd
}

// CloseFD closes the cgroup directory descriptor, if open.
func (c *Cgroup) CloseFD() error {
	if c.fd == nil {
		return nil
	}

	err := c.fd.Close()
	c.fd = nil

	if err != nil {
		return fmt.Errorf("close cgroup fd: %w", err)
	}

	return nil
}

// Destroy removes the cgroup. The kernel refuses to remove a cgroup that
// still has live processes, e.g. grandchildren of an exited job.
func (c *Cgroup) Destroy() error {
	c.CloseFD()

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		// Not a real cgroupfs, so the limit files are regular files.
		if err := os.RemoveAll(c.path); err != nil {
			return fmt.Errorf("remove cgroup: %w", err)
		}
	}

	return nil
}

func (c *Cgroup) Name() string {
	return c.name
}

func (c *Cgroup) Path() string {
	return c.path
}

// Validate checks that root looks like a cgroup v2 hierarchy.
func Validate(root string) error {
	controllers := filepath.Join(root, "cgroup.controllers")
	if _, err := os.Stat(controllers); err != nil {
		return fmt.Errorf("cgroup root not valid at %s: %w", root, err)
	}

	return nil
}

// ParseMemory converts a memory quantity such as "512m" or "1g" into bytes.
// An empty string means unlimited.
func ParseMemory(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}

	bytes, err := units.RAMInBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid memory quantity %q: %w", value, err)
	}

	if bytes <= 0 {
		return 0, fmt.Errorf("invalid memory quantity %q: must be positive", value)
	}

	return bytes, nil
}

// FormatMemory renders a byte count for logs.
func FormatMemory(bytes int64) string {
	if bytes <= 0 {
		return "max"
	}

	return units.BytesSize(float64(bytes))
}

func detectRootDevice() (string, error) {
	mountinfo, err := os.ReadFile(procMountinfo)
	if err != nil {
		return "", fmt.Errorf("read mountinfo: %w", err)
	}

	for line := range strings.SplitSeq(string(mountinfo), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}

		if fields[4] == "/" {
			return fields[2], nil
		}
	}

	return "", fmt.Errorf("detect root device in %s", procMountinfo)
}
