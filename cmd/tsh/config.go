package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/nixpig/tsh/internal/cgroups"
	"github.com/nixpig/tsh/internal/shell"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// config is filled from the optional YAML file first. Flags given on the
// command line win over the file.
type config struct {
	Verbose  bool   `yaml:"verbose"`
	NoPrompt bool   `yaml:"no-prompt"`
	Prompt   string `yaml:"prompt"`
	Debug    bool   `yaml:"debug"`

	ControlAddr string `yaml:"control-addr"`
	CertPath    string `yaml:"cert-path"`
	KeyPath     string `yaml:"key-path"`
	CACertPath  string `yaml:"ca-cert-path"`

	CgroupRoot string `yaml:"cgroup-root"`
	CPUMax     int64  `yaml:"cpu-max"`
	MemoryMax  string `yaml:"memory-max"`
	IOMax      string `yaml:"io-max"`

	configPath string
	limits     *cgroups.Limits
}

func (c *config) bindFlags(flags *pflag.FlagSet) {
	flags.BoolVarP(&c.Verbose, "verbose", "v", false, "Print additional diagnostic information")
	flags.BoolVarP(&c.NoPrompt, "no-prompt", "p", false, "Do not emit a command prompt")
	flags.StringVar(&c.Prompt, "prompt", shell.DefaultPrompt, "Command prompt")
	flags.BoolVar(&c.Debug, "debug", false, "Enable debug logs")
	flags.StringVar(&c.configPath, "config", "", "Path to YAML config file")

	flags.StringVar(
		&c.ControlAddr,
		"control-addr",
		"",
		"Address to serve the job control API on, e.g. localhost:8443 (disabled if empty)",
	)

	flags.StringVar(
		&c.CertPath,
		"cert-path",
		"certs/server.crt",
		"Path to control API TLS certificate",
	)

	flags.StringVar(
		&c.KeyPath,
		"key-path",
		"certs/server.key",
		"Path to control API TLS private key",
	)

	flags.StringVar(
		&c.CACertPath,
		"ca-cert-path",
		"certs/ca.crt",
		"Path to CA certificate for mTLS",
	)

	flags.StringVar(
		&c.CgroupRoot,
		"cgroup-root",
		"",
		"cgroup v2 root to create a cgroup per job under, e.g. /sys/fs/cgroup (disabled if empty)",
	)

	flags.Int64Var(&c.CPUMax, "cpu-max", 0, "CPU limit per job in percent of one CPU (0 for none)")
	flags.StringVar(&c.MemoryMax, "memory-max", "", "Memory limit per job, e.g. 512m (empty for none)")
	flags.StringVar(&c.IOMax, "io-max", "", "Read and write limit per job on the root device, e.g. 10m (empty for none)")
}

// load reads the config file, if one was given, without overriding flags
// that were set explicitly.
func (c *config) load(flags *pflag.FlagSet) error {
	if c.configPath == "" {
		return nil
	}

	explicit := map[string]string{}
	flags.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := c.decodeFile(c.configPath); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("restore flag %s: %w", name, err)
		}
	}

	return nil
}

func (c *config) decodeFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)

	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("%s: decode: %w", absPath, err)
	}

	return nil
}

func (c *config) prompt() string {
	if c.NoPrompt {
		return ""
	}

	return c.Prompt
}

func (c *config) validate() error {
	if c.ControlAddr != "" {
		if _, _, err := net.SplitHostPort(c.ControlAddr); err != nil {
			return fmt.Errorf("invalid control-addr: %w", err)
		}

		if c.CertPath == "" {
			return errors.New("cert-path cannot be empty")
		}

		if _, err := os.Stat(c.CertPath); err != nil {
			return fmt.Errorf("failed to stat cert-path: %w", err)
		}

		if c.KeyPath == "" {
			return errors.New("key-path cannot be empty")
		}

		if _, err := os.Stat(c.KeyPath); err != nil {
			return fmt.Errorf("failed to stat key-path: %w", err)
		}

		if c.CACertPath == "" {
			return errors.New("ca-cert-path cannot be empty")
		}

		if _, err := os.Stat(c.CACertPath); err != nil {
			return fmt.Errorf("failed to stat ca-cert-path: %w", err)
		}
	}

	if c.CPUMax < 0 || c.CPUMax > 100 {
		return errors.New("cpu-max must be between 0 and 100")
	}

	memory, err := cgroups.ParseMemory(c.MemoryMax)
	if err != nil {
		return fmt.Errorf("invalid memory-max: %w", err)
	}

	io, err := cgroups.ParseMemory(c.IOMax)
	if err != nil {
		return fmt.Errorf("invalid io-max: %w", err)
	}

	limits := &cgroups.Limits{
		CPUMaxPercent:  c.CPUMax,
		MemoryMaxBytes: memory,
		IOMaxBPS:       io,
	}

	if !limits.IsZero() {
		if c.CgroupRoot == "" {
			return errors.New("cpu-max, memory-max and io-max require cgroup-root")
		}

		c.limits = limits
	}

	return nil
}
