package main

import (
	"os"

	"github.com/caarlos0/env/v11"
	"go.yaml.in/yaml/v3"

	"github.com/etnz/deb-assembler/session"
)

// Config is a business object holding the application's configuration.
type Config struct {
	// Session carries the packaging inputs and asset locations.
	Session session.Config
	// Architecture pins the target architecture; empty queries dpkg.
	Architecture string
	// Mirror selects the tree-mirror implementation ("rsync" or "native").
	Mirror string
	// Builder selects the archiver implementation ("dpkg-deb" or "native").
	Builder string
	// Scan enables the best-effort dependency scan.
	Scan bool
	// GPGKey is the armored private key used to sign the checksum sidecar.
	GPGKey string
}

// decodeConfig reads the optional YAML config file. A missing file is not
// an error; every setting has a default further down the stack.
func decodeConfig(path string) (*Config, error) {
	// Internal DTOs for YAML deserialization
	type yamlPackage struct {
		Name        string `yaml:"name"`
		Maintainer  string `yaml:"maintainer"`
		Description string `yaml:"description"`
		Homepage    string `yaml:"homepage"`
	}
	type yamlPaths struct {
		ControlTemplate string `yaml:"control_template"`
		Preinst         string `yaml:"preinst"`
		Postinst        string `yaml:"postinst"`
		Icon            string `yaml:"icon"`
		ScanBinary      string `yaml:"scan_binary"`
	}
	type yamlConfig struct {
		Package      yamlPackage `yaml:"package"`
		Paths        yamlPaths   `yaml:"paths"`
		Architecture string      `yaml:"architecture"`
		Mirror       string      `yaml:"mirror"`
		Builder      string      `yaml:"builder"`
		Scan         *bool       `yaml:"scan"`
	}

	config := &Config{Scan: true}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}

	var dto yamlConfig
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, err
	}

	// Map DTO to business object
	config.Session = session.Config{
		PackageName:     dto.Package.Name,
		Maintainer:      dto.Package.Maintainer,
		Description:     dto.Package.Description,
		Homepage:        dto.Package.Homepage,
		ControlTemplate: dto.Paths.ControlTemplate,
		PreinstScript:   dto.Paths.Preinst,
		PostinstScript:  dto.Paths.Postinst,
		IconSource:      dto.Paths.Icon,
		ScanBinary:      dto.Paths.ScanBinary,
	}
	config.Architecture = dto.Architecture
	config.Mirror = dto.Mirror
	config.Builder = dto.Builder
	if dto.Scan != nil {
		config.Scan = *dto.Scan
	}
	return config, nil
}

// envConfig is the environment overlay applied on top of the YAML file.
type envConfig struct {
	Arch       string `env:"DEB_HOST_ARCH"`
	Maintainer string `env:"DEB_MAINTAINER"`
	GPGKey     string `env:"GPG_PRIVATE_KEY"`
}

// applyEnv overlays environment variables on the configuration.
func applyEnv(config *Config, environ []string) error {
	var e envConfig
	err := env.ParseWithOptions(&e, env.Options{
		Environment: env.ToMap(environ),
	})
	if err != nil {
		return err
	}

	if e.Arch != "" {
		config.Architecture = e.Arch
	}
	if e.Maintainer != "" {
		config.Session.Maintainer = e.Maintainer
	}
	if e.GPGKey != "" {
		config.GPGKey = e.GPGKey
	}
	return nil
}
