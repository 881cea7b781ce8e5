package config

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"text/template"

	cmtconfig "github.com/cometbft/cometbft/config"
)

var appConfigTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("appConfigFileTemplate")
	if appConfigTemplate, err = tmpl.Parse(defaultAppConfigTemplate); err != nil {
		panic(err)
	}
}

// WriteConfigFiles writes config.toml from the CometBFT template and app.toml
// from the embedded template into home/config.
func WriteConfigFiles(cfg *Config) error {
	dir := filepath.Join(cfg.RootDir, "config")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	cmtconfig.WriteConfigFile(filepath.Join(dir, CometConfigFile), cfg.Config)
	return WriteAppConfigFile(filepath.Join(dir, AppConfigFile), cfg)
}

func WriteAppConfigFile(configFilePath string, cfg *Config) error {
	var buffer bytes.Buffer
	if err := appConfigTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}
	return os.WriteFile(configFilePath, buffer.Bytes(), 0o644)
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go.
//
//go:embed app.toml.tpl
var defaultAppConfigTemplate string
