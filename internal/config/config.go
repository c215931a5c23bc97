// Package config loads the optional deepsearch.yml file. File values
// seed the flag defaults; flags always win.
package config

import (
	"os"

	"github.com/jinzhu/configor"
	"github.com/pkg/errors"
)

const DefaultFile = "deepsearch.yml"

type File struct {
	Database    string `yaml:"database" default:"data.json"`
	ResultsDir  string `yaml:"results_dir" default:"results"`
	UserAgent   string `yaml:"user_agent"`
	TimeoutSecs int    `yaml:"timeout" default:"10"`
	Concurrency int    `yaml:"concurrency" default:"50"`
	Top         int    `yaml:"top"`
	Tor         bool   `yaml:"tor"`
	NoColor     bool   `yaml:"no_color"`
}

// Load reads the first existing path; no file at all is fine and
// yields the struct defaults.
func Load(paths ...string) (File, error) {
	var f File

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}

	if err := configor.New(&configor.Config{Silent: true}).Load(&f, existing...); err != nil {
		return File{}, errors.Wrap(err, "load config file")
	}
	return f, nil
}
