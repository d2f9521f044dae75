// Package assets provides embedded reference data for standalone binary
// behavior.
//
// The language catalog is embedded at compile time so target-language
// validation works regardless of the working directory or installation
// location.
package assets

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed languages.yaml
var languagesYAML []byte

// Language is one entry in the supported target language catalog.
type Language struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type languageCatalog struct {
	Languages []Language `yaml:"languages"`
}

var (
	languagesOnce sync.Once
	languageList  []Language
	languageSet   map[string]struct{}
	languagesErr  error
)

func loadLanguages() {
	var catalog languageCatalog
	if err := yaml.Unmarshal(languagesYAML, &catalog); err != nil {
		languagesErr = fmt.Errorf("parse embedded language catalog: %w", err)
		return
	}

	languageList = catalog.Languages
	languageSet = make(map[string]struct{}, len(catalog.Languages))
	for _, lang := range catalog.Languages {
		languageSet[lang.Code] = struct{}{}
	}
}

// SupportedLanguages returns the embedded target language catalog.
func SupportedLanguages() ([]Language, error) {
	languagesOnce.Do(loadLanguages)
	return languageList, languagesErr
}

// IsSupportedLanguage reports whether code is an accepted target language.
// An unparseable catalog rejects everything rather than failing open.
func IsSupportedLanguage(code string) bool {
	languagesOnce.Do(loadLanguages)
	if languagesErr != nil {
		return false
	}
	_, ok := languageSet[code]
	return ok
}
