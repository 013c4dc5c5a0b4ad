package model

import "strings"

type AudioKeyword struct {
	Word           string   `json:"word,omitempty" yaml:"word"`
	CommonMistypes []string `json:"common_mistypes,omitempty" yaml:"common_mistypes"`
	Definition     string   `json:"definition,omitempty" yaml:"definition"`
}

type AudioOptions struct {
	IgnoreInvalidGeneratorOptions bool
	URL                           string
	AuthToken                     string
	Model                         string
	// Prompt optionally overrides the provider's default audio prompt behavior.
	// When Prompt is set, keyword hints are not appended.
	Prompt string
	// Keywords provides domain terms (street names, statute names, badge
	// prefixes) that transcription tends to miss.
	Keywords []AudioKeyword
}

// AudioFile is one recording or upload submitted for transcription.
type AudioFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

func (f AudioFile) Size() int64 {
	return int64(len(f.Data))
}

// Clone deep-copies the keyword list.
func (o AudioOptions) Clone() AudioOptions {
	cloned := o
	if len(o.Keywords) == 0 {
		cloned.Keywords = nil
		return cloned
	}

	cloned.Keywords = make([]AudioKeyword, len(o.Keywords))
	for i, keyword := range o.Keywords {
		keyword.CommonMistypes = append([]string(nil), keyword.CommonMistypes...)
		cloned.Keywords[i] = keyword
	}
	return cloned
}

// GeneratorConfig maps the connection settings onto a GeneratorConfig.
func (o AudioOptions) GeneratorConfig() GeneratorConfig {
	cfg := GeneratorConfig{
		IgnoreInvalidGeneratorOptions: o.IgnoreInvalidGeneratorOptions,
		URL:                           o.URL,
		AuthToken:                     o.AuthToken,
	}
	if modelName := strings.TrimSpace(o.Model); modelName != "" {
		cfg.Model = &modelName
	}
	return cfg
}

// NormalizedKeywords trims every entry and drops the ones left empty.
func (o AudioOptions) NormalizedKeywords() []AudioKeyword {
	normalized := make([]AudioKeyword, 0, len(o.Keywords))
	for _, keyword := range o.Keywords {
		word := strings.TrimSpace(keyword.Word)
		definition := strings.TrimSpace(keyword.Definition)
		var mistypes []string
		for _, candidate := range keyword.CommonMistypes {
			if candidate = strings.TrimSpace(candidate); candidate != "" {
				mistypes = append(mistypes, candidate)
			}
		}

		if word == "" && definition == "" && len(mistypes) == 0 {
			continue
		}
		normalized = append(normalized, AudioKeyword{
			Word:           word,
			CommonMistypes: mistypes,
			Definition:     definition,
		})
	}

	if len(normalized) == 0 {
		return nil
	}
	return normalized
}
