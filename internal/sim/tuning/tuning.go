package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// TileSize is the world-unit size of one schematic grid cell.
	TileSize     float64 `yaml:"tile_size" validate:"gt=0"`
	TierExponent float64 `yaml:"tier_exponent" validate:"gt=0"`

	NamesFile string `yaml:"names_file" validate:"required"`
	PartsDir  string `yaml:"parts_dir" validate:"required"`

	IndexDB    string `yaml:"index_db"`
	JournalDir string `yaml:"journal_dir"`
	Listen     string `yaml:"listen"`

	Log LogTuning `yaml:"log"`
}

type LogTuning struct {
	Level       string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

func Defaults() Tuning {
	return Tuning{
		TileSize:     8,
		TierExponent: 1.4,
		NamesFile:    "basepartnames",
		PartsDir:     "baseparts",
		IndexDB:      "./data/index.db",
		JournalDir:   "./data/journal",
		Listen:       ":8080",
		Log:          LogTuning{Level: "info"},
	}
}

// Load reads a tuning file on top of Defaults. A missing file is returned as
// an error satisfying os.IsNotExist together with the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	err := validator.New().Struct(t)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s (value: '%v')", e.Namespace(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("invalid tuning: %s", strings.Join(msgs, "; "))
}
