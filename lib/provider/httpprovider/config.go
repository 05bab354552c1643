package httpprovider

import (
	"time"

	"github.com/paddock/raceline/lib/provider"
)

// Endpoint describes one upstream resource. Path and Query values may contain
// the placeholders {race_type}, {date}, {track} and {race_no}.
type Endpoint struct {
	Path  string            `yaml:"path"`
	Query map[string]string `yaml:"query"`

	// Fields maps canonical field names (see provider.Field*) to gjson paths
	// relative to one item. Unmapped fields are read from the item key of
	// the same name.
	Fields map[string]string `yaml:"fields"`
}

// Endpoints groups the endpoint of every record kind.
type Endpoints struct {
	Schedules Endpoint `yaml:"schedules"`
	Entries   Endpoint `yaml:"entries"`
	Odds      Endpoint `yaml:"odds"`
	Results   Endpoint `yaml:"results"`
}

// Config defines a JSON-over-HTTP provider.
type Config struct {
	BaseURL string `yaml:"base_url" validate:"nonzero"`

	// ServiceKey is sent as query parameter ServiceKeyParam on every request.
	ServiceKey      string `yaml:"service_key"`
	ServiceKeyParam string `yaml:"service_key_param"`

	Timeout time.Duration `yaml:"timeout"`

	// ItemsPath is the gjson path of the item list within a response. A
	// single object at ItemsPath is treated as a list of one.
	ItemsPath string `yaml:"items_path"`

	// ResultCodePath, if set, is the gjson path of an in-band result code
	// which must equal SuccessCode.
	ResultCodePath string `yaml:"result_code_path"`
	SuccessCode    string `yaml:"success_code"`

	Endpoints Endpoints `yaml:"endpoints"`
}

func (c Config) applyDefaults() Config {
	if c.ServiceKeyParam == "" {
		c.ServiceKeyParam = "serviceKey"
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.ItemsPath == "" {
		c.ItemsPath = "response.body.items.item"
	}
	if c.ResultCodePath != "" && c.SuccessCode == "" {
		c.SuccessCode = "00"
	}
	return c
}

// Canonical fields read for each record kind.
var (
	_scheduleFields = []string{
		provider.FieldTrack,
		provider.FieldTrackName,
		provider.FieldRaceNo,
		provider.FieldStartTime,
		provider.FieldDistance,
		provider.FieldGrade,
	}
	_entryFields = []string{
		provider.FieldEntryNo,
		provider.FieldName,
		provider.FieldRider,
		provider.FieldTrainer,
		provider.FieldWeight,
		provider.FieldScratched,
	}
	_oddsFields = []string{
		provider.FieldEntryNo,
		provider.FieldWin,
		provider.FieldPlace,
	}
	_resultFields = []string{
		provider.FieldEntryNo,
		provider.FieldRank,
		provider.FieldFinishTime,
		provider.FieldWinPayout,
		provider.FieldPlacePayout,
	}
)
