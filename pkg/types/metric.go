// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// MetricScope classifies the geographic coverage of a reported value.
type MetricScope string

const (
	ScopeGlobal   MetricScope = "Global"
	ScopeRegional MetricScope = "Regional"
	ScopeCountry  MetricScope = "Country-Specific"
)

// MetricFlag marks whether a value covers the full reporting boundary.
type MetricFlag string

const (
	FlagFull    MetricFlag = "Full"
	FlagPartial MetricFlag = "Partial"
)

// MetricClassification separates a company's own consumption from its
// supply chain's.
type MetricClassification string

const (
	ClassOperational MetricClassification = "Operational Consumption"
	ClassSupplyChain MetricClassification = "Supply Chain Consumption"
)

// MetricRecord is one extracted energy-consumption metric. Value and Year
// are deliberately untyped: the model sometimes returns them as numbers and
// sometimes as strings, and ground-truth labels do the same. Comparison
// normalizes both sides (see internal/evaluate).
type MetricRecord struct {
	// Code is the metric code from the catalog (e.g. "E1-TEC").
	Code string `json:"code" yaml:"code"`

	// Item is the human-readable metric name.
	Item string `json:"item,omitempty" yaml:"item,omitempty"`

	// Value is the raw numerical value as reported, or -1 when the
	// metric is not disclosed.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`

	// Unit is the unit of measurement as printed in the report.
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`

	// Year is the reporting year the value refers to.
	Year any `json:"year,omitempty" yaml:"year,omitempty"`

	// Page is the page number where the value appears.
	Page int `json:"page,omitempty" yaml:"page,omitempty"`

	// Snippet is the text fragment supporting the value.
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	Scope      MetricScope `json:"scope,omitempty" yaml:"scope,omitempty"`
	Flag       MetricFlag  `json:"flag,omitempty" yaml:"flag,omitempty"`
	FlagReason string      `json:"flag_reason,omitempty" yaml:"flag_reason,omitempty"`

	Classification MetricClassification `json:"classification,omitempty" yaml:"classification,omitempty"`
}

// ReportMetadata holds the document-level fields extracted in the metadata
// step of the multi-step workflow (and inline in single-step output).
type ReportMetadata struct {
	CompanyName     string `json:"company_name" yaml:"company_name"`
	ReportTitle     string `json:"report_title" yaml:"report_title"`
	ReportingPeriod string `json:"reporting_period" yaml:"reporting_period"`
	Publisher       string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
}

// ExtractionOutput is the single-step response shape: document metadata
// plus the full metrics array under a top-level "metrics" key.
type ExtractionOutput struct {
	Metadata ReportMetadata `json:"metadata" yaml:"metadata"`
	Metrics  []MetricRecord `json:"metrics" yaml:"metrics"`
}

// CatalogEntry is one known metric in the catalog rendered into prompts.
type CatalogEntry struct {
	Code        string `yaml:"code"`
	Item        string `yaml:"item"`
	Description string `yaml:"description,omitempty"`
}

// MetricCatalog is the list of metric codes the model is asked to look for.
type MetricCatalog struct {
	Metrics []CatalogEntry `yaml:"metrics"`
}
