package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed report.schema.json
var reportSchemaJSON string

var (
	reportSchemaOnce sync.Once
	reportSchema     *jsonschema.Schema
	reportSchemaErr  error
)

func compiledReportSchema() (*jsonschema.Schema, error) {
	reportSchemaOnce.Do(func() {
		reportSchema, reportSchemaErr = jsonschema.CompileString("report.schema.json", reportSchemaJSON)
	})
	return reportSchema, reportSchemaErr
}

// ValidateReport checks a raw REPORT message against the embedded schema.
func ValidateReport(raw []byte) error {
	s, err := compiledReportSchema()
	if err != nil {
		return fmt.Errorf("compile report schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}
