package feeder

import (
	"encoding/json"
	"fmt"
	"os"
)

// NewJSONFeeder creates a feeder from the given file path.
// The file must contain a JSON array of objects.
func NewJSONFeeder(path string, strategy Strategy) (Feeder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open JSON file: %w", err)
	}
	defer file.Close()

	var rawRecords []map[string]interface{}
	decoder := json.NewDecoder(file)
	decoder.UseNumber()
	if err := decoder.Decode(&rawRecords); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	if len(rawRecords) == 0 {
		return nil, fmt.Errorf("JSON file contains empty array")
	}

	records := make([]Record, 0, len(rawRecords))
	for i, rawRecord := range rawRecords {
		record := make(Record, len(rawRecord))
		for key, value := range rawRecord {
			// Convert all values to strings
			record[key] = fmt.Sprintf("%v", value)
		}
		if len(record) == 0 {
			return nil, fmt.Errorf("record %d is empty", i)
		}
		records = append(records, record)
	}

	return newMemoryFeeder(records, strategy)
}
