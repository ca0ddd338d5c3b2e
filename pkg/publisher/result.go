package publisher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ResultFile is the artifact written by WriteResult.
const ResultFile = "review-result.json"

// WriteResult writes result to outputDir as review-result.json,
// creating the directory when needed.
func WriteResult(outputDir string, result Result) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if result.PublishedAt.IsZero() {
		result.PublishedAt = time.Now()
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal review result: %w", err)
	}

	resultPath := filepath.Join(outputDir, ResultFile)
	if err := os.WriteFile(resultPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write review result: %w", err)
	}

	return nil
}

// ReadResult reads a review result from the output directory.
func ReadResult(outputDir string) (Result, error) {
	var result Result

	data, err := os.ReadFile(filepath.Join(outputDir, ResultFile))
	if err != nil {
		return result, fmt.Errorf("failed to read review result: %w", err)
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal review result: %w", err)
	}

	return result, nil
}
