package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for reading rates files from local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based rates loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "shipping-loader").Logger(),
	}
}

// Load reads a JSON rates file and returns the rate table. The file
// holds an array of shipping methods.
func (l *fileLoader) Load(ctx context.Context, filePath string) (Rates, error) {
	l.logger.Info().Str("file", filePath).Msg("loading shipping rates file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open rates file")
		return nil, fmt.Errorf("failed to open rates file %s: %w", filePath, err)
	}
	defer file.Close()

	var methods []Method
	if err := json.NewDecoder(file).Decode(&methods); err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to decode rates file")
		return nil, fmt.Errorf("failed to decode rates file %s: %w", filePath, err)
	}

	if err := validateMethods(methods); err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("invalid rates file")
		return nil, fmt.Errorf("invalid rates file %s: %w", filePath, err)
	}

	rates := NewMapRates(methods)

	l.logger.Info().
		Str("file", filePath).
		Int("methods_loaded", rates.Size()).
		Msg("shipping rates loaded successfully")

	return rates, nil
}

// validateMethods rejects rate tables that could silently break pricing.
func validateMethods(methods []Method) error {
	if len(methods) == 0 {
		return fmt.Errorf("rates file contains no shipping methods")
	}
	for i, m := range methods {
		if m.ID == "" {
			return fmt.Errorf("method %d: id is required", i)
		}
		if m.Price < 0 {
			return fmt.Errorf("method %s: price must not be negative", m.ID)
		}
		if m.FreeShippingThreshold < 0 {
			return fmt.Errorf("method %s: free shipping threshold must not be negative", m.ID)
		}
	}
	return nil
}
