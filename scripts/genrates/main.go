package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Generates a sample shipping-rate file for local development. The
// server loads the same format from disk or S3 at startup.
func main() {
	dataDir := "data/shipping"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	methods := []map[string]any{
		{
			"id":                    "standard",
			"name":                  "Standard Post",
			"price":                 5000,
			"freeShippingThreshold": 200000,
		},
		{
			"id":                    "express",
			"name":                  "Express Courier",
			"price":                 15000,
			"freeShippingThreshold": 0,
		},
		{
			"id":                    "pickup",
			"name":                  "Store Pickup",
			"price":                 0,
			"freeShippingThreshold": 0,
		},
	}

	filePath := filepath.Join(dataDir, "rates.json")
	data, err := json.MarshalIndent(methods, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode rates: %v", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", filePath, err)
	}

	fmt.Printf("Created %s with %d shipping methods\n", filePath, len(methods))
}
