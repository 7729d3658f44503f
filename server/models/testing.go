package models

import (
	"os"
)

const testPassPhrase = "test-pass-phrase"

// InitializeTestDb points the package at a fresh encrypted db in a temp directory
func InitializeTestDb() {
	dir, err := os.MkdirTemp("", "safecircle-test-db-")
	if err != nil {
		logg.Panic(err)
	}

	err = AutoMigrate(testPassPhrase, dir)
	if err != nil {
		logg.Panic(err)
	}
}
