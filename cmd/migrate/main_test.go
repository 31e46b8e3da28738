package main

import (
	"crypto/sha256"
	"testing"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_create_uploads.sql", true, "0001", "create_uploads"},
		{"0002_create_transactions.sql", true, "0002", "create_transactions"},
		{"001_invalid.sql", false, "", ""},       // wrong number format
		{"0001_test", false, "", ""},             // missing .sql
		{"0001.sql", false, "", ""},              // missing name
		{"invalid_0001_test.sql", false, "", ""}, // wrong order
		{"0003_two_part.name.sql", true, "0003", "two_part.name"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationFilePattern.FindStringSubmatch(tt.filename)
			if tt.valid {
				if matches == nil {
					t.Fatalf("%s should match", tt.filename)
				}
				if matches[1] != tt.version || matches[2] != tt.name {
					t.Errorf("got version %q name %q, want %q %q", matches[1], matches[2], tt.version, tt.name)
				}
			} else if matches != nil {
				t.Errorf("%s should not match, got %v", tt.filename, matches)
			}
		})
	}
}

func TestMigrationChecksumConsistency(t *testing.T) {
	content1 := []byte("CREATE TABLE test (id INT64);")
	content2 := []byte("CREATE TABLE test (id INT64);")
	content3 := []byte("CREATE TABLE different (id INT64);")

	if sha256.Sum256(content1) != sha256.Sum256(content2) {
		t.Error("same content must produce the same checksum")
	}
	if sha256.Sum256(content1) == sha256.Sum256(content3) {
		t.Error("different content must produce different checksums")
	}
}
