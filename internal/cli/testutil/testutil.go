// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/morph/pkg/adapters/sqlite"
	"github.com/leapstack-labs/morph/pkg/core"
)

// legacyDB is a small collection database with one hierarchy.
var legacyDB = []string{
	`CREATE TABLE agent (AgentID INTEGER PRIMARY KEY, LastName TEXT)`,
	`CREATE TABLE collection (CollectionID INTEGER PRIMARY KEY, Code TEXT)`,
	`CREATE TABLE collectionobject (
		CollectionObjectID INTEGER PRIMARY KEY,
		CollectionID INTEGER NOT NULL REFERENCES collection(CollectionID),
		CatalogNumber TEXT,
		CatalogerID INTEGER REFERENCES agent(AgentID)
	)`,
	`CREATE TABLE taxontreedef (TaxonTreeDefID INTEGER PRIMARY KEY, Name TEXT)`,
	`CREATE TABLE taxontreedefitem (
		TaxonTreeDefItemID INTEGER PRIMARY KEY,
		TaxonTreeDefID INTEGER REFERENCES taxontreedef(TaxonTreeDefID),
		Name TEXT
	)`,
	`CREATE TABLE taxon (
		TaxonID INTEGER PRIMARY KEY,
		ParentID INTEGER REFERENCES taxon(TaxonID),
		Name TEXT,
		TaxonTreeDefItemID INTEGER REFERENCES taxontreedefitem(TaxonTreeDefItemID)
	)`,
	`INSERT INTO agent VALUES (1, ' Smith ')`,
	`INSERT INTO collection VALUES (1, 'KU'), (2, 'OTHER')`,
	`INSERT INTO collectionobject VALUES (10, 1, 'a-1', 1), (11, 1, 'a-2', NULL), (20, 2, 'b-1', 1)`,
	`INSERT INTO taxontreedef VALUES (1, 'Taxonomy')`,
	`INSERT INTO taxontreedefitem VALUES (1, 1, 'Kingdom'), (2, 1, 'Genus')`,
	`INSERT INTO taxon VALUES (100, NULL, 'Animalia', 1), (101, 100, 'Danio', 2)`,
}

const projectConfig = `mapping: mapping.yaml
state_path: .morph/state.db
batch_size: 2
source:
  type: sqlite
  path: legacy.db
target:
  type: sqlite
  path: target.db
`

const projectMapping = `schemas:
  - name: people
    records:
      - name: Agent
        source: agent
        fields:
          - name: lastName
            from: LastName
            transform: trim

  - name: collection
    records:
      - name: Collection
        source: collection
        where:
          Code: KU
        fields:
          - name: code
            from: Code
        children:
          - name: Object
            source: collectionobject
            parent_column: CollectionID
            order_by: CatalogNumber
            fields:
              - name: catalogNumber
                from: CatalogNumber
                required: true
                transform: upper
              - name: cataloger
                type: link
                target: people.Agent
                from: CatalogerID

  - name: taxonomy
    records:
      - name: Taxon
        source: taxon
        tree:
          ranks: [Kingdom, Genus]
          definition_table: taxontreedef
          definition_id: 1
        fields:
          - name: name
            from: Name
`

// SetupTestProject creates a temporary project with a legacy SQLite
// database, a morph.yaml and a mapping. It returns the project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	adp := sqlite.New(nil)
	if err := adp.Connect(context.Background(), core.AdapterConfig{Path: filepath.Join(dir, "legacy.db")}); err != nil {
		t.Fatalf("failed to create legacy database: %v", err)
	}
	for _, stmt := range legacyDB {
		if err := adp.Exec(context.Background(), stmt); err != nil {
			_ = adp.Close()
			t.Fatalf("failed to seed legacy database: %v", err)
		}
	}
	if err := adp.Close(); err != nil {
		t.Fatalf("failed to close legacy database: %v", err)
	}

	WriteFile(t, dir, "morph.yaml", projectConfig)
	WriteFile(t, dir, "mapping.yaml", projectMapping)
	return dir
}

// WriteFile writes content to name under dir.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}
