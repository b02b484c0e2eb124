package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a project does not exist.
var ErrNotFound = errors.New("not found")

// Metadata keys written by the indexer.
const (
	MetaIndexedAt     = "indexed_at"
	MetaActiveProject = "active_project"
	MetaCatalogDirs   = "catalog_dirs"
)

// ProjectSummary describes a stored project without its services.
type ProjectSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Source       string    `json:"source,omitempty"`
	ServiceCount int       `json:"service_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Stats holds statistics about the stored catalog.
type Stats struct {
	ProjectCount      int       `json:"project_count"`
	ServiceCount      int       `json:"service_count"`
	CommandCount      int       `json:"command_count"`
	SubscriptionCount int       `json:"subscription_count"`
	IndexedAt         time.Time `json:"indexed_at"`
}

// IndexMetadata holds metadata written to index.json for quick UI boot.
type IndexMetadata struct {
	Version      string    `json:"version"`
	BaseDir      string    `json:"base_dir"`
	IndexedAt    time.Time `json:"indexed_at"`
	ProjectCount int       `json:"project_count"`
	ServiceCount int       `json:"service_count"`
	Projects     []string  `json:"projects"`
}
