// Package mcp exposes indexing and semantic code search as Model Context
// Protocol tools.
package mcp

// SearchCodeInput defines the input parameters for the search_code tool.
type SearchCodeInput struct {
	Query      string `json:"query" jsonschema:"natural-language description of the code to find"`
	Collection string `json:"collection,omitempty" jsonschema:"collection (project) to search; defaults to the configured collection"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of entities to return (default 5)"`
}

// SearchCodeOutput contains the search results.
type SearchCodeOutput struct {
	Results []CodeMatch `json:"results"`
	// Message provides informational context (e.g., "No matching code found").
	Message string `json:"message,omitempty"`
}

// CodeMatch is one function or class ranked by similarity to the query.
type CodeMatch struct {
	FilePath    string  `json:"file_path"`
	EntityType  string  `json:"entity_type"`
	EntityName  string  `json:"entity_name"`
	StartLine   int     `json:"start_line"`
	EndLine     int     `json:"end_line"`
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
	Code        string  `json:"code"`
}

// IndexCodebaseInput defines the input parameters for the index_codebase tool.
type IndexCodebaseInput struct {
	Root       string `json:"root,omitempty" jsonschema:"local directory to index"`
	Repository string `json:"repository,omitempty" jsonschema:"GitHub repository to index instead of root, as owner/repo[/path][@ref]"`
	Collection string `json:"collection,omitempty" jsonschema:"collection (project) to write; defaults to the configured collection"`
	Describe   bool   `json:"describe,omitempty" jsonschema:"generate a natural-language description of every entity"`
	Enriched   bool   `json:"enriched,omitempty" jsonschema:"embed location, name and description alongside the code"`
	Recreate   bool   `json:"recreate,omitempty" jsonschema:"drop the collection before indexing"`
	PruneStale bool   `json:"prune_stale,omitempty" jsonschema:"delete points left over from earlier runs"`
}

// IndexCodebaseOutput summarises an indexing run.
type IndexCodebaseOutput struct {
	RunID               string   `json:"run_id"`
	Collection          string   `json:"collection"`
	FilesScanned        int      `json:"files_scanned"`
	Entities            int      `json:"entities"`
	Chunks              int      `json:"chunks"`
	ParseErrors         []string `json:"parse_errors"`
	DescriptionFailures int      `json:"description_failures"`
	StalePoints         uint64   `json:"stale_points"`
	PrunedPoints        uint64   `json:"pruned_points"`
	MainFile            string   `json:"main_file,omitempty"`
	HasMainFile         bool     `json:"has_main_file"`
	DurationMS          int64    `json:"duration_ms"`
}

// CollectionStatusInput defines the input parameters for the collection_status tool.
type CollectionStatusInput struct {
	Collection string `json:"collection,omitempty" jsonschema:"collection (project) to inspect; defaults to the configured collection"`
}

// CollectionStatusOutput describes a collection.
type CollectionStatusOutput struct {
	Collection  string `json:"collection"`
	Exists      bool   `json:"exists"`
	PointsCount uint64 `json:"points_count"`
	VectorSize  uint64 `json:"vector_size"`
	Distance    string `json:"distance,omitempty"`
}
