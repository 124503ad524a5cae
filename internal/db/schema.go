package db

import "fmt"

// DefaultEmbedDimension matches the nomic-embed-text default.
const DefaultEmbedDimension = 768

// SchemaSQL returns the database schema initialization SQL. The embedding
// dimension is baked into the HNSW index definition and must match the
// configured embedding model.
func SchemaSQL(embedDimension int) string {
	return fmt.Sprintf(`
    -- ==========================================================================
    -- PROJECT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS project SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON project TYPE string;
    DEFINE FIELD IF NOT EXISTS repo_url ON project TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON project TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- COMMIT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS commit SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project ON commit TYPE string;
    DEFINE FIELD IF NOT EXISTS hash ON commit TYPE string;
    DEFINE FIELD IF NOT EXISTS author ON commit TYPE string;
    DEFINE FIELD IF NOT EXISTS email ON commit TYPE string;
    DEFINE FIELD IF NOT EXISTS date ON commit TYPE datetime;
    DEFINE FIELD IF NOT EXISTS message ON commit TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON commit TYPE datetime DEFAULT time::now();
    -- Natural key: one row per (project, hash)
    DEFINE INDEX IF NOT EXISTS commit_natural_key ON commit FIELDS project, hash UNIQUE;

    -- ==========================================================================
    -- SOURCE FILE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS source_file SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project ON source_file TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON source_file TYPE string;
    DEFINE FIELD IF NOT EXISTS path ON source_file TYPE string;
    DEFINE FIELD IF NOT EXISTS language ON source_file TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON source_file TYPE string;
    DEFINE FIELD IF NOT EXISTS updated_at ON source_file TYPE datetime DEFAULT time::now();
    -- Natural key: one row per (project, path)
    DEFINE INDEX IF NOT EXISTS source_file_natural_key ON source_file FIELDS project, path UNIQUE;

    -- ==========================================================================
    -- MEETING TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS meeting SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project ON meeting TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON meeting TYPE string;
    DEFINE FIELD IF NOT EXISTS audio_path ON meeting TYPE string;
    DEFINE FIELD IF NOT EXISTS transcript ON meeting TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS summary ON meeting TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS uploaded_at ON meeting TYPE datetime DEFAULT time::now();
    DEFINE INDEX IF NOT EXISTS meeting_project ON meeting FIELDS project;

    -- ==========================================================================
    -- CHUNK TABLE (embedding documents for retrieval)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS project ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS path ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS source ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS chunk_index ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS content ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON chunk TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created_at ON chunk TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chunk_project ON chunk FIELDS project;
    DEFINE INDEX IF NOT EXISTS chunk_project_path ON chunk FIELDS project, path;
    DEFINE INDEX IF NOT EXISTS chunk_embedding ON chunk FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
`, embedDimension)
}
