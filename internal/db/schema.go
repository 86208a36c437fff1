package db

import "fmt"

// schemaTemplate contains the database schema initialization SQL.
// The HNSW dimension is filled in from the configured embedding dimension;
// changing that dimension invalidates previously stored embeddings, so it is
// a deployment-time constant.
const schemaTemplate = `
    -- ==========================================================================
    -- INGEST ITEM TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS ingest_item SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS owner ON ingest_item TYPE string;
    DEFINE FIELD IF NOT EXISTS kind ON ingest_item TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON ingest_item TYPE string DEFAULT 'PENDING';
    DEFINE FIELD IF NOT EXISTS raw_text ON ingest_item TYPE option<string>;
    -- Source metadata, one variant per kind (validated at the write boundary)
    DEFINE FIELD IF NOT EXISTS url ON ingest_item TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS blob ON ingest_item TYPE option<object> FLEXIBLE;
    -- Generated-section summary stamped on completion
    DEFINE FIELD IF NOT EXISTS sections ON ingest_item TYPE option<array<object>> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS error ON ingest_item TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON ingest_item TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS processed ON ingest_item TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS ingest_item_owner ON ingest_item FIELDS owner;
    DEFINE INDEX IF NOT EXISTS ingest_item_status ON ingest_item FIELDS status;

    -- ==========================================================================
    -- INSIGHT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS insight SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS owner ON insight TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON insight TYPE string;
    DEFINE FIELD IF NOT EXISTS summary ON insight TYPE string;
    DEFINE FIELD IF NOT EXISTS takeaway ON insight TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON insight TYPE string;
    -- Owning ingest item; absent for manually created insights
    DEFINE FIELD IF NOT EXISTS item ON insight TYPE option<record<ingest_item>>;
    -- Stable ordering key for reconciliation across reprocessing
    DEFINE FIELD IF NOT EXISTS section_index ON insight TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS embedding ON insight TYPE option<array<float>>;
    DEFINE FIELD IF NOT EXISTS created ON insight TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON insight TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS insight_owner ON insight FIELDS owner;
    DEFINE INDEX IF NOT EXISTS insight_item ON insight FIELDS item;
    DEFINE INDEX IF NOT EXISTS insight_embedding ON insight FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;

    -- ==========================================================================
    -- TAG TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS tag SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS owner ON tag TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON tag TYPE string;
    -- Dedup key: unique per (owner, lowercase name)
    DEFINE FIELD IF NOT EXISTS name_lower ON tag VALUE string::lowercase(name);
    DEFINE INDEX IF NOT EXISTS tag_owner_name ON tag FIELDS owner, name_lower UNIQUE;

    -- ==========================================================================
    -- TAGGED RELATION (insight <-> tag, many-to-many)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS tagged TYPE RELATION IN insight OUT tag SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS created ON tagged TYPE datetime DEFAULT time::now();
    -- Unique constraint prevents duplicate associations
    DEFINE FIELD IF NOT EXISTS unique_key ON tagged VALUE string::concat(<string>in, "|", <string>out);
    DEFINE INDEX IF NOT EXISTS unique_tagged ON tagged FIELDS unique_key UNIQUE;
`

// SchemaSQL renders the schema for the given embedding dimension.
func SchemaSQL(embedDimension int) string {
	return fmt.Sprintf(schemaTemplate, embedDimension)
}
