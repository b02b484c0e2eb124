package store

// schema contains the SQL statements to create the Voyage catalog schema.
const schema = `
-- Projects table
CREATE TABLE IF NOT EXISTS projects (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT,
    markdown    TEXT,
    source      TEXT,
    updated_at  TEXT NOT NULL
);

-- Services table; the full definition is kept as JSON
CREATE TABLE IF NOT EXISTS services (
    project_id         TEXT NOT NULL,
    name               TEXT NOT NULL,
    version            TEXT NOT NULL,
    position           INTEGER NOT NULL,
    deprecated         INTEGER NOT NULL DEFAULT 0,
    command_count      INTEGER NOT NULL DEFAULT 0,
    subscription_count INTEGER NOT NULL DEFAULT 0,
    definition         TEXT NOT NULL,
    PRIMARY KEY (project_id, name, version),
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_services_project ON services(project_id, position);
CREATE INDEX IF NOT EXISTS idx_services_name ON services(name);

-- Metadata table for index info
CREATE TABLE IF NOT EXISTS metadata (
    key   TEXT PRIMARY KEY,
    value TEXT
);
`
