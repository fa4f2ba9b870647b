package storage

// ddl is the idempotent database schema, applied on every Store open. All
// statements use IF NOT EXISTS so a restart against an existing database is
// a no-op.
const ddl = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT        NOT NULL UNIQUE,
	password_hash TEXT        NOT NULL,
	is_admin      BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS threat_levels (
	id          BIGSERIAL PRIMARY KEY,
	level       TEXT        NOT NULL,
	description TEXT        NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS maturity_ratings (
	id         BIGSERIAL PRIMARY KEY,
	score      DOUBLE PRECISION NOT NULL,
	trend      TEXT             NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ      NOT NULL
);

CREATE TABLE IF NOT EXISTS maturity_trend_points (
	id         BIGSERIAL PRIMARY KEY,
	month      TEXT             NOT NULL UNIQUE,
	score      DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ      NOT NULL
);

CREATE TABLE IF NOT EXISTS risks (
	id          BIGSERIAL PRIMARY KEY,
	title       TEXT        NOT NULL,
	description TEXT        NOT NULL DEFAULT '',
	severity    TEXT        NOT NULL,
	status      TEXT        NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id                    BIGSERIAL PRIMARY KEY,
	name                  TEXT             NOT NULL,
	description           TEXT             NOT NULL DEFAULT '',
	status                TEXT             NOT NULL,
	completion_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
	start_date            TIMESTAMPTZ      NOT NULL,
	due_date              TIMESTAMPTZ,
	created_at            TIMESTAMPTZ      NOT NULL,
	updated_at            TIMESTAMPTZ      NOT NULL
);

CREATE TABLE IF NOT EXISTS compliance_frameworks (
	id                   BIGSERIAL PRIMARY KEY,
	name                 TEXT             NOT NULL,
	current_score        DOUBLE PRECISION NOT NULL,
	target_score         DOUBLE PRECISION NOT NULL,
	last_assessment_date TIMESTAMPTZ      NOT NULL,
	next_assessment_date TIMESTAMPTZ      NOT NULL,
	created_at           TIMESTAMPTZ      NOT NULL,
	updated_at           TIMESTAMPTZ      NOT NULL
);
`
