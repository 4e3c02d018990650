// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and applies the schema.

# Connecting

Open selects the driver from the configured type:

	conn, err := db.Open("postgres", "postgres://...") // github.com/lib/pq
	conn, err := db.Open("sqlite", "data/pipeline.db") // modernc.org/sqlite

SQLite connections enable foreign keys (purge relies on cascading deletes),
WAL journaling and a busy timeout.

# Schema Creation

CreateSchema applies the embedded migrations in db/migrations:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - applied files are recorded in schema_migrations.
Only the -- +migrate Up section of a file runs.

# Tables

  - pipeline: pipeline metadata and inactivity policy
  - pipeline_stage: ordered, typed stages (config stored as JSON)
  - applicant: status, stage position, timestamps, optimistic-lock version
  - applicant_stage_history: append-only history entries
  - applicant_document: uploaded document references
  - election_package: snapshot packages for the election subsystem
  - member: records created by conversion

# Relationships

	pipeline 1──* pipeline_stage
	pipeline 1──* applicant
	applicant 1──* applicant_stage_history
	applicant 1──* applicant_document
	applicant 1──* election_package

History, documents and packages cascade when an applicant is purged.
Applicants restrict deletion of their pipeline and current stage.

Timestamps are BIGINT unix milliseconds so both engines store them the same way.
*/
package db
