/*
Package sqlite provides the assistant's embedded database on modernc.org/sqlite.

One file holds three concerns:

  - the team catalogue (departments, products, team_members, features,
    incidents) that generated SQL is run against
  - the documentation index: chunked documents mirrored into an FTS5 table
    and searched with bm25 ranking
  - user feedback: 1..5 ratings per session, see RecordFeedback

Schema changes live in migrations/ as numbered NNN_name.up.sql files and are
applied in order on Open. Applied versions are recorded in schema_migrations.

Usage:

	store, err := sqlite.Open("data/assistant.db")
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Seed(ctx); err != nil {
		return err
	}

	res, err := store.Query(ctx, "SELECT count(*) FROM team_members", 100)

Query runs on a connection opened with PRAGMA query_only, so even SQL that
slipped past validation cannot modify the database.
*/
package sqlite
