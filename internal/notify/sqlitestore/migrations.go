package sqlitestore

type migration struct {
	version int
	sql     string
}

// migrations must stay sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	body      TEXT NOT NULL DEFAULT '',
	icon      TEXT NOT NULL DEFAULT '',
	image     TEXT NOT NULL DEFAULT '',
	badge     TEXT NOT NULL DEFAULT '',
	tag       TEXT NOT NULL DEFAULT '',
	data      TEXT,
	actions   TEXT,
	timestamp INTEGER NOT NULL,
	category  TEXT NOT NULL DEFAULT '',
	priority  TEXT NOT NULL DEFAULT 'normal',
	user_id   TEXT NOT NULL DEFAULT '',
	read      INTEGER NOT NULL DEFAULT 0
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_notifications_user_ts ON notifications (user_id, timestamp DESC);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
