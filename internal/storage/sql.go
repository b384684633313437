package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id            TEXT PRIMARY KEY,
    start_time    TIMESTAMP NOT NULL,
    adapter       INTEGER NOT NULL,
    frontend      INTEGER NOT NULL,
    frontend_name TEXT NOT NULL,
    lnb           TEXT NOT NULL,
    config        TEXT
);

CREATE TABLE IF NOT EXISTS channels (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id      TEXT NOT NULL REFERENCES sessions (id),
    position        INTEGER NOT NULL,
    frequency       INTEGER NOT NULL,
    symbol_rate     INTEGER NOT NULL,
    delivery_system INTEGER NOT NULL,
    polarization    INTEGER NOT NULL,
    pilot           INTEGER NOT NULL,
    stream_id       INTEGER,
    sat_number      INTEGER
);`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_channels_session_frequency ON channels (session_id, frequency);
CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions (start_time);`

	insertSessionSQL = `
INSERT INTO sessions (
                      id,
                      start_time, 
                      adapter, 
                      frontend, 
                      frontend_name,
                      lnb,
                      config) 
VALUES (?, CURRENT_TIMESTAMP, ?, ?, ?, ?, ?)`

	selectSessionSQL = `
SELECT 
    id, 
    start_time, 
    adapter, 
    frontend, 
    frontend_name,
    lnb,
    config 
FROM sessions 
WHERE 
    id = ?`

	selectSessionsSQL = `
SELECT 
    id, 
    start_time, 
    adapter, 
    frontend, 
    frontend_name,
    lnb,
    config 
FROM sessions
ORDER BY start_time, rowid`

	insertChannelSQL = `
    INSERT INTO channels (
        session_id,
        position,
        frequency,
        symbol_rate,
        delivery_system,
        polarization,
        pilot,
        stream_id,
        sat_number
    )
    VALUES `

	selectChannelsSQL = `
SELECT
    id,
    session_id,
    position,
    frequency,
    symbol_rate,
    delivery_system,
    polarization,
    pilot,
    stream_id,
    sat_number
FROM channels
WHERE
    session_id = ?`
)
