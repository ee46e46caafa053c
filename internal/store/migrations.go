package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per Start/Stop cycle of the detection pipeline
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			camera_id INTEGER NOT NULL DEFAULT 0,
			detector TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Every recommendation emitted while a session was running
		`CREATE TABLE IF NOT EXISTS recommendations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			reaction_state TEXT NOT NULL,
			dominant_emotion TEXT NOT NULL,
			is_nodding INTEGER NOT NULL DEFAULT 0,
			nodding_amplitude REAL NOT NULL DEFAULT 0,
			eq_vector TEXT NOT NULL,
			eq_preset TEXT NOT NULL,
			volume REAL NOT NULL,
			rhythm REAL NOT NULL,
			reverb REAL NOT NULL,
			delay REAL NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			sample_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_recommendations_session_id ON recommendations(session_id, timestamp_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
