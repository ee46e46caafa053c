package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/reactune/internal/reaction"
	"github.com/ayusman/reactune/internal/recommend"
)

// RecommendationRecord is a stored recommendation.
type RecommendationRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`

	recommend.Recommendation
}

// RecommendationRepository stores emitted recommendations.
type RecommendationRepository struct {
	db *sql.DB
}

// Recommendations returns the recommendation repository for this store.
func (s *Store) Recommendations() *RecommendationRepository {
	return &RecommendationRepository{db: s.db}
}

// Add stores rec under sessionID.
func (r *RecommendationRepository) Add(sessionID string, rec recommend.Recommendation) (*RecommendationRecord, error) {
	eq, err := json.Marshal(rec.EQ)
	if err != nil {
		return nil, fmt.Errorf("encode eq vector: %w", err)
	}

	record := &RecommendationRecord{
		ID:             uuid.New().String(),
		SessionID:      sessionID,
		CreatedAt:      time.Now().UTC(),
		Recommendation: rec,
	}

	_, err = r.db.Exec(
		`INSERT INTO recommendations (id, session_id, reaction_state, dominant_emotion, is_nodding,
			nodding_amplitude, eq_vector, eq_preset, volume, rhythm, reverb, delay,
			timestamp_ms, sample_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, sessionID, string(rec.ReactionState), string(rec.DominantEmotion), rec.IsNodding,
		rec.NoddingAmplitude, string(eq), rec.EQPreset, rec.VolumeMultiplier, rec.RhythmicEnhancement,
		rec.ReverbAmount, rec.DelayAmount, rec.Timestamp, rec.SampleCount, record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListBySession returns a session's recommendations in emission order.
func (r *RecommendationRepository) ListBySession(sessionID string) ([]*RecommendationRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, reaction_state, dominant_emotion, is_nodding, nodding_amplitude,
			eq_vector, eq_preset, volume, rhythm, reverb, delay, timestamp_ms, sample_count, created_at
		 FROM recommendations WHERE session_id = ? ORDER BY timestamp_ms, created_at`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*RecommendationRecord
	for rows.Next() {
		rec := &RecommendationRecord{}
		var state, emotion, eq string

		err := rows.Scan(&rec.ID, &rec.SessionID, &state, &emotion, &rec.IsNodding, &rec.NoddingAmplitude,
			&eq, &rec.EQPreset, &rec.VolumeMultiplier, &rec.RhythmicEnhancement, &rec.ReverbAmount,
			&rec.DelayAmount, &rec.Timestamp, &rec.SampleCount, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}

		rec.ReactionState = reaction.State(state)
		rec.DominantEmotion = reaction.Emotion(emotion)
		if err := json.Unmarshal([]byte(eq), &rec.EQ); err != nil {
			return nil, fmt.Errorf("decode eq vector for %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
