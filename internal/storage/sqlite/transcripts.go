package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// TranscriptRecord represents one finalized transcript segment in the database
type TranscriptRecord struct {
	ID                  int64     `json:"id"`
	SessionID           string    `json:"session_id"`
	RoomID              string    `json:"room_id,omitempty"`
	UserID              string    `json:"user_id,omitempty"`
	CreatedAt           time.Time `json:"timestamp"`
	Content             string    `json:"text"`
	Language            string    `json:"language"`
	DetectedLanguage    string    `json:"detected_language,omitempty"`
	DetectionConfidence float64   `json:"detection_confidence,omitempty"`
	Confidence          float64   `json:"confidence"`
}

// TranscriptStorage handles storage of transcript records
type TranscriptStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewTranscriptStorage creates a new SQLite transcript storage
func NewTranscriptStorage(db *sql.DB, log *logger.Logger) *TranscriptStorage {
	storage := &TranscriptStorage{
		db:     db,
		logger: log.Named("sqlite-tx"),
	}

	if err := storage.initDB(); err != nil {
		storage.logger.Error("Failed to initialize transcript storage", Error(err))
	}

	return storage
}

// initDB initializes the database tables
func (s *TranscriptStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcripts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			room_id TEXT,
			user_id TEXT,
			created_at TIMESTAMP NOT NULL,
			content TEXT NOT NULL,
			language TEXT NOT NULL,
			detected_language TEXT,
			detection_confidence REAL,
			confidence REAL NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create transcripts table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_session_id ON transcripts(session_id)`)
	if err != nil {
		return fmt.Errorf("failed to create session_id index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_room_id ON transcripts(room_id)`)
	if err != nil {
		return fmt.Errorf("failed to create room_id index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	return nil
}

// StoreTranscript stores a transcript record
func (s *TranscriptStorage) StoreTranscript(record *TranscriptRecord) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO transcripts
		(session_id, room_id, user_id, created_at, content, language, detected_language, detection_confidence, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SessionID,
		record.RoomID,
		record.UserID,
		record.CreatedAt.Format(time.RFC3339),
		record.Content,
		record.Language,
		record.DetectedLanguage,
		record.DetectionConfidence,
		record.Confidence,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transcript: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetTranscripts returns all transcripts with pagination
func (s *TranscriptStorage) GetTranscripts(limit, offset int) ([]*TranscriptRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, room_id, user_id, created_at, content, language, detected_language, detection_confidence, confidence
		FROM transcripts
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	return scanTranscripts(rows)
}

// GetTranscriptsByRoom returns transcripts for a specific room
func (s *TranscriptStorage) GetTranscriptsByRoom(roomID string, limit, offset int) ([]*TranscriptRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, room_id, user_id, created_at, content, language, detected_language, detection_confidence, confidence
		FROM transcripts
		WHERE room_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		roomID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts by room: %w", err)
	}
	defer rows.Close()

	return scanTranscripts(rows)
}

// GetTranscriptsBySession returns transcripts for a specific live session
func (s *TranscriptStorage) GetTranscriptsBySession(sessionID string, limit, offset int) ([]*TranscriptRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, room_id, user_id, created_at, content, language, detected_language, detection_confidence, confidence
		FROM transcripts
		WHERE session_id = ?
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?`,
		sessionID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts by session: %w", err)
	}
	defer rows.Close()

	return scanTranscripts(rows)
}

func scanTranscripts(rows *sql.Rows) ([]*TranscriptRecord, error) {
	var records []*TranscriptRecord
	for rows.Next() {
		var record TranscriptRecord
		var createdAt string
		var roomID, userID, detectedLanguage sql.NullString
		var detectionConfidence sql.NullFloat64

		if err := rows.Scan(
			&record.ID,
			&record.SessionID,
			&roomID,
			&userID,
			&createdAt,
			&record.Content,
			&record.Language,
			&detectedLanguage,
			&detectionConfidence,
			&record.Confidence,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}

		parsed, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		record.CreatedAt = parsed

		// Handle nullable fields
		if roomID.Valid {
			record.RoomID = roomID.String
		}
		if userID.Valid {
			record.UserID = userID.String
		}
		if detectedLanguage.Valid {
			record.DetectedLanguage = detectedLanguage.String
		}
		if detectionConfidence.Valid {
			record.DetectionConfidence = detectionConfidence.Float64
		}

		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcripts: %w", err)
	}

	return records, nil
}
