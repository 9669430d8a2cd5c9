package room

import (
	"sort"
	"sync"
	"time"

	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// Import logger functions
var (
	String = logger.String
	Int    = logger.Int
)

// Sender delivers one envelope to a participant's connection. Send must not
// block; it reports false when the connection can no longer accept messages,
// which the registry treats as grounds for disconnecting that participant.
type Sender interface {
	Send(env *Envelope) bool
}

// room holds the per-room participant state. The three maps always share the
// same key set; the room itself exists only while at least one participant
// remains.
type room struct {
	conns    map[string]Sender
	settings map[string]Settings
	joinedAt map[string]time.Time
}

// Registry is the single source of truth for room membership. All operations
// on it are serialized by one mutex; connection handlers across goroutines
// would otherwise race on the room maps.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	logger *logger.Logger
}

// NewRegistry creates an empty room registry
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]*room),
		logger: log.Named("room-registry"),
	}
}

// Connect registers a participant in a room, creating the room if needed.
// A second join under the same user ID overwrites the prior entry (last
// writer wins; reconnects are not rejected). The rest of the room is told
// via user_joined, and the new connection alone receives a room_info
// snapshot of the other participants.
func (r *Registry) Connect(roomID, userID string, settings Settings, sender Sender) {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{
			conns:    make(map[string]Sender),
			settings: make(map[string]Settings),
			joinedAt: make(map[string]time.Time),
		}
		r.rooms[roomID] = rm
	}

	rm.conns[userID] = sender
	rm.settings[userID] = copySettings(settings)
	rm.joinedAt[userID] = time.Now().UTC()

	// Snapshot of everyone else, taken before releasing the lock so the
	// room_info reply can't observe membership changes racing this join.
	others := make([]ParticipantInfo, 0, len(rm.conns)-1)
	for uid, s := range rm.settings {
		if uid == userID {
			continue
		}
		others = append(others, ParticipantInfo{UserID: uid, Settings: copySettings(s)})
	}
	sort.Slice(others, func(i, j int) bool { return others[i].UserID < others[j].UserID })
	participantCount := len(rm.conns)
	r.mu.Unlock()

	r.logger.Info("Participant joined room",
		String("room_id", roomID),
		String("user_id", userID),
		Int("participants", participantCount))

	r.Broadcast(roomID, NewUserJoined(userID, copySettings(settings)), userID)

	if !sender.Send(NewRoomInfo(roomID, others)) {
		r.Disconnect(roomID, userID)
	}
}

// Disconnect removes a participant and tells the rest of the room. Removing
// an absent participant is a no-op so cleanup can run from multiple code
// paths. The last participant leaving deletes the room outright.
func (r *Registry) Disconnect(roomID, userID string) {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, ok := rm.conns[userID]; !ok {
		r.mu.Unlock()
		return
	}

	joined := rm.joinedAt[userID]
	delete(rm.conns, userID)
	delete(rm.settings, userID)
	delete(rm.joinedAt, userID)

	remaining := len(rm.conns)
	if remaining == 0 {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()

	r.logger.Info("Participant left room",
		String("room_id", roomID),
		String("user_id", userID),
		logger.Duration("session_duration", time.Since(joined)),
		Int("remaining", remaining))

	r.Broadcast(roomID, NewUserLeft(userID), "")
}

// Broadcast delivers an envelope to every participant of a room except
// excludeUser, best-effort. The participant list is snapshotted first and
// failed sends are cleaned up after the loop; removing entries from the room
// map while iterating it is unsafe, and one dead connection must not block
// delivery to the rest.
func (r *Registry) Broadcast(roomID string, env *Envelope, excludeUser string) {
	type target struct {
		userID string
		sender Sender
	}

	r.mu.RLock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.RUnlock()
		return
	}
	targets := make([]target, 0, len(rm.conns))
	for uid, sender := range rm.conns {
		targets = append(targets, target{userID: uid, sender: sender})
	}
	r.mu.RUnlock()

	var failed []string
	for _, t := range targets {
		if t.userID == excludeUser {
			continue
		}
		if !t.sender.Send(env) {
			failed = append(failed, t.userID)
		}
	}

	for _, uid := range failed {
		r.logger.Warn("Dropping participant after failed send",
			String("room_id", roomID),
			String("user_id", uid),
			String("message_type", env.Type))
		r.Disconnect(roomID, uid)
	}
}

// HandleTranslation fans a participant's caption out to the rest of the room,
// stamped with the sender's identity and a server timestamp.
func (r *Registry) HandleTranslation(roomID, userID string, payload TranslationPayload) {
	r.Broadcast(roomID, NewTranslation(userID, payload), userID)
}

// HandleSettingsUpdate merges a partial settings document into the
// participant's stored settings (unspecified keys retained) and tells the
// rest of the room about the partial update only. Unknown participants are
// ignored.
func (r *Registry) HandleSettingsUpdate(roomID, userID string, partial Settings) {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return
	}
	stored, ok := rm.settings[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	for k, v := range partial {
		stored[k] = v
	}
	r.mu.Unlock()

	r.Broadcast(roomID, NewSettingsUpdated(userID, copySettings(partial)), userID)
}

// ParticipantSettings returns a copy of one participant's current settings
// document, and whether the participant is present.
func (r *Registry) ParticipantSettings(roomID, userID string) (Settings, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	s, ok := rm.settings[userID]
	if !ok {
		return nil, false
	}
	return copySettings(s), true
}

// Stats is a read-only diagnostic snapshot of the registry
type Stats struct {
	RoomCount        int                 `json:"room_count"`
	ParticipantCount int                 `json:"participant_count"`
	Rooms            map[string][]string `json:"rooms"`
}

// GetStats returns a snapshot of room and participant counts. Safe to call
// concurrently with every other registry operation.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		RoomCount: len(r.rooms),
		Rooms:     make(map[string][]string, len(r.rooms)),
	}
	for roomID, rm := range r.rooms {
		users := make([]string, 0, len(rm.conns))
		for uid := range rm.conns {
			users = append(users, uid)
		}
		sort.Strings(users)
		stats.Rooms[roomID] = users
		stats.ParticipantCount += len(users)
	}
	return stats
}

func copySettings(s Settings) Settings {
	if s == nil {
		return Settings{}
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
