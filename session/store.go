package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/logger"
)

// ErrNotFound is returned by Load when no readable record exists for the
// requested (client id, session id) pair. Corrupt records are reported as
// not found so callers fall back to a fresh session instead of crashing.
var ErrNotFound = errors.New("session not found")

// Store persists sessions as JSON files in a single directory.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates the storage directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create session directory %s", dir)
	}
	return &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// lockFor returns the mutex serializing writes to one (client, session)
// pair. Cross-pair operations are not coordinated.
func (s *Store) lockFor(clientID, sessionID string) *sync.Mutex {
	key := clientID + ":" + sessionID
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Create makes and persists a new session for the client.
func (s *Store) Create(clientID, provider, model string) (*Session, error) {
	return s.createWithID(clientID, NewSessionID(), provider, model)
}

func (s *Store) createWithID(clientID, sessionID, provider, model string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		SessionID:    sessionID,
		ClientID:     clientID,
		CreatedAt:    now,
		LastUpdated:  now,
		Provider:     provider,
		Model:        model,
		Conversation: []Message{},
	}

	lock := s.lockFor(clientID, sessionID)
	lock.Lock()
	defer lock.Unlock()
	if err := s.write(sess); err != nil {
		return nil, err
	}
	logger.Debug().Str("client", clientID).Str("session", sessionID).Msg("created session")
	return sess, nil
}

// Load reads a session record. Returns ErrNotFound for missing or corrupt
// records.
func (s *Store) Load(clientID, sessionID string) (*Session, error) {
	path, err := s.recordPath(clientID, sessionID)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.read(path)
}

func (s *Store) read(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Str("path", path).Err(err).Msg("unreadable session record")
		}
		return nil, ErrNotFound
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("corrupt session record, treating as absent")
		return nil, ErrNotFound
	}
	if sess.Conversation == nil {
		sess.Conversation = []Message{}
	}
	return &sess, nil
}

// GetOrCreate resolves a session for the client. With a session id it loads
// that session, creating it (keeping the id) when absent. Without one it
// resumes the client's most recently updated session, or creates a new one
// if none exists or createNew is set. createNew with an id that is already
// taken falls back to a generated id rather than wiping the stored
// conversation.
func (s *Store) GetOrCreate(clientID, sessionID string, createNew bool, provider, model string) (*Session, error) {
	if createNew {
		if sessionID == "" {
			return s.Create(clientID, provider, model)
		}
		// Never reset an existing conversation: a taken id gets a fresh
		// session under a generated id instead.
		if _, err := s.Load(clientID, sessionID); err == nil {
			logger.Warn().Str("client", clientID).Str("session", sessionID).
				Msg("session id already exists, creating a new session with a fresh id")
			return s.Create(clientID, provider, model)
		}
		return s.createWithID(clientID, sessionID, provider, model)
	}

	if sessionID == "" {
		recent, err := s.ListRecent(clientID, 1)
		if err != nil || len(recent) == 0 {
			return s.Create(clientID, provider, model)
		}
		sessionID = recent[0].SessionID
	}

	sess, err := s.Load(clientID, sessionID)
	if err != nil {
		return s.createWithID(clientID, sessionID, provider, model)
	}
	return sess, nil
}

// AppendExchange appends one user/assistant pair and persists the record.
// The record is re-read under the per-session lock before merging so that
// two concurrent appenders both land in the stored conversation.
func (s *Store) AppendExchange(sess *Session, userText, assistantText string, tokens int) error {
	lock := s.lockFor(sess.ClientID, sess.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if current, err := s.Load(sess.ClientID, sess.SessionID); err == nil {
		sess.Conversation = current.Conversation
		sess.Usage = current.Usage
	}

	sess.Conversation = append(sess.Conversation,
		Message{Role: "user", Content: userText},
		Message{Role: "assistant", Content: assistantText},
	)
	sess.Usage.MessageCount = len(sess.Conversation)
	sess.Usage.TotalRequests++
	sess.Usage.TotalTokens += tokens
	sess.LastUpdated = time.Now()

	return s.write(sess)
}

// Save persists the session as-is under its lock. Used for settings
// changes that do not go through AppendExchange.
func (s *Store) Save(sess *Session) error {
	lock := s.lockFor(sess.ClientID, sess.SessionID)
	lock.Lock()
	defer lock.Unlock()
	sess.LastUpdated = time.Now()
	return s.write(sess)
}

// ListRecent returns up to limit session summaries for the client, most
// recently updated first.
func (s *Store) ListRecent(clientID string, limit int) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read session directory")
	}

	var summaries []Summary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		sess, err := s.read(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		if clientID != "" && sess.ClientID != clientID {
			continue
		}
		summaries = append(summaries, Summary{
			SessionID:    sess.SessionID,
			ClientID:     sess.ClientID,
			CreatedAt:    sess.CreatedAt,
			LastUpdated:  sess.LastUpdated,
			Provider:     sess.Provider,
			Model:        sess.Model,
			MessageCount: len(sess.Conversation),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// ExpireOlderThan deletes sessions whose last-updated timestamp is strictly
// older than the cutoff and returns the count removed. Each deletion takes
// the per-session lock, so a record is never removed mid-write.
func (s *Store) ExpireOlderThan(days int) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, errors.Wrapf(err, "could not read session directory")
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		sess, err := s.read(path)
		if err != nil {
			// Corrupt record: fall back to the file's mtime.
			info, statErr := entry.Info()
			if statErr != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if os.Remove(path) == nil {
				deleted++
			}
			continue
		}
		if !sess.LastUpdated.Before(cutoff) {
			continue
		}

		// Re-check under the lock: an append may have committed between the
		// eligibility read above and this point, and a fresh record must
		// never be deleted.
		lock := s.lockFor(sess.ClientID, sess.SessionID)
		lock.Lock()
		current, readErr := s.read(path)
		if readErr != nil || !current.LastUpdated.Before(cutoff) {
			lock.Unlock()
			continue
		}
		err = os.Remove(path)
		lock.Unlock()
		if err != nil {
			logger.Warn().Str("path", path).Err(err).Msg("could not delete expired session")
			continue
		}
		deleted++
	}
	return deleted, nil
}

// write marshals and atomically replaces the session record. Callers must
// hold the session's lock.
func (s *Store) write(sess *Session) error {
	path, err := s.recordPath(sess.ClientID, sess.SessionID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize session %s", sess.SessionID)
	}

	tmp, err := os.CreateTemp(s.dir, "session-*.tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp session file")
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "failed to write session file")
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "failed to chmod session file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "failed to sync session file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close session file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "failed to replace session file")
	}
	cleanup = false
	return nil
}

// recordPath builds the on-disk filename for a session and confines it to
// the store directory. Separators and ':' in identifiers are flattened;
// anything that would escape the directory is rejected.
func (s *Store) recordPath(clientID, sessionID string) (string, error) {
	name := sanitizeFilename(clientID) + "_" + sanitizeFilename(sessionID)
	if name == "_" || name == "." || !filepath.IsLocal(name) || strings.ContainsAny(name, `/\`) {
		return "", errors.New("invalid session identifier %q/%q", clientID, sessionID)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

func sanitizeFilename(id string) string {
	r := strings.NewReplacer(":", "-", "/", "-", "\\", "-")
	return r.Replace(id)
}
