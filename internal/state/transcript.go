// internal/state/transcript.go
package state

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/intervoice/internal/types"
)

// TranscriptEntry is one archived utterance.
type TranscriptEntry struct {
	Seq       int64           `json:"seq"`
	SessionID types.SessionID `json:"session_id"`
	Role      types.Role      `json:"role"`
	Content   string          `json:"content"`
	At        time.Time       `json:"at"`
}

// TranscriptLog is a JSONL-backed append-only archive of finished call
// transcripts, stored per session in sessions/<sessionID>/transcript.jsonl.
type TranscriptLog struct {
	root  string
	mu    sync.Mutex
	locks map[types.SessionID]*sync.Mutex
}

// NewTranscriptLog creates a new file-backed TranscriptLog rooted at the given directory.
func NewTranscriptLog(root string) *TranscriptLog {
	return &TranscriptLog{
		root:  root,
		locks: make(map[types.SessionID]*sync.Mutex),
	}
}

// getLock returns the per-session mutex, creating one if it doesn't exist.
func (l *TranscriptLog) getLock(sessionID types.SessionID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lock, ok := l.locks[sessionID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	l.locks[sessionID] = lock
	return lock
}

func (l *TranscriptLog) path(sessionID types.SessionID) string {
	return filepath.Join(l.root, "sessions", string(sessionID), "transcript.jsonl")
}

// read parses every entry. Caller must hold the session lock.
func (l *TranscriptLog) read(sessionID types.SessionID) ([]*TranscriptEntry, error) {
	f, err := os.Open(l.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open transcript file: %w", err)
	}
	defer f.Close()

	var entries []*TranscriptEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var entry TranscriptEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal transcript entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript file: %w", err)
	}
	return entries, nil
}

// Append archives utts after any entries already stored for the session,
// numbering them consecutively.
func (l *TranscriptLog) Append(_ context.Context, sessionID types.SessionID, utts []types.Utterance) error {
	if len(utts) == 0 {
		return nil
	}
	lock := l.getLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path(sessionID)), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	existing, err := l.read(sessionID)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(l.path(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	now := time.Now().UTC()
	for i, u := range utts {
		data, err := json.Marshal(&TranscriptEntry{
			Seq:       int64(len(existing) + i + 1),
			SessionID: sessionID,
			Role:      u.Role,
			Content:   u.Content,
			At:        now,
		})
		if err != nil {
			return fmt.Errorf("marshal transcript entry: %w", err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Read returns the archived utterances of a session in order.
func (l *TranscriptLog) Read(_ context.Context, sessionID types.SessionID) ([]types.Utterance, error) {
	lock := l.getLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	entries, err := l.read(sessionID)
	if err != nil {
		return nil, err
	}
	utts := make([]types.Utterance, len(entries))
	for i, e := range entries {
		utts[i] = types.Utterance{Role: e.Role, Content: e.Content}
	}
	return utts, nil
}

// Sessions lists the sessions with an archived transcript.
func (l *TranscriptLog) Sessions(_ context.Context) ([]types.SessionID, error) {
	entries, err := os.ReadDir(filepath.Join(l.root, "sessions"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var ids []types.SessionID
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id := types.SessionID(e.Name())
		if _, err := os.Stat(l.path(id)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
