package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spellfaire/spellfaire-engine/internal/game/rules"
	"github.com/spellfaire/spellfaire-engine/internal/game/state"
)

const replayVersion = 1

// Frame is one committed action: the events it produced and the game as it
// stood afterwards.
type Frame struct {
	Index           int
	TurnNumber      int
	CurrentPlayerID string
	Events          []rules.Event
	State           state.Document
}

// Game decodes the frame's snapshot.
func (f Frame) Game() (*state.Game, error) {
	return state.Decode(f.State)
}

// Replay is the ordered frames of one game with a playback cursor.
type Replay struct {
	GameID       string
	Frames       []Frame
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay.
func NewReplay(gameID string) *Replay {
	return &Replay{
		GameID: gameID,
		Frames: make([]Frame, 0),
	}
}

// Append adds a snapshot of g with the events that led to it.
func (r *Replay) Append(g *state.Game, events []rules.Event) error {
	doc, err := state.Encode(g)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Frames = append(r.Frames, Frame{
		Index:           len(r.Frames),
		TurnNumber:      g.TurnNumber,
		CurrentPlayerID: g.CurrentPlayerID,
		Events:          append([]rules.Event(nil), events...),
		State:           doc,
	})
	return nil
}

// Start rewinds the cursor.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CurrentIndex = 0
}

// Next returns the frame under the cursor and advances it.
func (r *Replay) Next() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.Frames) {
		f := r.Frames[r.CurrentIndex]
		r.CurrentIndex++
		return f, true
	}
	return Frame{}, false
}

// Previous steps the cursor back and returns that frame.
func (r *Replay) Previous() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex > 0 {
		r.CurrentIndex--
		return r.Frames[r.CurrentIndex], true
	}
	return Frame{}, false
}

// Skip moves the cursor by count frames, clamped to the replay.
func (r *Replay) Skip(count int) (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Frames) == 0 {
		return Frame{}, false
	}
	r.CurrentIndex = max(0, min(r.CurrentIndex+count, len(r.Frames)-1))
	return r.Frames[r.CurrentIndex], true
}

// Size returns the number of frames.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Frames)
}

// FrameAt returns the frame at index.
func (r *Replay) FrameAt(index int) (Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index >= 0 && index < len(r.Frames) {
		return r.Frames[index], true
	}
	return Frame{}, false
}

type replayHeader struct {
	GameID     string
	SavedAt    time.Time
	Version    int
	FrameCount int
}

// ReplayPath is where a game's replay lives under directory.
func ReplayPath(directory, gameID string) string {
	return filepath.Join(directory, gameID+".replay")
}

// SaveToFile writes the replay as gzip-compressed gob into directory.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(ReplayPath(directory, r.GameID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	enc := gob.NewEncoder(gz)
	header := replayHeader{
		GameID:     r.GameID,
		SavedAt:    time.Now().UTC(),
		Version:    replayVersion,
		FrameCount: len(r.Frames),
	}
	if err := enc.Encode(&header); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	for i := range r.Frames {
		if err := enc.Encode(&r.Frames[i]); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadReplayFile reads a replay written by SaveToFile.
func LoadReplayFile(path string) (*Replay, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	dec := gob.NewDecoder(gz)
	var header replayHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	if header.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", header.Version)
	}

	replay := NewReplay(header.GameID)
	for i := 0; i < header.FrameCount; i++ {
		var f Frame
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		replay.Frames = append(replay.Frames, f)
	}
	return replay, nil
}

// ReplayRecorder keeps replays of live games until SaveReplay hands them
// over, writing them to saveDir when one is set.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay
	saveDir string
}

// NewReplayRecorder creates a recorder writing to saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		saveDir: saveDir,
	}
}

// StartRecording begins a replay for gameID.
func (rr *ReplayRecorder) StartRecording(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.replays[gameID] = NewReplay(gameID)
	rr.logger.Info("started replay recording", zap.String("game_id", gameID))
}

// Record appends a frame when g is being recorded.
func (rr *ReplayRecorder) Record(g *state.Game, events []rules.Event) error {
	rr.mu.RLock()
	replay := rr.replays[g.ID]
	rr.mu.RUnlock()
	if replay == nil {
		return nil
	}
	if err := replay.Append(g, events); err != nil {
		return err
	}
	rr.logger.Debug("recorded replay frame",
		zap.String("game_id", g.ID),
		zap.Int("frame_count", replay.Size()),
	)
	return nil
}

// SaveReplay stops recording gameID and returns its replay, writing it to
// disk first when the recorder has a directory.
func (rr *ReplayRecorder) SaveReplay(gameID string) (*Replay, error) {
	rr.mu.Lock()
	replay, ok := rr.replays[gameID]
	delete(rr.replays, gameID)
	rr.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no replay found for game %s", gameID)
	}
	if rr.saveDir == "" {
		return replay, nil
	}

	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return replay, fmt.Errorf("failed to save replay: %w", err)
	}
	rr.logger.Info("saved replay to disk",
		zap.String("game_id", gameID),
		zap.Int("frame_count", replay.Size()),
		zap.String("directory", rr.saveDir),
	)
	return replay, nil
}
