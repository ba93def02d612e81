package types

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/spf13/viper"

	"github.com/reservoir-data/tap-pushbullet/constants"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

// State holds per stream bookmarks; serialized as the value of a STATE
// message so downstream runners can hand it back on the next invocation.
type State struct {
	*sync.RWMutex `json:"-"`
	Streams       []*StreamState `json:"-"`
}

type StreamState struct {
	Stream         string `json:"-"`
	ReplicationKey string `json:"replication_key,omitempty"`
	Value          any    `json:"replication_key_value"`
}

func NewState() *State {
	return &State{
		RWMutex: &sync.RWMutex{},
		Streams: []*StreamState{},
	}
}

func (s *State) IsZero() bool {
	s.RLock()
	defer s.RUnlock()

	return len(s.Streams) == 0
}

func (s *State) ResetStreams() {
	s.Lock()
	defer s.Unlock()

	s.Streams = []*StreamState{}
}

// GetCursor returns the bookmarked cursor value of the stream; bookmarks
// taken under a different replication key are stale and ignored.
func (s *State) GetCursor(stream StreamInterface) any {
	s.RLock()
	defer s.RUnlock()

	for _, streamState := range s.Streams {
		if streamState.Stream != stream.ID() {
			continue
		}
		if streamState.ReplicationKey != "" && streamState.ReplicationKey != stream.Cursor() {
			return nil
		}
		return streamState.Value
	}

	return nil
}

func (s *State) SetCursor(stream StreamInterface, value any) {
	s.Lock()
	defer s.Unlock()

	for _, streamState := range s.Streams {
		if streamState.Stream == stream.ID() {
			streamState.ReplicationKey = stream.Cursor()
			streamState.Value = value
			return
		}
	}

	s.Streams = append(s.Streams, &StreamState{
		Stream:         stream.ID(),
		ReplicationKey: stream.Cursor(),
		Value:          value,
	})
}

func (s *State) MarshalJSON() ([]byte, error) {
	s.RLock()
	defer s.RUnlock()

	bookmarks := make(map[string]*StreamState, len(s.Streams))
	for _, streamState := range s.Streams {
		bookmarks[streamState.Stream] = streamState
	}

	return json.Marshal(&struct {
		Bookmarks map[string]*StreamState `json:"bookmarks"`
	}{
		Bookmarks: bookmarks,
	})
}

func (s *State) UnmarshalJSON(data []byte) error {
	aux := &struct {
		Bookmarks map[string]*StreamState `json:"bookmarks"`
	}{}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if s.RWMutex == nil {
		s.RWMutex = &sync.RWMutex{}
	}
	s.Lock()
	defer s.Unlock()

	s.Streams = []*StreamState{}
	for stream, streamState := range aux.Bookmarks {
		streamState.Stream = stream
		s.Streams = append(s.Streams, streamState)
	}

	return nil
}

func (s *State) String() string {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("failed to marshal state: %s", err)
	}

	return string(raw)
}

// LogState emits a STATE message and persists the bookmark file
func (s *State) LogState() {
	logger.WriteMessage(Message{
		Type:  StateMessage,
		Value: s,
	})

	statePath := viper.GetString(constants.StatePath)
	if statePath == "" {
		return
	}
	if err := logger.FileLoggerWithPath(s, statePath); err != nil {
		logger.Fatalf("failed to write state file: %s", err)
	}
}
