package types

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		name        string
		setupSource func() *Stream
		setupCfg    func() *Stream
		wantErr     bool
	}{
		{
			name: "sync mode not supported by source",
			setupSource: func() *Stream {
				return NewStream("chats")
			},
			setupCfg: func() *Stream {
				c := NewStream("chats")
				c.SyncMode = INCREMENTAL
				return c
			},
			wantErr: true,
		},
		{
			name: "replication key not available in source",
			setupSource: func() *Stream {
				return NewStream("chats").WithCursorField("modified")
			},
			setupCfg: func() *Stream {
				c := NewStream("chats")
				c.SyncMode = INCREMENTAL
				c.ReplicationKey = "created"
				return c
			},
			wantErr: true,
		},
		{
			name: "primary key unknown to source",
			setupSource: func() *Stream {
				return NewStream("chats").WithPrimaryKey("iden")
			},
			setupCfg: func() *Stream {
				c := NewStream("chats")
				c.SyncMode = FULLTABLE
				c.SourceDefinedPrimaryKey.Insert("iden", "name")
				return c
			},
			wantErr: true,
		},
		{
			name: "valid incremental entry",
			setupSource: func() *Stream {
				return NewStream("chats").WithPrimaryKey("iden").WithCursorField("modified")
			},
			setupCfg: func() *Stream {
				c := NewStream("chats")
				c.SyncMode = INCREMENTAL
				c.ReplicationKey = "modified"
				return c
			},
			wantErr: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			source := tc.setupSource()
			cfg := tc.setupCfg()
			cs := &ConfiguredStream{Stream: cfg}

			err := cs.Validate(source)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_FillsSourceDefaults(t *testing.T) {
	source := NewStream("pushes").WithPrimaryKey("iden").WithCursorField("modified")
	source.UpsertField("iden", String, false)
	source.UpsertField("modified", Float64, true)

	// bare catalog entry carrying only the stream name
	cs := &ConfiguredStream{Stream: NewStream("pushes")}
	cs.Stream.SourceDefinedPrimaryKey = NewSet[string]()
	cs.Stream.SyncMode = ""

	require.NoError(t, cs.Validate(source))
	assert.Equal(t, INCREMENTAL, cs.GetSyncMode(), "mode defaults to the source preference")
	assert.Equal(t, "modified", cs.Cursor(), "replication key defaults from the source")
	assert.Equal(t, []string{"iden"}, cs.Keys(), "primary keys default from the source")
	assert.NotEmpty(t, cs.Schema().Columns(), "schema defaults from the source")
}

func TestIsSelected(t *testing.T) {
	cs := &ConfiguredStream{Stream: NewStream("devices")}
	assert.True(t, cs.IsSelected(), "absence of selection metadata means selected")

	selected := false
	cs.StreamMetadata.Selected = &selected
	assert.False(t, cs.IsSelected())

	selected = true
	assert.True(t, cs.IsSelected())
}

func TestConfiguredStream_JSONRoundTrip(t *testing.T) {
	stream := NewStream("pushes").WithPrimaryKey("iden").WithCursorField("modified")
	stream.UpsertField("iden", String, false)
	stream.UpsertField("modified", Float64, true)
	cs := stream.Wrap()

	raw, err := json.Marshal(cs)
	require.NoError(t, err)

	// stream fields sit flattened beside the metadata array
	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, "pushes", flat["tap_stream_id"])
	assert.Equal(t, "pushes", flat["stream"])
	assert.Equal(t, "modified", flat["replication_key"])
	require.NotNil(t, flat["schema"])
	require.NotNil(t, flat["metadata"])

	var decoded ConfiguredStream
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "pushes", decoded.Name())
	assert.Equal(t, "modified", decoded.Cursor())
	assert.Equal(t, INCREMENTAL, decoded.GetSyncMode(), "replication method resolves from breadcrumbs")
	assert.True(t, decoded.IsSelected())
	assert.True(t, decoded.GetStream().SourceDefinedPrimaryKey.Exists("iden"))
}

func TestConfiguredStream_MetadataDeselection(t *testing.T) {
	raw := []byte(`{
		"stream": "chats",
		"tap_stream_id": "chats",
		"metadata": [
			{"breadcrumb": [], "metadata": {"selected": false, "replication-method": "FULL_TABLE"}}
		]
	}`)

	var decoded ConfiguredStream
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.False(t, decoded.IsSelected())
	assert.Equal(t, FULLTABLE, decoded.GetSyncMode())
}
