/*
 * Copyright 2025 Reservoir Data
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

type StreamInterface interface {
	ID() string
	Self() *ConfiguredStream
	Name() string
	Schema() *TypeSchema
	GetStream() *Stream
	GetSyncMode() SyncMode
	SupportedSyncModes() *Set[SyncMode]
	Cursor() string
	Keys() []string
	Validate(source *Stream) error
	IsSelected() bool
}

type StateInterface interface {
	IsZero() bool
	ResetStreams()
	GetCursor(stream StreamInterface) any
	SetCursor(stream StreamInterface, value any)
}
