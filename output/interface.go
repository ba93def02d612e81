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

package output

import (
	"context"

	"github.com/reservoir-data/tap-pushbullet/types"
)

type Config interface {
	Validate() error
}

type (
	NewFunc func() Writer

	Options struct {
		Identifier string
		Number     int64
	}

	ThreadOptions func(opt *Options)
)

// RegisteredWriters is populated by writer packages from their init functions
var RegisteredWriters = map[types.WriterType]NewFunc{}

func WithIdentifier(identifier string) ThreadOptions {
	return func(opt *Options) {
		opt.Identifier = identifier
	}
}

func WithNumber(number int64) ThreadOptions {
	return func(opt *Options) {
		opt.Number = number
	}
}

type Writer interface {
	GetConfigRef() Config
	Spec() any
	Type() string
	// Check verifies the sink is usable before any stream starts
	//
	// Note: Check shouldn't be called before the config ref is populated
	Check(ctx context.Context) error
	// Setup binds the writer to one outgoing stream and announces its schema
	Setup(stream types.StreamInterface, opts *Options) error
	Write(ctx context.Context, record types.RawRecord) error
	Close(ctx context.Context) error
}
