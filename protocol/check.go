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

package protocol

import (
	"context"

	"github.com/reservoir-data/tap-pushbullet/output"
	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

// runCheck probes the upstream API with the configured credentials and the
// configured sink, then reports a CONNECTION_STATUS message. The result goes
// on the wire rather than into the exit code so orchestrators can read the
// failure reason.
func runCheck(ctx context.Context) error {
	err := func() error {
		if err := connector.Setup(ctx); err != nil {
			return err
		}

		_, err := output.NewWriterPool(ctx, connector.WriterConfig(), connector.PipelineSettings())
		return err
	}()

	// log success
	message := types.Message{
		Type: types.ConnectionStatusMessage,
		ConnectionStatus: &types.StatusRow{
			Status: types.ConnectionSucceed,
		},
	}
	if err != nil {
		message.ConnectionStatus.Message = err.Error()
		message.ConnectionStatus.Status = types.ConnectionFailed
	}
	logger.WriteMessage(message)

	return nil
}
