// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import (
	"log/slog"
	"time"

	"github.com/openfi/finassist/internal/log"
)

// maxLoggedTextBytes is the text payload size above which a response is
// flagged as oversized in logs.
const maxLoggedTextBytes = 8192

// logToolResponse records the outcome of a tool execution: one summary line
// plus a per-content-item breakdown at debug level. Oversized text payloads
// get a warning since they usually mean a tool is dumping raw data at the
// model.
func logToolResponse(logger *slog.Logger, server, tool string, response *ToolCallResponse, elapsed time.Duration) {
	logger.Info("tool executed",
		log.ServerKey, server,
		log.ToolKey, tool,
		"content_items", len(response.Content),
		"is_error", response.IsError,
		log.Duration("duration", elapsed.Milliseconds()))

	for i, item := range response.Content {
		textBytes := len(item.Text)
		if textBytes > maxLoggedTextBytes {
			logger.Warn("tool returned an oversized text payload",
				log.ServerKey, server,
				log.ToolKey, tool,
				"item", i,
				"bytes", textBytes)
		}

		logger.Debug("tool content item",
			log.ServerKey, server,
			log.ToolKey, tool,
			"item", i,
			"type", item.Type,
			"bytes", textBytes,
			"mime_type", item.MimeType)
	}
}
