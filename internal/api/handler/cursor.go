package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/storage"
)

// DecodeRunCursor parses a page cursor. An empty string means the first page.
func DecodeRunCursor(cursorStr string) (*storage.RunCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	startedAt, runID, ok := strings.Cut(string(decoded), "|")
	if !ok || runID == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var nanos int64
	if _, err := fmt.Sscanf(startedAt, "%d", &nanos); err != nil {
		return nil, fmt.Errorf("invalid started_at in cursor: %w", err)
	}

	return &storage.RunCursor{
		StartedAt: time.Unix(0, nanos).UTC(),
		RunID:     runID,
	}, nil
}

// EncodeRunCursor renders a cursor pointing after the given run
func EncodeRunCursor(cursor *storage.RunCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.StartedAt.UnixNano(), cursor.RunID)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}
