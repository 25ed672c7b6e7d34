package session

import (
	"context"
	"path/filepath"

	"github.com/kestrel-tools/dbgbridge/internal/backend"
)

// DisplayFrame is what the StackTrace DAP handler returns per entry.
type DisplayFrame struct {
	ID     int
	Name   string
	Path   string
	Line   int
	Column int
}

// StackTrace implements the stackTrace DAP request, honouring startFrame
// and levels, per spec.md §6.
func (s *Session) StackTrace(ctx context.Context, threadID, startFrame, levels int) ([]DisplayFrame, int, error) {
	depth := levels
	if depth <= 0 {
		depth = s.stackTraceDepth
	}

	frames, err := s.api.Stacktrace(backendContext(ctx), backend.SymbolScope{GoroutineID: threadID}, startFrame+depth, true)
	if err != nil {
		return nil, 0, err
	}

	total := len(frames)
	end := startFrame + depth
	if end > total {
		end = total
	}
	if startFrame > total {
		startFrame = total
	}
	window := frames[startFrame:end]

	out := make([]DisplayFrame, len(window))
	for i, f := range window {
		localPath := s.mapper.ToLocal(f.Location.File)
		out[i] = DisplayFrame{
			ID:     s.frames.Put(frameHandleValue{GoroutineID: threadID, FrameIndex: startFrame + i}),
			Name:   f.Location.Function,
			Path:   localPath,
			Line:   f.Location.Line,
			Column: 1,
		}
		if i == 0 {
			s.mu.Lock()
			s.lastStopDir = filepath.Dir(localPath)
			s.mu.Unlock()
		}
	}
	return out, total, nil
}
