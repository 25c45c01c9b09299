// Package replay runs recorded landmark streams through the exercise
// analyzer offline and uploads the resulting session summaries.
package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/claude/rehabreps/internal/pose"
)

// maxLineSize bounds one JSONL line. A 33-landmark frame is a few KB.
const maxLineSize = 1 << 20

// ErrNoHeader is returned for recordings without a header line.
var ErrNoHeader = errors.New("recording has no header")

// Header is the first line of a recording.
type Header struct {
	Exercise  string    `json:"exercise"`
	Patient   string    `json:"patient"`
	StartedAt time.Time `json:"started_at"`
}

// Sample is one recorded frame. T is milliseconds since the recording
// started.
type Sample struct {
	T         int64           `json:"t"`
	Landmarks []pose.Landmark `json:"landmarks"`
}

// Recording is a parsed JSONL recording.
type Recording struct {
	Header  Header
	Samples []Sample
}

// Duration is the offset of the last sample.
func (r *Recording) Duration() time.Duration {
	if len(r.Samples) == 0 {
		return 0
	}
	return time.Duration(r.Samples[len(r.Samples)-1].T) * time.Millisecond
}

// ReadRecording parses a recording: a header line followed by one sample per
// line. Blank lines are ignored. Samples must not go back in time.
func ReadRecording(r io.Reader) (*Recording, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLineSize)

	rec := &Recording{}
	line := 0
	haveHeader := false
	var last int64
	for sc.Scan() {
		line++
		data := sc.Bytes()
		if len(data) == 0 {
			continue
		}
		if !haveHeader {
			if err := json.Unmarshal(data, &rec.Header); err != nil {
				return nil, fmt.Errorf("line %d: parsing header: %w", line, err)
			}
			if rec.Header.Exercise == "" {
				return nil, fmt.Errorf("line %d: header has no exercise", line)
			}
			haveHeader = true
			continue
		}

		var s Sample
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("line %d: parsing sample: %w", line, err)
		}
		if s.T < last {
			return nil, fmt.Errorf("line %d: t=%d is before t=%d", line, s.T, last)
		}
		last = s.T
		rec.Samples = append(rec.Samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading recording: %w", err)
	}
	if !haveHeader {
		return nil, ErrNoHeader
	}
	return rec, nil
}
