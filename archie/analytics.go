package archie

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Interaction is one answered question.
type Interaction struct {
	Timestamp      time.Time
	SessionID      string
	UserEmail      string // empty for guests
	IPAddress      string
	DeviceInfo     string
	Question       string
	Answer         string
	GenerationTime time.Duration
}

// Recorder persists interactions for later analysis.
type Recorder interface {
	Record(in Interaction) error
}

var analyticsHeader = []string{
	"timestamp",
	"session_id",
	"user_email",
	"ip_address",
	"device_info",
	"question",
	"question_length",
	"answer",
	"answer_length",
	"generation_time_seconds",
}

// CSVRecorder appends interactions to <dir>/analytics.csv.
type CSVRecorder struct {
	mu   sync.Mutex
	path string
}

// NewCSVRecorder creates dir and the CSV file (with its header) when missing.
func NewCSVRecorder(dir string) (*CSVRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create analytics dir %q", dir)
	}
	r := &CSVRecorder{path: filepath.Join(dir, "analytics.csv")}
	if _, err := os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		if err := r.append(analyticsHeader); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %q", r.path)
	}
	return r, nil
}

// Path returns the CSV file location.
func (r *CSVRecorder) Path() string { return r.path }

func (r *CSVRecorder) Record(in Interaction) error {
	ts := lo.Ternary(in.Timestamp.IsZero(), time.Now(), in.Timestamp)
	row := []string{
		ts.Format(time.RFC3339Nano),
		in.SessionID,
		lo.Ternary(in.UserEmail == "", "guest", in.UserEmail),
		in.IPAddress,
		in.DeviceInfo,
		in.Question,
		strconv.Itoa(len(in.Question)),
		in.Answer,
		strconv.Itoa(len(in.Answer)),
		fmt.Sprintf("%.2f", in.GenerationTime.Seconds()),
	}
	return r.append(row)
}

func (r *CSVRecorder) append(row []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", r.path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return errors.Wrap(err, "failed to write analytics row")
	}
	w.Flush()
	return errors.Wrap(w.Error(), "failed to flush analytics row")
}
