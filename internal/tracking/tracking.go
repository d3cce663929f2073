// Package tracking parses the token that correlates a browser tab with a task
// of the controller that opened it.
package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// TokenPrefix marks a window name that carries a tracking token.
const TokenPrefix = "prospection::"

const (
	fragmentPortKey   = "prospection_port"
	fragmentTaskIDKey = "prospection_task_id"
)

var (
	ErrNoToken      = errors.New("no tracking token")
	ErrInvalidToken = errors.New("invalid tracking token")
)

// Descriptor identifies the controller task a page visit belongs to. The zero
// value is a descriptor without tracking.
type Descriptor struct {
	Port         int
	TaskID       string
	HasTracking  bool
	PageDuration time.Duration
}

type token struct {
	Port         int     `json:"port"`
	TaskID       string  `json:"task_id"`
	PageDuration float64 `json:"page_duration,omitempty"`
}

// Encode returns the window name carrying the descriptor.
func (d Descriptor) Encode() string {
	b, _ := json.Marshal(token{
		Port:         d.Port,
		TaskID:       d.TaskID,
		PageDuration: d.PageDuration.Seconds(),
	})
	return TokenPrefix + string(b)
}

// Parse derives the descriptor of a page visit from the window name, falling
// back to the legacy encoding in the url fragment of location.
func Parse(windowName, location string) (Descriptor, error) {
	d, err := ParseWindowName(windowName)
	if err == nil {
		return d, nil
	}
	fd, ferr := ParseFragment(location)
	if ferr == nil {
		return fd, nil
	}
	if errors.Is(err, ErrNoToken) {
		return Descriptor{}, ferr
	}
	return Descriptor{}, err
}

// ParseWindowName parses a `prospection::<json>` window name.
func ParseWindowName(name string) (Descriptor, error) {
	raw, ok := strings.CutPrefix(name, TokenPrefix)
	if !ok {
		return Descriptor{}, ErrNoToken
	}
	if !gjson.Valid(raw) {
		return Descriptor{}, fmt.Errorf("%w: malformed json", ErrInvalidToken)
	}
	port, err := portFromJSON(gjson.Get(raw, "port"))
	if err != nil {
		return Descriptor{}, err
	}
	taskID := gjson.Get(raw, "task_id")
	if taskID.Type != gjson.String || strings.TrimSpace(taskID.Str) == "" {
		return Descriptor{}, fmt.Errorf("%w: missing task_id", ErrInvalidToken)
	}
	d := Descriptor{
		Port:        port,
		TaskID:      taskID.Str,
		HasTracking: true,
	}
	if pd := gjson.Get(raw, "page_duration"); pd.Type == gjson.Number && pd.Float() > 0 {
		d.PageDuration = time.Duration(pd.Float() * float64(time.Second))
	}
	return d, nil
}

// ParseFragment parses the legacy `#prospection_port=..&prospection_task_id=..`
// form from the fragment of location.
func ParseFragment(location string) (Descriptor, error) {
	u, err := url.Parse(location)
	if err != nil || u.Fragment == "" {
		return Descriptor{}, ErrNoToken
	}
	values, err := url.ParseQuery(strings.TrimPrefix(u.Fragment, "?"))
	if err != nil || !values.Has(fragmentPortKey) {
		return Descriptor{}, ErrNoToken
	}
	port, err := parsePort(values.Get(fragmentPortKey))
	if err != nil {
		return Descriptor{}, err
	}
	taskID := strings.TrimSpace(values.Get(fragmentTaskIDKey))
	if taskID == "" {
		return Descriptor{}, fmt.Errorf("%w: missing %s", ErrInvalidToken, fragmentTaskIDKey)
	}
	return Descriptor{Port: port, TaskID: taskID, HasTracking: true}, nil
}

func portFromJSON(r gjson.Result) (int, error) {
	switch r.Type {
	case gjson.Number:
		f := r.Float()
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: port %v is not an integer", ErrInvalidToken, f)
		}
		return checkPort(int(f))
	case gjson.String:
		return parsePort(r.Str)
	default:
		return 0, fmt.Errorf("%w: missing port", ErrInvalidToken)
	}
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: port %q: %v", ErrInvalidToken, s, err)
	}
	return checkPort(p)
}

func checkPort(p int) (int, error) {
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("%w: port %d out of range", ErrInvalidToken, p)
	}
	return p, nil
}
