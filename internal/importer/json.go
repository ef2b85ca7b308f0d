package importer

import (
	"encoding/json"
	"fmt"

	"acadsched/internal/model"
	"acadsched/internal/timeutil"
)

// jsonItem is the JSON wire shape: every field is required, day must be one
// of the 7 canonical names (exact, case-sensitive) and both times canonical
// "HH:MM".
type jsonItem struct {
	Day       string `json:"day"`
	Subject   string `json:"subject"`
	Room      string `json:"room"`
	Teacher   string `json:"teacher"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Notes     string `json:"notes,omitempty"`
}

// ParseJSON decodes and validates a JSON schedule payload. Any invalid entry
// fails the whole batch; errors carry the 1-based item index.
func ParseJSON(data []byte) ([]model.ScheduleItem, error) {
	var raw []jsonItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	out := make([]model.ScheduleItem, 0, len(raw))
	for i, r := range raw {
		n := i + 1
		if err := requireField(n, "day", r.Day); err != nil {
			return nil, err
		}
		if err := requireField(n, "subject", r.Subject); err != nil {
			return nil, err
		}
		if err := requireField(n, "room", r.Room); err != nil {
			return nil, err
		}
		if err := requireField(n, "teacher", r.Teacher); err != nil {
			return nil, err
		}
		if err := requireField(n, "startTime", r.StartTime); err != nil {
			return nil, err
		}
		if err := requireField(n, "endTime", r.EndTime); err != nil {
			return nil, err
		}

		if timeutil.WeekdayRank(r.Day) == 8 {
			return nil, fmt.Errorf("item %d: %q is not a valid day", n, r.Day)
		}
		start, err := timeutil.MinutesSinceMidnight(r.StartTime)
		if err != nil {
			return nil, fmt.Errorf("item %d: %v", n, err)
		}
		end, err := timeutil.MinutesSinceMidnight(r.EndTime)
		if err != nil {
			return nil, fmt.Errorf("item %d: %v", n, err)
		}
		if end <= start {
			return nil, fmt.Errorf("item %d: endTime %s is not after startTime %s", n, r.EndTime, r.StartTime)
		}

		out = append(out, model.ScheduleItem{
			Day:       r.Day,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Subject:   r.Subject,
			Room:      r.Room,
			Teacher:   r.Teacher,
			Notes:     r.Notes,
		})
	}
	return out, nil
}

func requireField(item int, name, value string) error {
	if trim(value) == "" {
		return fmt.Errorf("item %d: missing required field %q", item, name)
	}
	return nil
}
