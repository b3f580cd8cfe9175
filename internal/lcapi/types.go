package lcapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Task statuses reported by the Language Cloud API.
const (
	StatusCreated    = "created"
	StatusInProgress = "inProgress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
	StatusCanceled   = "canceled"
)

// KnownStatuses lists every status value the API documents, in display order.
var KnownStatuses = []string{
	StatusCreated,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
	StatusCanceled,
}

// envelope is the list-response wrapper used by every list endpoint.
type envelope[T any] struct {
	Items     []T `json:"items"`
	ItemCount int `json:"itemCount"`
}

// WordCount decodes a word-count field, tolerating numbers, numeric strings,
// and null. An unparsable value decodes to zero with Malformed set so the
// consumer can log it instead of failing the page.
type WordCount struct {
	Value     int
	Malformed bool
}

func (w *WordCount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*w = WordCount{}
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*w = WordCount{}
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*w = WordCount{Malformed: true}
		return nil
	}
	*w = WordCount{Value: int(n)}
	return nil
}

// Task is the task resource as returned by /tasks/assigned.
type Task struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	DueBy     string `json:"dueBy"`
	CreatedAt string `json:"createdAt"`

	TaskType struct {
		Name string `json:"name"`
	} `json:"taskType"`

	Project struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"project"`

	// InputFiles references the source files behind each target file and is
	// consumed by the cross-reference enrichment strategy.
	InputFiles []InputFile `json:"inputFiles"`

	// Input carries an embedded word count on API versions that project it.
	Input *TaskInput `json:"input"`
}

// InputFile is one entry of a task's inputFiles list.
type InputFile struct {
	TargetFile struct {
		SourceFile struct {
			ID string `json:"id"`
		} `json:"sourceFile"`
	} `json:"targetFile"`
}

// TaskInput is the embedded input projection on a task.
type TaskInput struct {
	Type       string `json:"type"`
	TargetFile *struct {
		TotalWords WordCount `json:"totalWords"`
	} `json:"targetFile"`
}

// SourceFile is a project source-file listing entry.
type SourceFile struct {
	ID         string    `json:"id"`
	TotalWords WordCount `json:"totalWords"`
}

// Account is one tenant candidate from the accounts listing.
//
// The id field name is not stable across API versions; decoding accepts the
// spellings observed in the wild and takes the first non-empty one.
type Account struct {
	ID     string
	Name   string
	Region string
}

func (a *Account) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID         string `json:"id"`
		AccountID  string `json:"accountId"`
		AccountUID string `json:"accountUid"`
		TenantID   string `json:"tenantId"`
		UID        string `json:"uid"`
		Name       string `json:"name"`
		RegionCode string `json:"regionCode"`
		Region     string `json:"region"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, id := range []string{raw.ID, raw.AccountID, raw.AccountUID, raw.TenantID, raw.UID} {
		if id != "" {
			a.ID = id
			break
		}
	}
	a.Name = raw.Name
	a.Region = raw.RegionCode
	if a.Region == "" {
		a.Region = raw.Region
	}
	return nil
}
