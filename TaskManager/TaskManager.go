package TaskManager

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Status string

const (
	Pending        Status = "Pending"
	Skipped        Status = "Skipped"
	Resolving      Status = "Resolving"
	Missing        Status = "Missing"
	Downloading    Status = "Downloading"
	DownloadFailed Status = "DownloadFailed"
	Downloaded     Status = "Downloaded"
	Exporting      Status = "Exporting"
	ExportFailed   Status = "ExportFailed"
	Done           Status = "Done"
)

var transitions = map[Status][]Status{
	Pending:     {Skipped, Resolving},
	Resolving:   {Missing, Downloading, DownloadFailed},
	Downloading: {Downloaded, DownloadFailed, Skipped},
	Downloaded:  {Exporting},
	Exporting:   {Done, ExportFailed},
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

type ImageTask struct {
	TaskUID string `json:"task_uid"`
	ImageID int64  `json:"image_id"`
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
	Done    bool   `json:"done"`
}

// TaskList tracks one task per image in the order they were added.
type TaskList struct {
	Tasks []ImageTask `json:"tasks"`
	sync.Mutex
}

func NewTaskList() *TaskList {
	return &TaskList{Tasks: make([]ImageTask, 0)}
}

func (tl *TaskList) NewTask(imageID int64) string {
	tl.Lock()
	defer tl.Unlock()

	task := ImageTask{
		TaskUID: uuid.New().String(),
		ImageID: imageID,
		Status:  Pending,
	}
	tl.Tasks = append(tl.Tasks, task)

	return task.TaskUID
}

// SetTaskStatus moves a task to status, refusing transitions the image
// lifecycle does not allow.
func (tl *TaskList) SetTaskStatus(taskUID string, status Status) error {
	tl.Lock()
	defer tl.Unlock()

	i := tl.find(taskUID)
	if i < 0 {
		return errors.Errorf("unknown task %s", taskUID)
	}

	current := tl.Tasks[i].Status
	if !allowed(current, status) {
		return errors.Errorf("image %d: illegal transition %s -> %s", tl.Tasks[i].ImageID, current, status)
	}

	tl.Tasks[i].Status = status
	tl.Tasks[i].Done = status.Terminal()
	return nil
}

// FailTask records err and moves the task to a failed status.
func (tl *TaskList) FailTask(taskUID string, status Status, err error) error {
	if setErr := tl.SetTaskStatus(taskUID, status); setErr != nil {
		return setErr
	}

	tl.Lock()
	defer tl.Unlock()
	if i := tl.find(taskUID); i >= 0 && err != nil {
		tl.Tasks[i].Error = err.Error()
	}
	return nil
}

func (tl *TaskList) GetTasks() []ImageTask {
	tl.Lock()
	defer tl.Unlock()

	tasks := make([]ImageTask, len(tl.Tasks))
	copy(tasks, tl.Tasks)
	return tasks
}

// ImageIDsWithStatus returns the ids of all tasks currently in status, in
// insertion order.
func (tl *TaskList) ImageIDsWithStatus(status Status) []int64 {
	tl.Lock()
	defer tl.Unlock()

	var ids []int64
	for _, task := range tl.Tasks {
		if task.Status == status {
			ids = append(ids, task.ImageID)
		}
	}
	return ids
}

func (tl *TaskList) CountByStatus() map[Status]int {
	tl.Lock()
	defer tl.Unlock()

	counts := make(map[Status]int)
	for _, task := range tl.Tasks {
		counts[task.Status]++
	}
	return counts
}

func (tl *TaskList) find(taskUID string) int {
	for i, task := range tl.Tasks {
		if task.TaskUID == taskUID {
			return i
		}
	}
	return -1
}

func allowed(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
