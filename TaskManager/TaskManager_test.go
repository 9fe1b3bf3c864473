package TaskManager

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskByUID(tl *TaskList, uid string) ImageTask {
	for _, task := range tl.GetTasks() {
		if task.TaskUID == uid {
			return task
		}
	}
	return ImageTask{}
}

func TestTaskLifecycle(t *testing.T) {
	tl := NewTaskList()
	uid := tl.NewTask(100)

	task := taskByUID(tl, uid)
	assert.Equal(t, int64(100), task.ImageID)
	assert.Equal(t, Pending, task.Status)
	assert.False(t, task.Done)

	for _, status := range []Status{Resolving, Downloading, Downloaded, Exporting} {
		require.NoError(t, tl.SetTaskStatus(uid, status))
		assert.False(t, taskByUID(tl, uid).Done, "done after %s", status)
	}
	require.NoError(t, tl.SetTaskStatus(uid, Done))
	assert.True(t, taskByUID(tl, uid).Done)
}

func TestIllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []Status
	}{
		{name: "download before resolving", path: []Status{Downloading}},
		{name: "export a missing image", path: []Status{Resolving, Missing, Exporting}},
		{name: "leave a terminal state", path: []Status{Skipped, Resolving}},
		{name: "done without exporting", path: []Status{Resolving, Downloading, Downloaded, Done}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := NewTaskList()
			uid := tl.NewTask(1)

			var err error
			for _, status := range tt.path {
				if err = tl.SetTaskStatus(uid, status); err != nil {
					break
				}
			}
			assert.Error(t, err)
		})
	}
}

func TestUnknownTask(t *testing.T) {
	tl := NewTaskList()
	assert.Error(t, tl.SetTaskStatus("nope", Resolving))
	assert.Equal(t, ImageTask{}, taskByUID(tl, "nope"))
}

func TestFailTask(t *testing.T) {
	tl := NewTaskList()
	uid := tl.NewTask(7)
	require.NoError(t, tl.SetTaskStatus(uid, Resolving))
	require.NoError(t, tl.FailTask(uid, DownloadFailed, errors.New("connection reset")))

	task := taskByUID(tl, uid)
	assert.Equal(t, DownloadFailed, task.Status)
	assert.Equal(t, "connection reset", task.Error)
	assert.True(t, task.Done)
}

func TestImageIDsWithStatus(t *testing.T) {
	tl := NewTaskList()
	statuses := map[int64][]Status{
		2500: {Resolving, Missing},
		100:  {Resolving, Downloading, Downloaded, Exporting, Done},
		17:   {Resolving, Missing},
		42:   {Skipped},
	}
	for _, id := range []int64{2500, 100, 17, 42} {
		uid := tl.NewTask(id)
		for _, status := range statuses[id] {
			require.NoError(t, tl.SetTaskStatus(uid, status))
		}
	}

	assert.Equal(t, []int64{2500, 17}, tl.ImageIDsWithStatus(Missing))
	assert.Equal(t, []int64{42}, tl.ImageIDsWithStatus(Skipped))
	assert.Empty(t, tl.ImageIDsWithStatus(DownloadFailed))
	assert.Equal(t, map[Status]int{Missing: 2, Done: 1, Skipped: 1}, tl.CountByStatus())
	assert.Len(t, tl.GetTasks(), 4)
}
