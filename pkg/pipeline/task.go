package pipeline

import (
	"fmt"
	"strings"
)

// Task 请求的任务类型
type Task int

const (
	TaskTranscribe Task = iota + 1
	TaskEmotion
	TaskEnvironment
)

var taskNames = map[Task]string{
	TaskTranscribe:  "transcribe",
	TaskEmotion:     "emotion",
	TaskEnvironment: "environment",
}

// Tasks 所有任务类型
var Tasks = []Task{TaskTranscribe, TaskEmotion, TaskEnvironment}

func (t Task) String() string {
	if name, ok := taskNames[t]; ok {
		return name
	}
	return fmt.Sprintf("task(%d)", int(t))
}

// ParseTask 从名称解析任务类型，兼容接口路径中使用的 trans
func ParseTask(name string) (Task, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "transcribe", "trans", "transcription":
		return TaskTranscribe, nil
	case "emotion":
		return TaskEmotion, nil
	case "environment", "env":
		return TaskEnvironment, nil
	}
	return 0, fmt.Errorf("未知的任务类型: %s", name)
}

// strategy 返回任务对应的处理策略，未知任务返回 nil
func (t Task) strategy() strategy {
	switch t {
	case TaskTranscribe:
		return transcribeStrategy{}
	case TaskEmotion:
		return emotionStrategy{}
	case TaskEnvironment:
		return environmentStrategy{}
	}
	return nil
}
