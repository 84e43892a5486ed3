package worker

import (
	"testing"
	"time"
)

type signalTask struct {
	done chan struct{}
}

func (t *signalTask) Execute() {
	close(t.done)
}

type panickingTask struct {
	done chan struct{}
}

func (t *panickingTask) Execute() {
	defer close(t.done)
	panic("task exploded")
}

func TestPoolExecutesSubmittedTasks(t *testing.T) {
	pool := NewPool(2, 10)
	pool.Start()
	defer pool.Stop()

	done := make(chan struct{})
	if !pool.Submit(&signalTask{done: done}) {
		t.Fatal("Submit returned false")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not executed")
	}
}

func TestPoolSurvivesTaskPanic(t *testing.T) {
	// 单 worker 顺序消费：panic 任务之后的任务仍须被执行
	pool := NewPool(1, 10)
	pool.Start()
	defer pool.Stop()

	first := make(chan struct{})
	second := make(chan struct{})
	pool.Submit(&panickingTask{done: first})
	pool.Submit(&signalTask{done: second})

	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestSubmitAfterStopIsRejected(t *testing.T) {
	pool := NewPool(1, 4)
	pool.Start()
	pool.Stop()

	// HTTP 关停窗口内的迟到提交：只能返回 false，绝不能 panic
	if pool.Submit(&signalTask{done: make(chan struct{})}) {
		t.Error("Submit after Stop should return false")
	}
	if pool.TrySubmit(&signalTask{done: make(chan struct{})}, 2, time.Millisecond) {
		t.Error("TrySubmit after Stop should return false")
	}
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	// 未启动的池没有消费者，第二次提交必然命中满队列分支
	pool := NewPool(1, 1)
	if !pool.Submit(&signalTask{done: make(chan struct{})}) {
		t.Fatal("first Submit should fill the queue")
	}
	if pool.Submit(&signalTask{done: make(chan struct{})}) {
		t.Error("second Submit should be dropped")
	}
}
