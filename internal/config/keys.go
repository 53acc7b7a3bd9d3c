package config

import "fmt"

type CacheKeyStruct struct{}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam's
// live monitor stream.
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = &CacheKeyStruct{}

type WorkerKeyStruct struct {
	PersistViolationsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistViolationsQueue: "persist_violations_queue",
}
