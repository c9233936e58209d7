package service

import (
	"errors"
	"sync"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrFollowSelf       = errors.New("cannot follow self")
)

// ValidationError 本地校验失败，请求不会发出
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + " " + e.Reason }

// ErrorSlot 进程内唯一的“最近一次错误”，原样展示给用户。
// report 非空时每个错误同时上报（如 Sentry）。
type ErrorSlot struct {
	mu     sync.RWMutex
	err    error
	report func(error)
}

func NewErrorSlot(report func(error)) *ErrorSlot { return &ErrorSlot{report: report} }

// Set 记录错误；nil 等价于 Clear
func (s *ErrorSlot) Set(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	if err != nil && s.report != nil {
		s.report(err)
	}
}

func (s *ErrorSlot) Last() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *ErrorSlot) Clear() { s.Set(nil) }
