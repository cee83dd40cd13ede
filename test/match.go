package test

import (
	"github.com/golang/mock/gomock"
)

type ArgMatcher[T any] struct {
	MatchFn func(T) bool
}

func (a ArgMatcher[T]) String() string {
	return "matches argument"
}

func (a ArgMatcher[T]) Matches(arg interface{}) bool {
	targ, ok := arg.(T)
	if !ok {
		return false
	}
	return a.MatchFn(targ)
}

func MatchArg[T any](fn func(T) bool) gomock.Matcher {
	return ArgMatcher[T]{MatchFn: fn}
}
